package sqlrepo

import (
	"context"
	"database/sql"
	"time"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

type PayoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) *PayoutRepository {
	return &PayoutRepository{db}
}

func (r *PayoutRepository) GetPayout(ctx context.Context, key string) (*model.Payout, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payout_key, campaign_id, operation, recipient, amount, created_at FROM payouts WHERE payout_key = ?`, key)
	p, err := scanPayout(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("获取出账记录失败", zap.Error(err), zap.String("key", key))
		return nil, dbError("获取出账记录失败", err)
	}
	return p, nil
}

func (r *PayoutRepository) CreatePayout(ctx context.Context, payout *model.Payout) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("开始事务失败", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM payouts WHERE payout_key = ?`, payout.Key).Scan(&exists); err != nil {
		return dbError("查询出账记录失败", err)
	}
	if exists > 0 {
		return errors.New(errors.ErrResourceConflict, "出账记录已存在: "+payout.Key)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payouts (payout_key, campaign_id, operation, recipient, amount, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		payout.Key,
		payout.CampaignID,
		string(payout.Operation),
		payout.Recipient.String(),
		payout.Amount.String(),
		payout.CreatedAt.Unix())
	if err != nil {
		util.Logger.Error("插入出账记录失败", zap.Error(err), zap.String("key", payout.Key))
		return dbError("插入出账记录失败", err)
	}

	if err := tx.Commit(); err != nil {
		return dbError("提交事务失败", err)
	}
	return nil
}

func (r *PayoutRepository) ListPayouts(ctx context.Context) ([]*model.Payout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payout_key, campaign_id, operation, recipient, amount, created_at FROM payouts ORDER BY created_at, payout_key`)
	if err != nil {
		util.Logger.Error("查询出账记录失败", zap.Error(err))
		return nil, dbError("查询出账记录失败", err)
	}
	defer rows.Close()

	out := make([]*model.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, dbError("读取出账记录失败", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("读取出账记录失败", err)
	}
	return out, nil
}

func scanPayout(row rowScanner) (*model.Payout, error) {
	var (
		p                    model.Payout
		op, recipient, total string
		createdAt            int64
	)
	if err := row.Scan(&p.Key, &p.CampaignID, &op, &recipient, &total, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if p.Recipient, err = model.ParseAddress(recipient); err != nil {
		return nil, err
	}
	if p.Amount, err = model.ParseAmount(total); err != nil {
		return nil, err
	}
	p.Operation = model.PayoutOperation(op)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}
