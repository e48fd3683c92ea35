package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

const campaignColumns = `id, owner, title, description, image, target, deadline, creation_time,
	amount_collected, amount_refunded, funds_withdrawn, cancelled, withdrawing`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db}
}

func (r *LedgerRepository) CreateCampaign(ctx context.Context, campaign *model.Campaign) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return dbError("开始事务失败", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id) + 1, 0) FROM campaigns`).Scan(&next); err != nil {
		util.Logger.Error("分配活动ID失败", zap.Error(err))
		return dbError("分配活动ID失败", err)
	}

	query := `INSERT INTO campaigns (` + campaignColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		next,
		campaign.Owner.String(),
		campaign.Title,
		campaign.Description,
		campaign.Image,
		campaign.Target.String(),
		campaign.Deadline,
		campaign.CreationTime,
		campaign.AmountCollected.String(),
		campaign.AmountRefunded.String(),
		campaign.FundsWithdrawn,
		campaign.Cancelled,
		campaign.Withdrawing)
	if err != nil {
		util.Logger.Error("插入活动记录失败", zap.Error(err))
		return dbError("插入活动记录失败", err)
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return dbError("提交事务失败", err)
	}

	campaign.ID = uint64(next)
	return nil
}

func (r *LedgerRepository) GetCampaign(ctx context.Context, id uint64) (*model.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	campaign, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		util.Logger.Error("获取活动失败", zap.Error(err), util.CampaignID(id))
		return nil, dbError("获取活动失败", err)
	}

	donations, err := r.listDonations(ctx, `WHERE campaign_id = ?`, id)
	if err != nil {
		return nil, err
	}
	campaign.Donations = donations[id]
	return campaign, nil
}

func (r *LedgerRepository) ListCampaigns(ctx context.Context) ([]*model.Campaign, error) {
	return r.listCampaigns(ctx, ``, `WHERE 1 = 1`)
}

func (r *LedgerRepository) ListCampaignsByOwner(ctx context.Context, owner model.Address) ([]*model.Campaign, error) {
	return r.listCampaigns(ctx,
		`WHERE owner = ?`,
		`WHERE campaign_id IN (SELECT id FROM campaigns WHERE owner = ?)`,
		owner.String())
}

func (r *LedgerRepository) listCampaigns(ctx context.Context, campaignWhere, donationWhere string, args ...interface{}) ([]*model.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns `+campaignWhere+` ORDER BY id`, args...)
	if err != nil {
		util.Logger.Error("查询活动列表失败", zap.Error(err))
		return nil, dbError("查询活动列表失败", err)
	}
	defer rows.Close()

	campaigns := make([]*model.Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			util.Logger.Error("读取活动记录失败", zap.Error(err))
			return nil, dbError("读取活动记录失败", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("读取活动记录失败", err)
	}
	rows.Close()

	donations, err := r.listDonations(ctx, donationWhere, args...)
	if err != nil {
		return nil, err
	}
	for _, c := range campaigns {
		c.Donations = donations[c.ID]
	}
	return campaigns, nil
}

func (r *LedgerRepository) listDonations(ctx context.Context, where string, args ...interface{}) (map[uint64][]model.Donation, error) {
	query := `SELECT campaign_id, donor, amount, donated_at, refunded FROM donations ` + where + ` ORDER BY campaign_id, idx`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		util.Logger.Error("查询捐款记录失败", zap.Error(err))
		return nil, dbError("查询捐款记录失败", err)
	}
	defer rows.Close()

	out := make(map[uint64][]model.Donation)
	for rows.Next() {
		var (
			campaignID    uint64
			donor, amount string
			d             model.Donation
		)
		if err := rows.Scan(&campaignID, &donor, &amount, &d.Timestamp, &d.Refunded); err != nil {
			return nil, dbError("读取捐款记录失败", err)
		}
		if d.Donor, err = model.ParseAddress(donor); err != nil {
			return nil, dbError("捐款地址损坏", err)
		}
		if d.Amount, err = model.ParseAmount(amount); err != nil {
			return nil, dbError("捐款金额损坏", err)
		}
		out[campaignID] = append(out[campaignID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("读取捐款记录失败", err)
	}
	return out, nil
}

func (r *LedgerRepository) AppendDonation(ctx context.Context, id uint64, donation model.Donation, prev, collected model.Amount) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return 0, dbError("开始事务失败", err)
	}
	defer tx.Rollback()

	// 先做条件更新拿到行锁，读到的旧值已过期时不写入捐款
	result, err := tx.ExecContext(ctx,
		`UPDATE campaigns SET amount_collected = ?
		WHERE id = ? AND amount_collected = ? AND funds_withdrawn = 0 AND cancelled = 0 AND withdrawing = 0`,
		collected.String(), id, prev.String())
	if err != nil {
		util.Logger.Error("更新筹集金额失败", zap.Error(err), util.CampaignID(id))
		return 0, dbError("更新筹集金额失败", err)
	}
	if err := r.expectOne(ctx, tx, result, id); err != nil {
		return 0, err
	}

	var idx int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM donations WHERE campaign_id = ?`, id).Scan(&idx); err != nil {
		return 0, dbError("统计捐款数量失败", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO donations (campaign_id, idx, donor, amount, donated_at, refunded) VALUES (?, ?, ?, ?, ?, ?)`,
		id, idx, donation.Donor.String(), donation.Amount.String(), donation.Timestamp, donation.Refunded)
	if err != nil {
		util.Logger.Error("插入捐款记录失败", zap.Error(err), util.CampaignID(id))
		return 0, dbError("插入捐款记录失败", err)
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return 0, dbError("提交事务失败", err)
	}
	return idx, nil
}

func (r *LedgerRepository) ReserveWithdrawal(ctx context.Context, id uint64, collected model.Amount) error {
	return r.flip(ctx, id,
		`UPDATE campaigns SET withdrawing = 1
		WHERE id = ? AND amount_collected = ? AND funds_withdrawn = 0 AND cancelled = 0 AND withdrawing = 0`,
		id, collected.String())
}

func (r *LedgerRepository) ReleaseWithdrawal(ctx context.Context, id uint64) error {
	return r.flip(ctx, id, `UPDATE campaigns SET withdrawing = 0 WHERE id = ? AND withdrawing = 1 AND funds_withdrawn = 0`, id)
}

func (r *LedgerRepository) MarkWithdrawn(ctx context.Context, id uint64) error {
	return r.flip(ctx, id,
		`UPDATE campaigns SET funds_withdrawn = 1, withdrawing = 0
		WHERE id = ? AND withdrawing = 1 AND funds_withdrawn = 0 AND cancelled = 0`,
		id)
}

func (r *LedgerRepository) MarkCancelled(ctx context.Context, id uint64) error {
	return r.flip(ctx, id,
		`UPDATE campaigns SET cancelled = 1 WHERE id = ? AND funds_withdrawn = 0 AND cancelled = 0 AND withdrawing = 0`,
		id)
}

func (r *LedgerRepository) MarkRefunded(ctx context.Context, id uint64, indexes []int, prev, refunded model.Amount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		util.Logger.Error("开始事务失败", zap.Error(err))
		return dbError("开始事务失败", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE campaigns SET amount_refunded = ? WHERE id = ? AND amount_refunded = ?`,
		refunded.String(), id, prev.String())
	if err != nil {
		util.Logger.Error("更新退款金额失败", zap.Error(err), util.CampaignID(id))
		return dbError("更新退款金额失败", err)
	}
	if err := r.expectOne(ctx, tx, result, id); err != nil {
		return err
	}

	for _, idx := range indexes {
		result, err := tx.ExecContext(ctx,
			`UPDATE donations SET refunded = 1 WHERE campaign_id = ? AND idx = ? AND refunded = 0`, id, idx)
		if err != nil {
			util.Logger.Error("标记退款失败", zap.Error(err), util.CampaignID(id), zap.Int("idx", idx))
			return dbError("标记退款失败", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return dbError("标记退款失败", err)
		}
		if n != 1 {
			return errors.New(errors.ErrResourceConflict, fmt.Sprintf("捐款已退款或不存在: %d", idx))
		}
	}

	if err := tx.Commit(); err != nil {
		util.Logger.Error("提交事务失败", zap.Error(err))
		return dbError("提交事务失败", err)
	}
	return nil
}

// flip 条件更新状态标志，相当于一次比较并交换
func (r *LedgerRepository) flip(ctx context.Context, id uint64, query string, args ...interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("开始事务失败", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		util.Logger.Error("更新活动状态失败", zap.Error(err), util.CampaignID(id))
		return dbError("更新活动状态失败", err)
	}
	if err := r.expectOne(ctx, tx, result, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbError("提交事务失败", err)
	}
	return nil
}

// expectOne 更新未命中时区分活动不存在与状态冲突
func (r *LedgerRepository) expectOne(ctx context.Context, tx *sql.Tx, result sql.Result, id uint64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return dbError("读取影响行数失败", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return dbError("查询活动失败", err)
	}
	if exists == 0 {
		return errors.New(errors.ErrCampaignNotFound, fmt.Sprintf("活动不存在: %d", id))
	}
	return errors.New(errors.ErrResourceConflict, "活动状态已变化")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var (
		c                                  model.Campaign
		owner, target, collected, refunded string
	)
	err := row.Scan(&c.ID, &owner, &c.Title, &c.Description, &c.Image, &target, &c.Deadline, &c.CreationTime,
		&collected, &refunded, &c.FundsWithdrawn, &c.Cancelled, &c.Withdrawing)
	if err != nil {
		return nil, err
	}
	if c.Owner, err = model.ParseAddress(owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if c.Target, err = model.ParseAmount(target); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if c.AmountCollected, err = model.ParseAmount(collected); err != nil {
		return nil, fmt.Errorf("amount_collected: %w", err)
	}
	if c.AmountRefunded, err = model.ParseAmount(refunded); err != nil {
		return nil, fmt.Errorf("amount_refunded: %w", err)
	}
	return &c, nil
}

func dbError(message string, err error) error {
	return errors.Wrap(errors.ErrDatabase, message, err)
}
