package transfer

import (
	"context"
	"fmt"
	"time"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/repository/interfaces"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

// Book 出账流水簿，下游结算进程按流水实际打款
type Book struct {
	repo  interfaces.PayoutRepository
	nowFn func() time.Time
}

func NewBook(repo interfaces.PayoutRepository) *Book {
	return &Book{repo: repo, nowFn: time.Now}
}

// Transfer 记录出账；相同键、相同收款人和金额视为已完成
func (b *Book) Transfer(ctx context.Context, payout model.Payout) error {
	existing, err := b.repo.GetPayout(ctx, payout.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		return b.checkReplay(existing, payout)
	}

	payout.CreatedAt = b.nowFn().UTC()
	if err := b.repo.CreatePayout(ctx, &payout); err != nil {
		if !errors.HasCode(err, errors.ErrResourceConflict) {
			return err
		}
		// 并发写入同一键
		existing, getErr := b.repo.GetPayout(ctx, payout.Key)
		if getErr != nil || existing == nil {
			return err
		}
		return b.checkReplay(existing, payout)
	}

	util.Logger.Info("出账记录已写入",
		zap.String("key", payout.Key),
		util.Address("recipient", payout.Recipient),
		util.Amount("amount", payout.Amount))
	return nil
}

func (b *Book) checkReplay(existing *model.Payout, payout model.Payout) error {
	if existing.Recipient != payout.Recipient || existing.Amount.Cmp(payout.Amount) != 0 {
		return errors.New(errors.ErrResourceConflict,
			fmt.Sprintf("出账键 %s 已用于不同的收款人或金额", payout.Key))
	}
	util.Logger.Info("出账已完成，跳过重复划转", zap.String("key", payout.Key))
	return nil
}

// Payouts 返回全部出账流水
func (b *Book) Payouts(ctx context.Context) ([]*model.Payout, error) {
	return b.repo.ListPayouts(ctx)
}
