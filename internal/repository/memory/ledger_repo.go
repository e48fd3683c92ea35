package memory

import (
	"context"
	"fmt"
	"sync"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
)

// LedgerRepository 进程内账本存储，返回的记录均为拷贝
type LedgerRepository struct {
	mu        sync.RWMutex
	campaigns []*model.Campaign
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) CreateCampaign(ctx context.Context, campaign *model.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign.ID = uint64(len(r.campaigns))
	r.campaigns = append(r.campaigns, campaign.Clone())
	return nil
}

func (r *LedgerRepository) GetCampaign(ctx context.Context, id uint64) (*model.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.lookup(id)
	if c == nil {
		return nil, nil
	}
	return c.Clone(), nil
}

func (r *LedgerRepository) ListCampaigns(ctx context.Context) ([]*model.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (r *LedgerRepository) ListCampaignsByOwner(ctx context.Context, owner model.Address) ([]*model.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Campaign, 0)
	for _, c := range r.campaigns {
		if c.Owner == owner {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (r *LedgerRepository) AppendDonation(ctx context.Context, id uint64, donation model.Donation, prev, collected model.Amount) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookup(id)
	if c == nil {
		return 0, notFound(id)
	}
	if c.FundsWithdrawn || c.Cancelled || c.Withdrawing || c.AmountCollected.Cmp(prev) != 0 {
		return 0, conflict("活动状态已变化")
	}
	c.Donations = append(c.Donations, donation)
	c.AmountCollected = collected
	return len(c.Donations) - 1, nil
}

func (r *LedgerRepository) ReserveWithdrawal(ctx context.Context, id uint64, collected model.Amount) error {
	return r.flip(ctx, id, func(c *model.Campaign) bool {
		if c.FundsWithdrawn || c.Cancelled || c.Withdrawing || c.AmountCollected.Cmp(collected) != 0 {
			return false
		}
		c.Withdrawing = true
		return true
	})
}

func (r *LedgerRepository) ReleaseWithdrawal(ctx context.Context, id uint64) error {
	return r.flip(ctx, id, func(c *model.Campaign) bool {
		if !c.Withdrawing || c.FundsWithdrawn {
			return false
		}
		c.Withdrawing = false
		return true
	})
}

func (r *LedgerRepository) MarkWithdrawn(ctx context.Context, id uint64) error {
	return r.flip(ctx, id, func(c *model.Campaign) bool {
		if !c.Withdrawing || c.FundsWithdrawn || c.Cancelled {
			return false
		}
		c.Withdrawing = false
		c.FundsWithdrawn = true
		return true
	})
}

func (r *LedgerRepository) MarkCancelled(ctx context.Context, id uint64) error {
	return r.flip(ctx, id, func(c *model.Campaign) bool {
		if c.FundsWithdrawn || c.Cancelled || c.Withdrawing {
			return false
		}
		c.Cancelled = true
		return true
	})
}

func (r *LedgerRepository) MarkRefunded(ctx context.Context, id uint64, indexes []int, prev, refunded model.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookup(id)
	if c == nil {
		return notFound(id)
	}
	for _, i := range indexes {
		if i < 0 || i >= len(c.Donations) {
			return errors.New(errors.ErrInvalidInput, fmt.Sprintf("捐款下标越界: %d", i))
		}
		if c.Donations[i].Refunded {
			return conflict(fmt.Sprintf("捐款已退款: %d", i))
		}
	}
	if c.AmountRefunded.Cmp(prev) != 0 {
		return conflict("已退款金额已变化")
	}
	for _, i := range indexes {
		c.Donations[i].Refunded = true
	}
	c.AmountRefunded = refunded
	return nil
}

// flip 在写锁内检查前置条件并修改标志位，条件不满足时返回冲突
func (r *LedgerRepository) flip(ctx context.Context, id uint64, apply func(*model.Campaign) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookup(id)
	if c == nil {
		return notFound(id)
	}
	if !apply(c) {
		return conflict("活动状态不允许该操作")
	}
	return nil
}

func (r *LedgerRepository) lookup(id uint64) *model.Campaign {
	if id >= uint64(len(r.campaigns)) {
		return nil
	}
	return r.campaigns[id]
}

func notFound(id uint64) error {
	return errors.New(errors.ErrCampaignNotFound, fmt.Sprintf("活动不存在: %d", id))
}

func conflict(message string) error {
	return errors.New(errors.ErrResourceConflict, message)
}
