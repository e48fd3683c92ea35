package memory

import (
	"context"
	"sync"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
)

// PayoutRepository 进程内出账流水
type PayoutRepository struct {
	mu      sync.RWMutex
	byKey   map[string]*model.Payout
	ordered []*model.Payout
}

func NewPayoutRepository() *PayoutRepository {
	return &PayoutRepository{byKey: make(map[string]*model.Payout)}
}

func (r *PayoutRepository) GetPayout(ctx context.Context, key string) (*model.Payout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *PayoutRepository) CreatePayout(ctx context.Context, payout *model.Payout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byKey[payout.Key]; ok {
		return errors.New(errors.ErrResourceConflict, "出账记录已存在: "+payout.Key)
	}
	p := *payout
	r.byKey[p.Key] = &p
	r.ordered = append(r.ordered, &p)
	return nil
}

func (r *PayoutRepository) ListPayouts(ctx context.Context) ([]*model.Payout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Payout, 0, len(r.ordered))
	for _, p := range r.ordered {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}
