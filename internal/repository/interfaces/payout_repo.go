package interfaces

import (
	"context"

	"campaign-ledger/internal/model"
)

// PayoutRepository 出账流水，按幂等键唯一
type PayoutRepository interface {
	GetPayout(ctx context.Context, key string) (*model.Payout, error)
	// CreatePayout 键已存在时返回冲突错误
	CreatePayout(ctx context.Context, payout *model.Payout) error
	ListPayouts(ctx context.Context) ([]*model.Payout, error)
}
