// Package transfer 是资金离开托管的边界。账本在提交终态标志之前调用 Transfer，
// 实现必须按 Payout.Key 幂等，重复调用不能重复付款。
package transfer

import (
	"context"

	"campaign-ledger/internal/model"
)

// Transferer 执行一次出账
type Transferer interface {
	Transfer(ctx context.Context, payout model.Payout) error
}
