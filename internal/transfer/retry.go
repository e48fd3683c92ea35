package transfer

import (
	"context"
	"time"

	"campaign-ledger/internal/common"
	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

// Retrying 对临时性失败重试的装饰器，依赖下游按键幂等
type Retrying struct {
	next       Transferer
	maxRetries int
	delay      time.Duration
}

func NewRetrying(next Transferer, maxRetries int, delay time.Duration) *Retrying {
	return &Retrying{next: next, maxRetries: maxRetries, delay: delay}
}

func (r *Retrying) Transfer(ctx context.Context, payout model.Payout) error {
	attempt := 0
	return common.WithRetryIf(ctx, func() error {
		attempt++
		err := r.next.Transfer(ctx, payout)
		if err != nil {
			util.Logger.Warn("出账失败",
				zap.Error(err),
				zap.String("key", payout.Key),
				zap.Int("attempt", attempt))
		}
		return err
	}, retryable, r.maxRetries, r.delay)
}

// retryable 出账按键幂等，存储层错误重试不会重复付款；键冲突不重试
func retryable(err error) bool {
	return common.IsRetryable(err) || errors.HasCode(err, errors.ErrDatabase)
}
