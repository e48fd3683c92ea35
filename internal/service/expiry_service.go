package service

import (
	"context"
	"sync"

	"campaign-ledger/internal/metrics"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

// LedgerReader 账本只读视图及其时钟
type LedgerReader interface {
	CampaignLister
	Now() int64
}

// ExpiryService 定期扫描过期未达标的活动，只读，不修改账本
type ExpiryService struct {
	ledger   LedgerReader
	notifier Notifier

	mu       sync.Mutex
	reported map[uint64]bool
}

func NewExpiryService(ledger LedgerReader, notifier Notifier) *ExpiryService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ExpiryService{
		ledger:   ledger,
		notifier: notifier,
		reported: make(map[uint64]bool),
	}
}

// CheckExpiredCampaigns 返回本次新进入过期未达标状态的活动ID，每个活动只通知一次
func (s *ExpiryService) CheckExpiredCampaigns(ctx context.Context) ([]uint64, error) {
	campaigns, err := s.ledger.GetCampaigns(ctx)
	if err != nil {
		util.Logger.Error("检查过期活动失败", zap.Error(err))
		return nil, err
	}

	now := s.ledger.Now()
	expired := make([]*model.Campaign, 0)
	for _, c := range campaigns {
		if c.ExpiredUnfunded(now) {
			expired = append(expired, c)
		}
	}
	metrics.SetExpiredUnfunded(len(expired))

	s.mu.Lock()
	defer s.mu.Unlock()

	newly := make([]uint64, 0)
	for _, c := range expired {
		if s.reported[c.ID] {
			continue
		}
		s.reported[c.ID] = true
		newly = append(newly, c.ID)

		util.Logger.Info("活动已过期且未达标，捐款人可申请退款",
			util.CampaignID(c.ID),
			util.Amount("target", c.Target),
			util.Amount("amount_collected", c.AmountCollected))
		s.notifier.CampaignExpired(c)
	}
	return newly, nil
}
