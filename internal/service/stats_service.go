package service

import (
	"context"

	"campaign-ledger/internal/model"
)

// CampaignLister 统计所需的只读视图
type CampaignLister interface {
	GetCampaigns(ctx context.Context) ([]*model.Campaign, error)
}

type StatsService struct {
	ledger CampaignLister
}

func NewStatsService(ledger CampaignLister) *StatsService {
	return &StatsService{ledger: ledger}
}

// GetPlatformStats 每次调用时基于账本全量状态计算，不做缓存
func (s *StatsService) GetPlatformStats(ctx context.Context) (model.PlatformStats, error) {
	campaigns, err := s.ledger.GetCampaigns(ctx)
	if err != nil {
		return model.PlatformStats{}, err
	}
	return ComputeStats(campaigns), nil
}

// ComputeStats 总筹集金额为累计值，包括已取消和已退款的活动；求和溢出时取最大值
func ComputeStats(campaigns []*model.Campaign) model.PlatformStats {
	var stats model.PlatformStats
	for _, c := range campaigns {
		stats.TotalCampaigns++
		stats.TotalAmountCollected = stats.TotalAmountCollected.SaturatingAdd(c.AmountCollected)
		stats.TotalDonationsCount += uint64(len(c.Donations))
		if c.TargetReached() {
			stats.CampaignsReachedTarget++
		}
	}
	stats.AverageDonation = stats.TotalAmountCollected.DivUint64(stats.TotalDonationsCount)
	return stats
}
