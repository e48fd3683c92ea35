package service

import (
	"context"
	"encoding/json"
	"fmt"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/storage"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

// SnapshotService 把账本全量状态导出为 JSON 审计快照
type SnapshotService struct {
	ledger  LedgerReader
	storage storage.Storage
}

func NewSnapshotService(ledger LedgerReader, store storage.Storage) *SnapshotService {
	return &SnapshotService{ledger: ledger, storage: store}
}

// Build 生成快照，不写入存储
func (s *SnapshotService) Build(ctx context.Context) (*model.LedgerSnapshot, error) {
	campaigns, err := s.ledger.GetCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	return &model.LedgerSnapshot{
		GeneratedAt: s.ledger.Now(),
		Stats:       ComputeStats(campaigns),
		Campaigns:   campaigns,
	}, nil
}

// Export 生成快照并写入存储，返回快照位置
func (s *SnapshotService) Export(ctx context.Context) (string, error) {
	snapshot, err := s.Build(ctx)
	if err != nil {
		util.Logger.Error("生成账本快照失败", zap.Error(err))
		return "", err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrInternal, "序列化账本快照失败", err)
	}

	path := fmt.Sprintf("snapshots/ledger-%d.json", snapshot.GeneratedAt)
	location, err := s.storage.Save(ctx, path, data, "application/json")
	if err != nil {
		util.Logger.Error("保存账本快照失败", zap.Error(err), zap.String("path", path))
		return "", errors.Wrap(errors.ErrStorage, "保存账本快照失败", err)
	}

	util.Logger.Info("账本快照已导出",
		zap.String("location", location),
		zap.Uint64("campaigns", snapshot.Stats.TotalCampaigns))
	return location, nil
}
