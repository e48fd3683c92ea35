package interfaces

import (
	"context"

	"campaign-ledger/internal/model"
)

// LedgerRepository 活动与捐款记录的持久化。
// 查询方法在记录不存在时返回 (nil, nil)。
type LedgerRepository interface {
	// CreateCampaign 分配下一个顺序ID并写回 campaign.ID
	CreateCampaign(ctx context.Context, campaign *model.Campaign) error
	GetCampaign(ctx context.Context, id uint64) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*model.Campaign, error)
	ListCampaignsByOwner(ctx context.Context, owner model.Address) ([]*model.Campaign, error)
	// AppendDonation 追加捐款并把 amountCollected 从 prev 更新为 collected，返回捐款下标。
	// amountCollected 已不是 prev，或活动已提取、已取消、正在提取时返回冲突错误
	AppendDonation(ctx context.Context, id uint64, donation model.Donation, prev, collected model.Amount) (int, error)
	// ReserveWithdrawal 登记提取意向，要求 amountCollected 仍为 collected 且活动未进入终态
	ReserveWithdrawal(ctx context.Context, id uint64, collected model.Amount) error
	// ReleaseWithdrawal 撤销尚未完成的提取意向
	ReleaseWithdrawal(ctx context.Context, id uint64) error
	// MarkWithdrawn 仅当已登记提取意向时生效，否则返回冲突错误
	MarkWithdrawn(ctx context.Context, id uint64) error
	// MarkCancelled 仅当未提取、未取消且无提取意向时生效，否则返回冲突错误
	MarkCancelled(ctx context.Context, id uint64) error
	// MarkRefunded 标记指定下标的捐款为已退款并把 amountRefunded 从 prev 更新为 refunded。
	// 捐款已退款或 amountRefunded 已不是 prev 时返回冲突错误
	MarkRefunded(ctx context.Context, id uint64, indexes []int, prev, refunded model.Amount) error
}
