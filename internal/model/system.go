package model

// PlatformStats 平台统计数据
type PlatformStats struct {
	TotalCampaigns         uint64 `json:"total_campaigns"`
	TotalAmountCollected   Amount `json:"total_amount_collected"`
	TotalDonationsCount    uint64 `json:"total_donations_count"`
	AverageDonation        Amount `json:"average_donation"`
	CampaignsReachedTarget uint64 `json:"campaigns_reached_target"`
}

// LedgerSnapshot 账本审计快照
type LedgerSnapshot struct {
	GeneratedAt int64         `json:"generated_at"`
	Stats       PlatformStats `json:"stats"`
	Campaigns   []*Campaign   `json:"campaigns"`
}
