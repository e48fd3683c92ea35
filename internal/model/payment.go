package model

import (
	"fmt"
	"time"
)

// PayoutOperation 出账类型
type PayoutOperation string

const (
	PayoutWithdraw PayoutOperation = "withdraw"
	PayoutRefund   PayoutOperation = "refund"
)

// Payout 一笔离开托管的资金
type Payout struct {
	Key        string          `json:"key"`
	CampaignID uint64          `json:"campaign_id"`
	Operation  PayoutOperation `json:"operation"`
	Recipient  Address         `json:"recipient"`
	Amount     Amount          `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PayoutKey 幂等键，格式: 活动ID:操作:收款地址
func PayoutKey(campaignID uint64, op PayoutOperation, recipient Address) string {
	return fmt.Sprintf("%d:%s:%s", campaignID, op, recipient)
}

// NewPayout 构造出账记录
func NewPayout(campaignID uint64, op PayoutOperation, recipient Address, amount Amount) Payout {
	return Payout{
		Key:        PayoutKey(campaignID, op, recipient),
		CampaignID: campaignID,
		Operation:  op,
		Recipient:  recipient,
		Amount:     amount,
	}
}
