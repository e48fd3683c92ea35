package model

// CampaignState 由存储的标志位和当前时间推导出的活动状态
type CampaignState string

const (
	CampaignStateOpen            CampaignState = "open"
	CampaignStateWithdrawing     CampaignState = "withdrawing"
	CampaignStateWithdrawn       CampaignState = "withdrawn"
	CampaignStateCancelled       CampaignState = "cancelled"
	CampaignStateExpiredFunded   CampaignState = "expired_funded"
	CampaignStateExpiredUnfunded CampaignState = "expired_unfunded"
)

// Campaign 众筹活动
type Campaign struct {
	ID              uint64     `json:"id"`
	Owner           Address    `json:"owner"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Image           string     `json:"image"`
	Target          Amount     `json:"target"`
	Deadline        int64      `json:"deadline"`
	CreationTime    int64      `json:"creation_time"`
	AmountCollected Amount     `json:"amount_collected"` // 累计筹集金额，退款不回减
	AmountRefunded  Amount     `json:"amount_refunded"`  // 已退款金额
	FundsWithdrawn  bool       `json:"funds_withdrawn"`
	Cancelled       bool       `json:"cancelled"`
	Withdrawing     bool       `json:"withdrawing"` // 已登记提取意向，出账完成前冻结捐款与取消
	Donations       []Donation `json:"donations,omitempty"`
}

// Donation 单笔捐款
type Donation struct {
	Donor     Address `json:"donor"`
	Amount    Amount  `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	Refunded  bool    `json:"refunded"`
}

// TargetReached amountCollected >= target
func (c *Campaign) TargetReached() bool {
	return c.AmountCollected.Cmp(c.Target) >= 0
}

// DeadlinePassed now > deadline
func (c *Campaign) DeadlinePassed(now int64) bool {
	return now > c.Deadline
}

// CanDonate 未取消、未提取、无进行中的提取、未过截止时间
func (c *Campaign) CanDonate(now int64) bool {
	return !c.Cancelled && !c.FundsWithdrawn && !c.Withdrawing && !c.DeadlinePassed(now)
}

// CanWithdraw 不考虑调用者身份；进行中的提取可以续做
func (c *Campaign) CanWithdraw() bool {
	return c.TargetReached() && !c.Cancelled && !c.FundsWithdrawn
}

// CanCancel 不考虑调用者身份
func (c *Campaign) CanCancel() bool {
	return !c.Cancelled && !c.FundsWithdrawn && !c.Withdrawing
}

// ExpiredUnfunded 已过截止时间、未达目标、未取消
func (c *Campaign) ExpiredUnfunded(now int64) bool {
	return c.DeadlinePassed(now) && !c.TargetReached() && !c.Cancelled
}

// CanClaimRefund 活动已取消，或已过截止时间且未达目标
func (c *Campaign) CanClaimRefund(now int64) bool {
	return c.Cancelled || (c.DeadlinePassed(now) && !c.TargetReached())
}

// State 推导当前状态
func (c *Campaign) State(now int64) CampaignState {
	switch {
	case c.FundsWithdrawn:
		return CampaignStateWithdrawn
	case c.Withdrawing:
		return CampaignStateWithdrawing
	case c.Cancelled:
		return CampaignStateCancelled
	case c.ExpiredUnfunded(now):
		return CampaignStateExpiredUnfunded
	case c.DeadlinePassed(now):
		return CampaignStateExpiredFunded
	default:
		return CampaignStateOpen
	}
}

// Balance 仍由账本托管的金额，即未退款捐款之和
func (c *Campaign) Balance() Amount {
	out, err := c.AmountCollected.Sub(c.AmountRefunded)
	if err != nil {
		return Amount{}
	}
	return out
}

// PendingRefund 返回捐款人尚未退款的捐款下标及其总额
func (c *Campaign) PendingRefund(donor Address) ([]int, Amount, error) {
	var (
		indexes []int
		total   Amount
		err     error
	)
	for i, d := range c.Donations {
		if d.Donor != donor || d.Refunded {
			continue
		}
		total, err = total.Add(d.Amount)
		if err != nil {
			return nil, Amount{}, err
		}
		indexes = append(indexes, i)
	}
	return indexes, total, nil
}

// Clone 深拷贝，避免调用方修改账本内部状态
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	if c.Donations != nil {
		out.Donations = make([]Donation, len(c.Donations))
		copy(out.Donations, c.Donations)
	}
	return &out
}
