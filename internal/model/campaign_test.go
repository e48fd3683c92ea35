package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = MustParseAddress("0x000000000000000000000000000000000000a11c")
	bob   = MustParseAddress("0x0000000000000000000000000000000000000b0b")
)

func newCampaign(target, collected uint64) *Campaign {
	return &Campaign{
		Owner:           alice,
		Target:          NewAmount(target),
		Deadline:        1000,
		AmountCollected: NewAmount(collected),
	}
}

func TestCampaignGuards(t *testing.T) {
	c := newCampaign(100, 50)
	assert.False(t, c.TargetReached())
	assert.True(t, c.CanDonate(999))
	assert.True(t, c.CanDonate(1000))
	assert.False(t, c.CanDonate(1001))
	assert.False(t, c.CanWithdraw())
	assert.True(t, c.CanCancel())
	assert.False(t, c.CanClaimRefund(1000))
	assert.True(t, c.CanClaimRefund(1001))

	c.AmountCollected = NewAmount(100)
	assert.True(t, c.TargetReached())
	assert.True(t, c.CanWithdraw())
	assert.False(t, c.CanClaimRefund(1001))

	c.Cancelled = true
	assert.False(t, c.CanWithdraw())
	assert.False(t, c.CanCancel())
	assert.False(t, c.CanDonate(0))
	assert.True(t, c.CanClaimRefund(0))
}

func TestWithdrawingFreezesDonationsAndCancel(t *testing.T) {
	c := newCampaign(100, 100)
	c.Withdrawing = true
	assert.False(t, c.CanDonate(500))
	assert.False(t, c.CanCancel())
	assert.True(t, c.CanWithdraw())
	assert.False(t, c.CanClaimRefund(1001))
	assert.Equal(t, CampaignStateWithdrawing, c.State(500))

	c.Withdrawing = false
	c.FundsWithdrawn = true
	assert.False(t, c.CanWithdraw())
}

func TestCampaignState(t *testing.T) {
	c := newCampaign(100, 50)
	assert.Equal(t, CampaignStateOpen, c.State(500))
	assert.Equal(t, CampaignStateExpiredUnfunded, c.State(1001))

	c.AmountCollected = NewAmount(150)
	assert.Equal(t, CampaignStateExpiredFunded, c.State(1001))

	c.FundsWithdrawn = true
	assert.Equal(t, CampaignStateWithdrawn, c.State(1001))

	cancelled := newCampaign(100, 0)
	cancelled.Cancelled = true
	assert.Equal(t, CampaignStateCancelled, cancelled.State(1001))
}

func TestPendingRefund(t *testing.T) {
	c := newCampaign(1000, 60)
	c.Donations = []Donation{
		{Donor: alice, Amount: NewAmount(10)},
		{Donor: bob, Amount: NewAmount(20)},
		{Donor: alice, Amount: NewAmount(30), Refunded: true},
		{Donor: alice, Amount: NewAmount(5)},
	}

	indexes, total, err := c.PendingRefund(alice)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, indexes)
	assert.Equal(t, "15", total.String())

	indexes, total, err = c.PendingRefund(MustParseAddress("0x00000000000000000000000000000000000000cc"))
	require.NoError(t, err)
	assert.Empty(t, indexes)
	assert.True(t, total.IsZero())
}

func TestBalanceAndClone(t *testing.T) {
	c := newCampaign(100, 60)
	c.AmountRefunded = NewAmount(25)
	c.Donations = []Donation{{Donor: bob, Amount: NewAmount(60)}}
	assert.Equal(t, "35", c.Balance().String())

	cp := c.Clone()
	cp.Donations[0].Refunded = true
	cp.Cancelled = true
	assert.False(t, c.Donations[0].Refunded)
	assert.False(t, c.Cancelled)

	var nilCampaign *Campaign
	assert.Nil(t, nilCampaign.Clone())
}

func TestPayoutKey(t *testing.T) {
	p := NewPayout(3, PayoutRefund, bob, NewAmount(9))
	assert.Equal(t, "3:refund:0x0000000000000000000000000000000000000b0b", p.Key)
	assert.Equal(t, PayoutRefund, p.Operation)
}
