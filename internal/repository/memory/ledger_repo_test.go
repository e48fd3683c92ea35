package memory

import (
	"context"
	"testing"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = model.MustParseAddress("0x000000000000000000000000000000000000a11c")
	donor = model.MustParseAddress("0x0000000000000000000000000000000000000b0b")
)

func TestLedgerRepositorySequentialIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()

	for i := 0; i < 3; i++ {
		c := &model.Campaign{Owner: owner, Title: "t", Target: model.NewAmount(10)}
		require.NoError(t, repo.CreateCampaign(ctx, c))
		assert.Equal(t, uint64(i), c.ID)
	}

	missing, err := repo.GetCampaign(ctx, 3)
	assert.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLedgerRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	c := &model.Campaign{Owner: owner, Target: model.NewAmount(10)}
	require.NoError(t, repo.CreateCampaign(ctx, c))

	got, err := repo.GetCampaign(ctx, 0)
	require.NoError(t, err)
	got.Cancelled = true
	got.Title = "changed"

	again, err := repo.GetCampaign(ctx, 0)
	require.NoError(t, err)
	assert.False(t, again.Cancelled)
	assert.Empty(t, again.Title)
}

func TestLedgerRepositoryDonationsAndFlags(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	require.NoError(t, repo.CreateCampaign(ctx, &model.Campaign{Owner: owner, Target: model.NewAmount(10)}))

	idx, err := repo.AppendDonation(ctx, 0, model.Donation{Donor: donor, Amount: model.NewAmount(4), Timestamp: 7}, model.Amount{}, model.NewAmount(4))
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = repo.AppendDonation(ctx, 0, model.Donation{Donor: donor, Amount: model.NewAmount(6), Timestamp: 8}, model.NewAmount(4), model.NewAmount(10))
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = repo.AppendDonation(ctx, 9, model.Donation{}, model.Amount{}, model.Amount{})
	assert.True(t, errors.HasCode(err, errors.ErrCampaignNotFound))

	require.NoError(t, repo.MarkRefunded(ctx, 0, []int{1}, model.Amount{}, model.NewAmount(6)))
	assert.True(t, errors.HasCode(repo.MarkRefunded(ctx, 0, []int{5}, model.NewAmount(6), model.NewAmount(12)), errors.ErrInvalidInput))
	assert.True(t, errors.HasCode(repo.MarkRefunded(ctx, 0, []int{1}, model.NewAmount(6), model.NewAmount(12)), errors.ErrResourceConflict))

	require.NoError(t, repo.MarkCancelled(ctx, 0))
	assert.True(t, errors.HasCode(repo.MarkCancelled(ctx, 0), errors.ErrResourceConflict))
	assert.True(t, errors.HasCode(repo.MarkWithdrawn(ctx, 0), errors.ErrResourceConflict))

	c, err := repo.GetCampaign(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "10", c.AmountCollected.String())
	assert.Equal(t, "6", c.AmountRefunded.String())
	assert.True(t, c.Cancelled)
	assert.False(t, c.Donations[0].Refunded)
	assert.True(t, c.Donations[1].Refunded)

	byOwner, err := repo.ListCampaignsByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, byOwner, 1)
	byOther, err := repo.ListCampaignsByOwner(ctx, donor)
	require.NoError(t, err)
	assert.Empty(t, byOther)
}

func TestLedgerRepositoryStaleWritesConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	require.NoError(t, repo.CreateCampaign(ctx, &model.Campaign{Owner: owner, Target: model.NewAmount(10)}))

	_, err := repo.AppendDonation(ctx, 0, model.Donation{Donor: donor, Amount: model.NewAmount(3)}, model.Amount{}, model.NewAmount(3))
	require.NoError(t, err)

	// 基于旧的 amountCollected 计算的写入被拒绝
	_, err = repo.AppendDonation(ctx, 0, model.Donation{Donor: donor, Amount: model.NewAmount(5)}, model.Amount{}, model.NewAmount(5))
	assert.True(t, errors.HasCode(err, errors.ErrResourceConflict))

	require.NoError(t, repo.MarkCancelled(ctx, 0))
	assert.True(t, errors.HasCode(repo.MarkRefunded(ctx, 0, []int{0}, model.NewAmount(1), model.NewAmount(4)), errors.ErrResourceConflict))

	c, err := repo.GetCampaign(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, c.Donations, 1)
	assert.Equal(t, "3", c.AmountCollected.String())
	assert.True(t, c.AmountRefunded.IsZero())
	assert.False(t, c.Donations[0].Refunded)
}

func TestLedgerRepositoryWithdrawalReservation(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	require.NoError(t, repo.CreateCampaign(ctx, &model.Campaign{Owner: owner, Target: model.NewAmount(5)}))
	_, err := repo.AppendDonation(ctx, 0, model.Donation{Donor: donor, Amount: model.NewAmount(5)}, model.Amount{}, model.NewAmount(5))
	require.NoError(t, err)

	assert.True(t, errors.HasCode(repo.MarkWithdrawn(ctx, 0), errors.ErrResourceConflict))
	assert.True(t, errors.HasCode(repo.ReserveWithdrawal(ctx, 0, model.NewAmount(4)), errors.ErrResourceConflict))
	require.NoError(t, repo.ReserveWithdrawal(ctx, 0, model.NewAmount(5)))
	assert.True(t, errors.HasCode(repo.ReserveWithdrawal(ctx, 0, model.NewAmount(5)), errors.ErrResourceConflict))

	_, err = repo.AppendDonation(ctx, 0, model.Donation{Donor: donor, Amount: model.NewAmount(1)}, model.NewAmount(5), model.NewAmount(6))
	assert.True(t, errors.HasCode(err, errors.ErrResourceConflict))
	assert.True(t, errors.HasCode(repo.MarkCancelled(ctx, 0), errors.ErrResourceConflict))

	require.NoError(t, repo.ReleaseWithdrawal(ctx, 0))
	c, err := repo.GetCampaign(ctx, 0)
	require.NoError(t, err)
	assert.False(t, c.Withdrawing)

	require.NoError(t, repo.ReserveWithdrawal(ctx, 0, model.NewAmount(5)))
	require.NoError(t, repo.MarkWithdrawn(ctx, 0))
	assert.True(t, errors.HasCode(repo.ReleaseWithdrawal(ctx, 0), errors.ErrResourceConflict))

	c, err = repo.GetCampaign(ctx, 0)
	require.NoError(t, err)
	assert.True(t, c.FundsWithdrawn)
	assert.False(t, c.Withdrawing)
}

func TestPayoutRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPayoutRepository()

	p := model.NewPayout(0, model.PayoutWithdraw, owner, model.NewAmount(10))
	require.NoError(t, repo.CreatePayout(ctx, &p))
	assert.True(t, errors.HasCode(repo.CreatePayout(ctx, &p), errors.ErrResourceConflict))

	got, err := repo.GetPayout(ctx, p.Key)
	require.NoError(t, err)
	assert.Equal(t, p.Recipient, got.Recipient)

	missing, err := repo.GetPayout(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.ListPayouts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
