package transfer

import (
	"context"
	"testing"
	"time"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var recipient = model.MustParseAddress("0x000000000000000000000000000000000000a11c")

func TestBookTransferIsIdempotent(t *testing.T) {
	ctx := context.Background()
	book := NewBook(memory.NewPayoutRepository())
	book.nowFn = func() time.Time { return time.Unix(1700000000, 0) }

	payout := model.NewPayout(1, model.PayoutWithdraw, recipient, model.NewAmount(50))
	require.NoError(t, book.Transfer(ctx, payout))
	require.NoError(t, book.Transfer(ctx, payout))

	payouts, err := book.Payouts(ctx)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, payout.Key, payouts[0].Key)
	assert.Equal(t, int64(1700000000), payouts[0].CreatedAt.Unix())
}

func TestBookTransferRejectsMismatchedReplay(t *testing.T) {
	ctx := context.Background()
	book := NewBook(memory.NewPayoutRepository())

	payout := model.NewPayout(1, model.PayoutRefund, recipient, model.NewAmount(50))
	require.NoError(t, book.Transfer(ctx, payout))

	payout.Amount = model.NewAmount(51)
	err := book.Transfer(ctx, payout)
	assert.True(t, errors.HasCode(err, errors.ErrResourceConflict))
}

// MockPayoutRepository 是 PayoutRepository 接口的模拟实现
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) GetPayout(ctx context.Context, key string) (*model.Payout, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payout), args.Error(1)
}

func (m *MockPayoutRepository) CreatePayout(ctx context.Context, payout *model.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *MockPayoutRepository) ListPayouts(ctx context.Context) ([]*model.Payout, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.Payout), args.Error(1)
}

func TestBookTransferConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPayoutRepository)
	book := NewBook(repo)

	payout := model.NewPayout(4, model.PayoutWithdraw, recipient, model.NewAmount(8))
	stored := payout

	repo.On("GetPayout", ctx, payout.Key).Return(nil, nil).Once()
	repo.On("CreatePayout", ctx, mock.AnythingOfType("*model.Payout")).
		Return(errors.New(errors.ErrResourceConflict, "exists")).Once()
	repo.On("GetPayout", ctx, payout.Key).Return(&stored, nil).Once()

	assert.NoError(t, book.Transfer(ctx, payout))
	repo.AssertExpectations(t)
}

func TestBookTransferPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPayoutRepository)
	book := NewBook(repo)

	payout := model.NewPayout(4, model.PayoutWithdraw, recipient, model.NewAmount(8))
	dbErr := errors.New(errors.ErrDatabase, "down")
	repo.On("GetPayout", ctx, payout.Key).Return(nil, dbErr).Once()

	err := book.Transfer(ctx, payout)
	assert.True(t, errors.HasCode(err, errors.ErrDatabase))
	repo.AssertNotCalled(t, "CreatePayout", mock.Anything, mock.Anything)
}
