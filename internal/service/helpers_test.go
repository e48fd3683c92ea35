package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/repository/interfaces"
	"campaign-ledger/internal/repository/memory"
	"campaign-ledger/internal/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 = int64(1700000000)

var (
	owner   = model.MustParseAddress("0x000000000000000000000000000000000000a11c")
	donorA  = model.MustParseAddress("0x0000000000000000000000000000000000000b0b")
	donorB  = model.MustParseAddress("0x0000000000000000000000000000000000000ca7")
	outside = model.MustParseAddress("0x000000000000000000000000000000000000dead")
)

// testClock 可手动推进的时钟
type testClock struct {
	mu  sync.Mutex
	now int64
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *testClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// switchTransferer 在出账簿前加一个可切换的故障开关
type switchTransferer struct {
	mu    sync.Mutex
	fail  bool
	calls int
	next  transfer.Transferer
}

func (s *switchTransferer) Transfer(ctx context.Context, payout model.Payout) error {
	s.mu.Lock()
	s.calls++
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return stderrors.New("network down")
	}
	return s.next.Transfer(ctx, payout)
}

func (s *switchTransferer) SetFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

type testLedger struct {
	*LedgerService
	clock      *testClock
	book       *transfer.Book
	transferer *switchTransferer
}

func newTestLedger(t *testing.T, opts ...LedgerOption) *testLedger {
	t.Helper()
	return newTestLedgerWithRepo(t, memory.NewLedgerRepository(), opts...)
}

func newTestLedgerWithRepo(t *testing.T, repo interfaces.LedgerRepository, opts ...LedgerOption) *testLedger {
	t.Helper()
	clock := &testClock{now: t0}
	book := transfer.NewBook(memory.NewPayoutRepository())
	tr := &switchTransferer{next: book}
	opts = append([]LedgerOption{WithClock(clock.Now)}, opts...)
	return &testLedger{
		LedgerService: NewLedgerService(repo, tr, opts...),
		clock:         clock,
		book:          book,
		transferer:    tr,
	}
}

func (l *testLedger) create(t *testing.T, target uint64, deadline int64) uint64 {
	t.Helper()
	id, err := l.CreateCampaign(context.Background(), CreateCampaignInput{
		Owner:    owner,
		Title:    "Clean water",
		Target:   model.NewAmount(target),
		Deadline: deadline,
	})
	require.NoError(t, err)
	return id
}

func (l *testLedger) donate(t *testing.T, id uint64, donor model.Address, amount uint64) {
	t.Helper()
	_, err := l.DonateToCampaign(context.Background(), id, donor, model.NewAmount(amount))
	require.NoError(t, err)
}

// assertLedgerConsistent 用捐款记录重新计算聚合值，发现累计值漂移
func assertLedgerConsistent(t *testing.T, l *testLedger) {
	t.Helper()
	campaigns, err := l.GetCampaigns(context.Background())
	require.NoError(t, err)
	for _, c := range campaigns {
		var gross, refunded model.Amount
		for _, d := range c.Donations {
			assert.False(t, d.Amount.IsZero(), "campaign %d has a zero donation", c.ID)
			gross = gross.SaturatingAdd(d.Amount)
			if d.Refunded {
				refunded = refunded.SaturatingAdd(d.Amount)
			}
		}
		assert.Equal(t, 0, gross.Cmp(c.AmountCollected), "campaign %d amount_collected drift", c.ID)
		assert.Equal(t, 0, refunded.Cmp(c.AmountRefunded), "campaign %d amount_refunded drift", c.ID)
		assert.False(t, c.FundsWithdrawn && c.Cancelled, "campaign %d both withdrawn and cancelled", c.ID)
		assert.False(t, c.Withdrawing && (c.Cancelled || c.FundsWithdrawn), "campaign %d withdrawal reservation left behind", c.ID)
		if c.FundsWithdrawn {
			assert.True(t, c.AmountRefunded.IsZero(), "campaign %d refunded after withdrawal", c.ID)
		}
	}
}

func (l *testLedger) lockEntries() int {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	return len(l.locks)
}

// hookedRepo 在写入前插入另一个实例的操作，模拟共享存储上的并发写入
type hookedRepo struct {
	interfaces.LedgerRepository

	appendOnce   sync.Once
	beforeAppend func()
	refundOnce   sync.Once
	beforeRefund func()

	mu               sync.Mutex
	failMarkWithdraw int
}

func (r *hookedRepo) AppendDonation(ctx context.Context, id uint64, donation model.Donation, prev, collected model.Amount) (int, error) {
	if r.beforeAppend != nil {
		r.appendOnce.Do(r.beforeAppend)
	}
	return r.LedgerRepository.AppendDonation(ctx, id, donation, prev, collected)
}

func (r *hookedRepo) MarkRefunded(ctx context.Context, id uint64, indexes []int, prev, refunded model.Amount) error {
	if r.beforeRefund != nil {
		r.refundOnce.Do(r.beforeRefund)
	}
	return r.LedgerRepository.MarkRefunded(ctx, id, indexes, prev, refunded)
}

func (r *hookedRepo) MarkWithdrawn(ctx context.Context, id uint64) error {
	r.mu.Lock()
	fail := r.failMarkWithdraw > 0
	if fail {
		r.failMarkWithdraw--
	}
	r.mu.Unlock()
	if fail {
		return errors.New(errors.ErrDatabase, "connection reset")
	}
	return r.LedgerRepository.MarkWithdrawn(ctx, id)
}

// cancelAfterTransfer 出账成功后立即取消请求上下文
type cancelAfterTransfer struct {
	next   transfer.Transferer
	cancel context.CancelFunc
}

func (c *cancelAfterTransfer) Transfer(ctx context.Context, payout model.Payout) error {
	err := c.next.Transfer(ctx, payout)
	c.cancel()
	return err
}
