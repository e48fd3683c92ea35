package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/metrics"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/repository/interfaces"
	"campaign-ledger/internal/transfer"
	"campaign-ledger/internal/util"

	"go.uber.org/zap"
)

// CreateCampaignInput 创建活动参数
type CreateCampaignInput struct {
	Owner       model.Address
	Title       string
	Description string
	Target      model.Amount
	Deadline    int64 // 秒级时间戳
	Image       string
}

// LedgerService 账本核心：托管每个活动的捐款，决定谁能在何时动用资金。
//
// 同一活动上的写操作由活动级互斥锁串行化，不同活动之间互不阻塞；
// 多个实例共享存储时由存储层的条件更新兜底。
// 提取与退款先完成外部划转再提交标志位，划转失败时不写入任何状态。
type LedgerService struct {
	repo       interfaces.LedgerRepository
	transferer transfer.Transferer
	notifier   Notifier
	nowFn      func() time.Time

	createMu sync.Mutex
	locksMu  sync.Mutex
	locks    map[uint64]*campaignLock
}

type campaignLock struct {
	mu   sync.Mutex
	refs int
}

// LedgerOption 可选配置
type LedgerOption func(*LedgerService)

// WithClock 替换时钟，测试用
func WithClock(nowFn func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.nowFn = nowFn }
}

// WithNotifier 设置运营通知
func WithNotifier(n Notifier) LedgerOption {
	return func(s *LedgerService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewLedgerService 创建一个新的 LedgerService 实例
func NewLedgerService(repo interfaces.LedgerRepository, transferer transfer.Transferer, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		repo:       repo,
		transferer: transferer,
		notifier:   nopNotifier{},
		nowFn:      time.Now,
		locks:      make(map[uint64]*campaignLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now 账本当前时间（秒）
func (s *LedgerService) Now() int64 {
	return s.nowFn().Unix()
}

// CreateCampaign 创建活动并返回顺序分配的ID
func (s *LedgerService) CreateCampaign(ctx context.Context, input CreateCampaignInput) (id uint64, err error) {
	defer func() { observe("create_campaign", err) }()

	now := s.Now()
	if input.Target.IsZero() {
		return 0, errors.New(errors.ErrInvalidTarget, "目标金额必须大于0")
	}
	if input.Deadline <= now {
		return 0, errors.New(errors.ErrInvalidDeadline, "截止时间必须晚于当前时间")
	}
	if input.Owner.IsZero() {
		return 0, errors.New(errors.ErrInvalidInput, "发起人地址不能为空")
	}
	if strings.TrimSpace(input.Title) == "" {
		return 0, errors.New(errors.ErrInvalidInput, "标题不能为空")
	}

	campaign := &model.Campaign{
		Owner:        input.Owner,
		Title:        input.Title,
		Description:  input.Description,
		Image:        input.Image,
		Target:       input.Target,
		Deadline:     input.Deadline,
		CreationTime: now,
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		util.Logger.Error("创建活动失败", zap.Error(err))
		return 0, err
	}

	util.Logger.Info("活动创建成功",
		util.CampaignID(campaign.ID),
		util.Address("owner", campaign.Owner),
		util.Amount("target", campaign.Target),
		zap.Int64("deadline", campaign.Deadline))
	return campaign.ID, nil
}

// DonateToCampaign 向活动捐款，返回该捐款在活动捐款记录中的下标
func (s *LedgerService) DonateToCampaign(ctx context.Context, id uint64, donor model.Address, amount model.Amount) (idx int, err error) {
	defer func() { observe("donate", err) }()

	unlock := s.lock(id)
	defer unlock()

	var collected model.Amount
	err = retryOnConflict(func() error {
		campaign, err := s.load(ctx, id)
		if err != nil {
			return err
		}

		now := s.Now()
		if amount.IsZero() {
			return errors.New(errors.ErrInvalidAmount, "捐款金额必须大于0")
		}
		if !campaign.CanDonate(now) {
			return donateRefusal(campaign)
		}

		collected, err = campaign.AmountCollected.Add(amount)
		if err != nil {
			return errors.Wrap(errors.ErrOverflow, "筹集金额溢出", err)
		}

		donation := model.Donation{
			Donor:     donor,
			Amount:    amount,
			Timestamp: now,
		}
		idx, err = s.repo.AppendDonation(ctx, id, donation, campaign.AmountCollected, collected)
		if err != nil && !errors.HasCode(err, errors.ErrResourceConflict) {
			util.Logger.Error("写入捐款失败", zap.Error(err), util.CampaignID(id))
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	util.Logger.Info("捐款成功",
		util.CampaignID(id),
		util.Address("donor", donor),
		util.Amount("amount", amount),
		util.Amount("amount_collected", collected),
		zap.Int("donation_index", idx))
	return idx, nil
}

func donateRefusal(c *model.Campaign) error {
	switch {
	case c.Cancelled:
		return errors.New(errors.ErrCampaignCancelled, "活动已取消")
	case c.FundsWithdrawn:
		return errors.New(errors.ErrCampaignClosed, "活动资金已提取")
	case c.Withdrawing:
		return errors.New(errors.ErrCampaignClosed, "活动资金正在提取")
	default:
		return errors.New(errors.ErrCampaignExpired, "活动已截止")
	}
}

// WithdrawFunds 发起人提取已达标活动的全部筹集金额。
//
// 先登记提取意向冻结捐款与取消，再出账，最后提交 fundsWithdrawn。
// 出账失败时撤销意向；出账成功但提交失败时意向保留，再次调用会按同一出账键续做。
func (s *LedgerService) WithdrawFunds(ctx context.Context, id uint64, caller model.Address) (amount model.Amount, err error) {
	defer func() { observe("withdraw", err) }()

	unlock := s.lock(id)
	defer unlock()

	var (
		campaign *model.Campaign
		reserved bool
	)
	err = retryOnConflict(func() error {
		c, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if caller != c.Owner {
			return errors.New(errors.ErrNotOwner, "只有发起人可以提取资金")
		}
		if !c.CanWithdraw() {
			switch {
			case c.FundsWithdrawn:
				return errors.New(errors.ErrAlreadyWithdrawn, "资金已提取")
			case c.Cancelled:
				return errors.New(errors.ErrCampaignCancelled, "活动已取消")
			default:
				return errors.New(errors.ErrTargetNotReached, "未达到目标金额")
			}
		}
		campaign = c
		if c.Withdrawing {
			util.Logger.Warn("续做未完成的提取", util.CampaignID(id))
			return nil
		}
		if err := s.repo.ReserveWithdrawal(ctx, id, c.AmountCollected); err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return model.Amount{}, err
	}

	// 出账开始后的收尾不受请求超时影响
	commitCtx := context.WithoutCancel(ctx)

	amount = campaign.AmountCollected
	payout := model.NewPayout(id, model.PayoutWithdraw, campaign.Owner, amount)
	if err := s.transfer(ctx, payout); err != nil {
		if reserved {
			if releaseErr := s.repo.ReleaseWithdrawal(commitCtx, id); releaseErr != nil {
				util.Logger.Error("撤销提取意向失败", zap.Error(releaseErr), util.CampaignID(id))
			}
		}
		return model.Amount{}, err
	}

	if err := s.repo.MarkWithdrawn(commitCtx, id); err != nil {
		util.Logger.Error("标记资金已提取失败，重新提取可完成", zap.Error(err), util.CampaignID(id), zap.String("payout_key", payout.Key))
		return model.Amount{}, err
	}
	campaign.Withdrawing = false
	campaign.FundsWithdrawn = true

	util.Logger.Info("资金提取成功",
		util.CampaignID(id),
		util.Address("owner", campaign.Owner),
		util.Amount("amount", amount))
	s.notifier.CampaignWithdrawn(campaign, amount)
	return amount, nil
}

// CancelCampaign 发起人取消活动，之后所有捐款人可申请退款
func (s *LedgerService) CancelCampaign(ctx context.Context, id uint64, caller model.Address) (err error) {
	defer func() { observe("cancel", err) }()

	unlock := s.lock(id)
	defer unlock()

	var campaign *model.Campaign
	err = retryOnConflict(func() error {
		c, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if caller != c.Owner {
			return errors.New(errors.ErrNotOwner, "只有发起人可以取消活动")
		}
		if !c.CanCancel() {
			switch {
			case c.FundsWithdrawn:
				return errors.New(errors.ErrAlreadyWithdrawn, "资金已提取")
			case c.Withdrawing:
				return errors.New(errors.ErrWithdrawalPending, "资金正在提取，不能取消")
			default:
				return errors.New(errors.ErrAlreadyCancelled, "活动已取消")
			}
		}
		campaign = c
		return s.repo.MarkCancelled(ctx, id)
	})
	if err != nil {
		return err
	}
	campaign.Cancelled = true

	util.Logger.Info("活动已取消", util.CampaignID(id))
	s.notifier.CampaignCancelled(campaign)
	return nil
}

// ClaimRefund 捐款人取回其在该活动中全部未退款的捐款
func (s *LedgerService) ClaimRefund(ctx context.Context, id uint64, donor model.Address) (total model.Amount, err error) {
	defer func() { observe("refund", err) }()

	unlock := s.lock(id)
	defer unlock()

	campaign, err := s.load(ctx, id)
	if err != nil {
		return model.Amount{}, err
	}

	if !campaign.CanClaimRefund(s.Now()) {
		return model.Amount{}, errors.New(errors.ErrRefundNotEligible, "活动未取消且未过期失败，不能退款")
	}

	indexes, total, err := campaign.PendingRefund(donor)
	if err != nil {
		return model.Amount{}, errors.Wrap(errors.ErrOverflow, "退款金额溢出", err)
	}
	if len(indexes) == 0 {
		return model.Amount{}, errors.New(errors.ErrNothingToRefund, "没有可退款的捐款")
	}
	if _, err := campaign.AmountRefunded.Add(total); err != nil {
		return model.Amount{}, errors.Wrap(errors.ErrOverflow, "退款金额溢出", err)
	}

	payout := model.NewPayout(id, model.PayoutRefund, donor, total)
	if err := s.transfer(ctx, payout); err != nil {
		return model.Amount{}, err
	}

	if err := s.commitRefund(context.WithoutCancel(ctx), campaign, donor, indexes, total); err != nil {
		util.Logger.Error("标记退款失败", zap.Error(err), util.CampaignID(id), zap.String("payout_key", payout.Key))
		return model.Amount{}, err
	}

	util.Logger.Info("退款成功",
		util.CampaignID(id),
		util.Address("donor", donor),
		util.Amount("amount", total),
		zap.Int("donations", len(indexes)))
	return total, nil
}

// commitRefund 以读到的 amountRefunded 为条件提交，其他实例先提交时重新读取
func (s *LedgerService) commitRefund(ctx context.Context, campaign *model.Campaign, donor model.Address, indexes []int, total model.Amount) error {
	current := campaign
	return retryOnConflict(func() error {
		refunded, err := current.AmountRefunded.Add(total)
		if err != nil {
			return errors.Wrap(errors.ErrOverflow, "退款金额溢出", err)
		}
		err = s.repo.MarkRefunded(ctx, current.ID, indexes, current.AmountRefunded, refunded)
		if !errors.HasCode(err, errors.ErrResourceConflict) {
			return err
		}

		fresh, loadErr := s.load(ctx, current.ID)
		if loadErr != nil {
			return loadErr
		}
		// 同一出账键已由另一个请求提交
		if pending, _, _ := fresh.PendingRefund(donor); len(pending) == 0 {
			return errors.New(errors.ErrNothingToRefund, "捐款已退款")
		}
		current = fresh
		return err
	})
}

// GetCampaigns 按ID升序返回全部活动
func (s *LedgerService) GetCampaigns(ctx context.Context) ([]*model.Campaign, error) {
	return s.repo.ListCampaigns(ctx)
}

// GetCampaign 返回单个活动
func (s *LedgerService) GetCampaign(ctx context.Context, id uint64) (*model.Campaign, error) {
	return s.load(ctx, id)
}

// GetUserCampaigns 返回某地址发起的全部活动
func (s *LedgerService) GetUserCampaigns(ctx context.Context, owner model.Address) ([]*model.Campaign, error) {
	return s.repo.ListCampaignsByOwner(ctx, owner)
}

// GetDonators 以三个平行数组返回捐款记录，包括已退款的捐款
func (s *LedgerService) GetDonators(ctx context.Context, id uint64) ([]model.Address, []model.Amount, []int64, error) {
	campaign, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	donors := make([]model.Address, 0, len(campaign.Donations))
	amounts := make([]model.Amount, 0, len(campaign.Donations))
	timestamps := make([]int64, 0, len(campaign.Donations))
	for _, d := range campaign.Donations {
		donors = append(donors, d.Donor)
		amounts = append(amounts, d.Amount)
		timestamps = append(timestamps, d.Timestamp)
	}
	return donors, amounts, timestamps, nil
}

func (s *LedgerService) load(ctx context.Context, id uint64) (*model.Campaign, error) {
	campaign, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		util.Logger.Error("获取活动失败", zap.Error(err), util.CampaignID(id))
		return nil, err
	}
	if campaign == nil {
		return nil, errors.New(errors.ErrCampaignNotFound, fmt.Sprintf("活动不存在: %d", id))
	}
	return campaign, nil
}

// transfer 执行外部划转，失败统一为 TransferFailed
func (s *LedgerService) transfer(ctx context.Context, payout model.Payout) error {
	if err := s.transferer.Transfer(ctx, payout); err != nil {
		util.Logger.Error("资金划转失败",
			zap.Error(err),
			zap.String("payout_key", payout.Key),
			util.Amount("amount", payout.Amount))
		s.notifier.TransferFailed(payout, err)
		return errors.Wrap(errors.ErrTransferFailed, "资金划转失败，可重试", err)
	}
	return nil
}

// lock 获取活动级互斥锁，返回解锁函数。
// 锁表项按持有者计数，最后一个持有者释放时删除，锁表大小只取决于并发请求数
func (s *LedgerService) lock(id uint64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &campaignLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// casAttempts 条件更新被其他实例抢先时的最大尝试次数
const casAttempts = 5

// retryOnConflict 条件更新冲突时重新读取并重试，fn 必须每次重新加载活动
func retryOnConflict(fn func() error) error {
	var err error
	for i := 0; i < casAttempts; i++ {
		if err = fn(); !errors.HasCode(err, errors.ErrResourceConflict) {
			return err
		}
	}
	return err
}

func observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = errors.CodeOf(err).String()
	}
	metrics.ObserveOperation(operation, result)
}
