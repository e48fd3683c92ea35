package campaign

import (
	"net/http"
	"strconv"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/middleware"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/service"
	"campaign-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CampaignHandler 处理与活动相关的HTTP请求
type CampaignHandler struct {
	ledger *service.LedgerService
	stats  *service.StatsService
}

// NewCampaignHandler 创建一个新的 CampaignHandler 实例
func NewCampaignHandler(ledger *service.LedgerService, stats *service.StatsService) *CampaignHandler {
	return &CampaignHandler{ledger, stats}
}

// RegisterRoutes 注册公开路由和需要认证的路由
func (h *CampaignHandler) RegisterRoutes(public, authorized *gin.RouterGroup) {
	public.GET("/campaigns", h.GetCampaigns)
	public.GET("/campaigns/:id", h.GetCampaign)
	public.GET("/campaigns/:id/donators", h.GetDonators)
	public.GET("/users/:address/campaigns", h.GetUserCampaigns)
	public.GET("/stats", h.GetPlatformStats)

	authorized.POST("/campaigns", h.CreateCampaign)
	authorized.POST("/campaigns/:id/donations", h.Donate)
	authorized.POST("/campaigns/:id/withdraw", h.WithdrawFunds)
	authorized.POST("/campaigns/:id/cancel", h.CancelCampaign)
	authorized.POST("/campaigns/:id/refund", h.ClaimRefund)
}

type createCampaignRequest struct {
	Owner       string `json:"owner" binding:"omitempty,eth_addr"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=10000"`
	Target      string `json:"target" binding:"required,base_units"`
	Deadline    int64  `json:"deadline"`
	Image       string `json:"image" binding:"omitempty,max=2048"`
}

// donateRequest value 为随请求附带的资金，必须与 amount 相等
type donateRequest struct {
	Amount string `json:"amount" binding:"required,base_units"`
	Value  string `json:"value" binding:"required,base_units"`
}

// campaignView 活动列表项，附带与 getDonators 相同的平行数组
type campaignView struct {
	*model.Campaign
	State              model.CampaignState `json:"state"`
	Balance            model.Amount        `json:"balance"`
	Donators           []model.Address     `json:"donators"`
	DonationAmounts    []model.Amount      `json:"donation_amounts"`
	DonationTimestamps []int64             `json:"donation_timestamps"`
}

func newCampaignView(c *model.Campaign, now int64) campaignView {
	v := campaignView{
		Campaign:           c,
		State:              c.State(now),
		Balance:            c.Balance(),
		Donators:           make([]model.Address, 0, len(c.Donations)),
		DonationAmounts:    make([]model.Amount, 0, len(c.Donations)),
		DonationTimestamps: make([]int64, 0, len(c.Donations)),
	}
	for _, d := range c.Donations {
		v.Donators = append(v.Donators, d.Donor)
		v.DonationAmounts = append(v.DonationAmounts, d.Amount)
		v.DonationTimestamps = append(v.DonationTimestamps, d.Timestamp)
	}
	return v
}

func (h *CampaignHandler) views(campaigns []*model.Campaign) []campaignView {
	now := h.ledger.Now()
	out := make([]campaignView, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, newCampaignView(c, now))
	}
	return out
}

// CreateCampaign 创建活动，未指定 owner 时以调用者为发起人
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
		return
	}

	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Logger.Warn("无效的创建活动请求", zap.Error(err))
		errors.HandleError(c, errors.Wrap(errors.ErrInvalidInput, "请求参数无效", err))
		return
	}

	owner := caller
	if req.Owner != "" {
		owner, _ = model.ParseAddress(req.Owner)
	}
	target, _ := model.ParseAmount(req.Target)

	id, err := h.ledger.CreateCampaign(c.Request.Context(), service.CreateCampaignInput{
		Owner:       owner,
		Title:       req.Title,
		Description: req.Description,
		Target:      target,
		Deadline:    req.Deadline,
		Image:       req.Image,
	})
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, http.StatusCreated, gin.H{"id": id}, "活动创建成功")
}

// GetCampaigns 按ID升序返回全部活动
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	campaigns, err := h.ledger.GetCampaigns(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, h.views(campaigns), "")
}

func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	campaign, err := h.ledger.GetCampaign(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, newCampaignView(campaign, h.ledger.Now()), "")
}

// GetDonators 返回捐款人、金额、时间三个平行数组，包含已退款的捐款
func (h *CampaignHandler) GetDonators(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	donors, amounts, timestamps, err := h.ledger.GetDonators(c.Request.Context(), id)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"donators":   donors,
		"donations":  amounts,
		"timestamps": timestamps,
	}, "")
}

func (h *CampaignHandler) GetUserCampaigns(c *gin.Context) {
	owner, err := model.ParseAddress(c.Param("address"))
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrInvalidInput, "无效的地址", err))
		return
	}
	campaigns, err := h.ledger.GetUserCampaigns(c.Request.Context(), owner)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, h.views(campaigns), "")
}

func (h *CampaignHandler) GetPlatformStats(c *gin.Context) {
	stats, err := h.stats.GetPlatformStats(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, stats, "")
}

// Donate 捐款，附带的 value 必须与 amount 一致
func (h *CampaignHandler) Donate(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	caller, ok := middleware.Caller(c)
	if !ok {
		errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
		return
	}

	var req donateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Logger.Warn("无效的捐款请求", zap.Error(err), util.CampaignID(id))
		errors.HandleError(c, errors.Wrap(errors.ErrInvalidInput, "请求参数无效", err))
		return
	}

	amount, _ := model.ParseAmount(req.Amount)
	value, _ := model.ParseAmount(req.Value)
	if amount.Cmp(value) != 0 {
		errors.HandleError(c, errors.New(errors.ErrInvalidAmount, "附带金额与捐款金额不一致"))
		return
	}

	idx, err := h.ledger.DonateToCampaign(c.Request.Context(), id, caller, amount)
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	errors.HandleSuccess(c, http.StatusCreated, gin.H{"donation_index": idx}, "捐款成功")
}

func (h *CampaignHandler) WithdrawFunds(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	caller, ok := middleware.Caller(c)
	if !ok {
		errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
		return
	}

	amount, err := h.ledger.WithdrawFunds(c.Request.Context(), id, caller)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"amount": amount}, "资金提取成功")
}

func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	caller, ok := middleware.Caller(c)
	if !ok {
		errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
		return
	}

	if err := h.ledger.CancelCampaign(c.Request.Context(), id, caller); err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, nil, "活动已取消")
}

func (h *CampaignHandler) ClaimRefund(c *gin.Context) {
	id, ok := campaignID(c)
	if !ok {
		return
	}
	caller, ok := middleware.Caller(c)
	if !ok {
		errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
		return
	}

	amount, err := h.ledger.ClaimRefund(c.Request.Context(), id, caller)
	if err != nil {
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusOK, gin.H{"amount": amount}, "退款成功")
}

// campaignID 解析路径中的活动ID，失败时已写入响应
func campaignID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "无效的活动ID", err))
		return 0, false
	}
	return id, true
}
