package admin

import (
	"context"
	"net/http"
	"strconv"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SnapshotExporter 导出账本快照
type SnapshotExporter interface {
	Export(ctx context.Context) (string, error)
}

// PayoutLister 读取出账流水
type PayoutLister interface {
	Payouts(ctx context.Context) ([]*model.Payout, error)
}

// AdminHandler 运维接口，只读或只做导出，不改变账本状态
type AdminHandler struct {
	analytics *errors.ErrorAnalytics
	snapshots SnapshotExporter
	payouts   PayoutLister
}

// NewAdminHandler 创建一个新的 AdminHandler 实例
func NewAdminHandler(analytics *errors.ErrorAnalytics, snapshots SnapshotExporter, payouts PayoutLister) *AdminHandler {
	return &AdminHandler{analytics, snapshots, payouts}
}

func (h *AdminHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/errors", h.GetErrorStats)
	group.POST("/snapshots", h.CreateSnapshot)
	group.GET("/payouts", h.GetPayouts)
}

// GetErrorStats 接口错误统计
func (h *AdminHandler) GetErrorStats(c *gin.Context) {
	errors.HandleSuccess(c, http.StatusOK, h.analytics.GetStats(), "")
}

// CreateSnapshot 立即导出一份账本快照
func (h *AdminHandler) CreateSnapshot(c *gin.Context) {
	location, err := h.snapshots.Export(c.Request.Context())
	if err != nil {
		util.Logger.Error("手动导出快照失败", zap.Error(err))
		errors.HandleError(c, err)
		return
	}
	errors.HandleSuccess(c, http.StatusCreated, gin.H{"location": location}, "快照已导出")
}

// GetPayouts 出账流水，可按 campaign_id 过滤
func (h *AdminHandler) GetPayouts(c *gin.Context) {
	payouts, err := h.payouts.Payouts(c.Request.Context())
	if err != nil {
		errors.HandleError(c, err)
		return
	}

	if raw := c.Query("campaign_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			errors.HandleError(c, errors.Wrap(errors.ErrBadRequest, "无效的活动ID", err))
			return
		}
		filtered := make([]*model.Payout, 0)
		for _, p := range payouts {
			if p.CampaignID == id {
				filtered = append(filtered, p)
			}
		}
		payouts = filtered
	}

	errors.HandleSuccess(c, http.StatusOK, gin.H{
		"payouts": payouts,
		"total":   len(payouts),
	}, "")
}
