package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSnapshotExporter 是 SnapshotExporter 接口的模拟实现
type MockSnapshotExporter struct {
	mock.Mock
}

func (m *MockSnapshotExporter) Export(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockPayoutLister 是 PayoutLister 接口的模拟实现
type MockPayoutLister struct {
	mock.Mock
}

func (m *MockPayoutLister) Payouts(ctx context.Context) ([]*model.Payout, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payout), args.Error(1)
}

func setupRouter(analytics *errors.ErrorAnalytics, snapshots SnapshotExporter, payouts PayoutLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewAdminHandler(analytics, snapshots, payouts).RegisterRoutes(router.Group("/api/admin"))
	return router
}

func TestCreateSnapshot(t *testing.T) {
	snapshots := new(MockSnapshotExporter)
	router := setupRouter(errors.NewErrorAnalytics(), snapshots, new(MockPayoutLister))

	snapshots.On("Export", mock.Anything).Return("snapshots/ledger-1.json", nil).Once()

	req, _ := http.NewRequest(http.MethodPost, "/api/admin/snapshots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "snapshots/ledger-1.json")
	snapshots.AssertExpectations(t)

	snapshots.On("Export", mock.Anything).Return("", errors.New(errors.ErrStorage, "保存账本快照失败")).Once()
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/admin/snapshots", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetPayoutsFiltersByCampaign(t *testing.T) {
	payouts := new(MockPayoutLister)
	router := setupRouter(errors.NewErrorAnalytics(), new(MockSnapshotExporter), payouts)

	recipient := model.MustParseAddress("0x000000000000000000000000000000000000a11c")
	p1 := model.NewPayout(1, model.PayoutWithdraw, recipient, model.NewAmount(10))
	p2 := model.NewPayout(2, model.PayoutRefund, recipient, model.NewAmount(3))
	payouts.On("Payouts", mock.Anything).Return([]*model.Payout{&p1, &p2}, nil)

	req, _ := http.NewRequest(http.MethodGet, "/api/admin/payouts?campaign_id=2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Payouts []model.Payout `json:"payouts"`
			Total   int            `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, p2.Key, resp.Data.Payouts[0].Key)

	req, _ = http.NewRequest(http.MethodGet, "/api/admin/payouts?campaign_id=x", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetErrorStats(t *testing.T) {
	analytics := errors.NewErrorAnalytics()
	analytics.Record(errors.NewTracedError(errors.New(errors.ErrNotOwner, "x"),
		errors.ErrorContext{Path: "/api/campaigns/:id/withdraw", Method: http.MethodPost}))
	router := setupRouter(analytics, new(MockSnapshotExporter), new(MockPayoutLister))

	req, _ := http.NewRequest(http.MethodGet, "/api/admin/errors", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data errors.ErrorStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.TotalErrors)
	assert.Equal(t, 1, resp.Data.ErrorsByKind["NotOwner"])
	assert.Equal(t, 1, resp.Data.ErrorsByPath["POST /api/campaigns/:id/withdraw"])
}
