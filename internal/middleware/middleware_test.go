package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var (
	adminAddr = model.MustParseAddress("0x00000000000000000000000000000000000000ad")
	userAddr  = model.MustParseAddress("0x0000000000000000000000000000000000000b0b")
)

func bearer(t *testing.T, addr model.Address, secret string) string {
	t.Helper()
	token, err := util.GenerateToken(addr, secret)
	require.NoError(t, err)
	return "Bearer " + token
}

func setupRouter(analytics *errors.ErrorAnalytics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(), ErrorMonitorMiddleware(analytics), RecoveryMiddleware())

	authorized := r.Group("/", AuthMiddleware(testSecret))
	authorized.GET("/me", func(c *gin.Context) {
		caller, ok := Caller(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, caller.String())
	})
	authorized.GET("/admin", AdminMiddleware([]model.Address{adminAddr}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func serve(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter(errors.NewErrorAnalytics())

	w := serve(r, "/me", bearer(t, userAddr, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userAddr.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/me", bearer(t, userAddr, "other-secret")).Code)
}

func TestAdminMiddleware(t *testing.T) {
	r := setupRouter(errors.NewErrorAnalytics())

	assert.Equal(t, http.StatusNoContent, serve(r, "/admin", bearer(t, adminAddr, testSecret)).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/admin", bearer(t, userAddr, testSecret)).Code)
}

func TestRecoveryAndErrorMonitor(t *testing.T) {
	analytics := errors.NewErrorAnalytics()
	r := setupRouter(analytics)

	w := serve(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	serve(r, "/admin", bearer(t, userAddr, testSecret))

	assert.Equal(t, 1, analytics.Count(errors.ErrInternal))
	assert.Equal(t, 1, analytics.Count(errors.ErrForbidden))
	stats := analytics.GetStats()
	assert.Equal(t, 2, stats.TotalErrors)
	assert.Equal(t, 1, stats.ErrorsByPath["GET /admin"])
	assert.NotNil(t, stats.LastErrorTime)
}

func TestRequestIDPropagation(t *testing.T) {
	r := setupRouter(errors.NewErrorAnalytics())

	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}
