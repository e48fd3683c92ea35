package middleware

import (
	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/metrics"
	"campaign-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorMonitorMiddleware 统计 HandleError 挂到上下文上的错误
func ErrorMonitorMiddleware(analytics *errors.ErrorAnalytics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		ctx := errors.ErrorContext{
			RequestID: RequestID(c),
			Path:      c.FullPath(),
			Method:    c.Request.Method,
		}
		if ctx.Path == "" {
			ctx.Path = c.Request.URL.Path
		}
		if caller, ok := Caller(c); ok {
			ctx.Caller = caller.String()
		}

		for _, e := range c.Errors {
			traced := errors.NewTracedError(e.Err, ctx)
			analytics.Record(traced)
			metrics.ObserveHTTPError(traced.Code.String())

			fields := []zap.Field{
				zap.Int("error_code", int(traced.Code)),
				zap.String("kind", traced.Code.String()),
				zap.String("error_message", traced.Message),
				zap.String("request_id", ctx.RequestID),
				zap.String("path", ctx.Path),
				zap.String("method", ctx.Method),
			}
			if traced.Err != nil {
				fields = append(fields, zap.Error(traced.Err))
			}
			// 5xx 记为错误，其余为业务拒绝
			if errors.StatusOf(traced.Code) >= 500 {
				util.Logger.Error("请求处理错误", fields...)
			} else {
				util.Logger.Info("请求被拒绝", fields...)
			}
		}
	}
}
