package middleware

import (
	"campaign-ledger/internal/errors"
	"campaign-ledger/internal/model"
	"campaign-ledger/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminMiddleware 确保只有管理员地址可以访问某些路由，需在 AuthMiddleware 之后使用
func AdminMiddleware(admins []model.Address) gin.HandlerFunc {
	allowed := make(map[model.Address]bool, len(admins))
	for _, a := range admins {
		allowed[a] = true
	}

	return func(c *gin.Context) {
		caller, ok := Caller(c)
		if !ok {
			util.Logger.Warn("调用者地址不存在")
			errors.HandleError(c, errors.New(errors.ErrUnauthorized, "需要认证"))
			c.Abort()
			return
		}

		if !allowed[caller] {
			util.Logger.Warn("非管理员访问",
				util.Address("caller", caller),
				zap.String("path", c.Request.URL.Path))
			errors.HandleError(c, errors.New(errors.ErrForbidden, "需要管理员权限"))
			c.Abort()
			return
		}

		c.Next()
	}
}
