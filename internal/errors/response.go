package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 定义错误响应结构
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
}

// SuccessResponse 定义成功响应结构
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// 错误码与HTTP状态码映射
var errorStatusMap = map[ErrorCode]int{
	// 系统错误 (1000-1999)
	ErrInternal: http.StatusInternalServerError,
	ErrDatabase: http.StatusInternalServerError,
	ErrStorage:  http.StatusInternalServerError,
	ErrTimeout:  http.StatusRequestTimeout,

	// 认证错误 (2000-2999)
	ErrUnauthorized: http.StatusUnauthorized,
	ErrForbidden:    http.StatusForbidden,
	ErrInvalidToken: http.StatusUnauthorized,
	ErrNotOwner:     http.StatusForbidden,

	// 请求错误 (3000-3999)
	ErrBadRequest:       http.StatusBadRequest,
	ErrInvalidInput:     http.StatusBadRequest,
	ErrInvalidTarget:    http.StatusBadRequest,
	ErrInvalidDeadline:  http.StatusBadRequest,
	ErrInvalidAmount:    http.StatusBadRequest,
	ErrResourceConflict: http.StatusConflict,

	// 资源错误 (4000-4999)
	ErrCampaignNotFound: http.StatusNotFound,

	// 状态机错误 (5000-5999)
	ErrCampaignCancelled: http.StatusConflict,
	ErrCampaignClosed:    http.StatusConflict,
	ErrCampaignExpired:   http.StatusConflict,
	ErrAlreadyWithdrawn:  http.StatusConflict,
	ErrAlreadyCancelled:  http.StatusConflict,
	ErrTargetNotReached:  http.StatusConflict,
	ErrRefundNotEligible: http.StatusConflict,
	ErrNothingToRefund:   http.StatusConflict,
	ErrOverflow:          http.StatusUnprocessableEntity,
	ErrWithdrawalPending: http.StatusConflict,

	// 外部划转错误 (6000-6999)
	ErrTransferFailed: http.StatusBadGateway,
}

// StatusOf 返回错误码对应的HTTP状态码
func StatusOf(code ErrorCode) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError 统一处理错误响应，并把错误挂到 gin 上下文供错误监控使用
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		resp := ErrorResponse{
			Code:    appErr.Code,
			Kind:    appErr.Code.String(),
			Message: appErr.Message,
		}

		if appErr.Err != nil {
			resp.Error = appErr.Err.Error()
		}

		c.JSON(StatusOf(appErr.Code), resp)
		return
	}

	// 处理非 AppError 类型的错误
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    ErrInternal,
		Kind:    ErrInternal.String(),
		Message: "Internal Server Error",
		Error:   err.Error(),
	})
}

// HandleSuccess 统一处理成功响应
func HandleSuccess(c *gin.Context, status int, data interface{}, message string) {
	resp := SuccessResponse{
		Code:    status,
		Message: message,
		Data:    data,
	}
	c.JSON(status, resp)
}
