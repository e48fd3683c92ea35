package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode 定义错误码类型
type ErrorCode int

// 定义系统级错误码 (1000-1999)
const (
	ErrInternal ErrorCode = 1000 + iota
	ErrDatabase
	ErrStorage
	ErrTimeout
)

// 定义认证相关错误码 (2000-2999)
const (
	ErrUnauthorized ErrorCode = 2000 + iota
	ErrForbidden
	ErrInvalidToken
	ErrNotOwner
)

// 定义请求相关错误码 (3000-3999)
const (
	ErrBadRequest ErrorCode = 3000 + iota
	ErrInvalidInput
	ErrInvalidTarget
	ErrInvalidDeadline
	ErrInvalidAmount
	ErrResourceConflict
)

// 定义资源相关错误码 (4000-4999)
const (
	ErrCampaignNotFound ErrorCode = 4000 + iota
)

// 定义账本状态机错误码 (5000-5999)
const (
	ErrCampaignCancelled ErrorCode = 5000 + iota
	ErrCampaignClosed
	ErrCampaignExpired
	ErrAlreadyWithdrawn
	ErrAlreadyCancelled
	ErrTargetNotReached
	ErrRefundNotEligible
	ErrNothingToRefund
	ErrOverflow
	ErrWithdrawalPending
)

// 定义外部资金划转错误码 (6000-6999)
const (
	ErrTransferFailed ErrorCode = 6000 + iota
)

// AppError 定义应用错误结构
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, errors.New(ErrNotOwner, "")) 成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf 获取错误码，非 AppError 返回 ErrInternal
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, &AppError{Code: code})
}

// IsRetryable 只有外部划转失败可以整体重试
func IsRetryable(err error) bool {
	return HasCode(err, ErrTransferFailed)
}

var codeNames = map[ErrorCode]string{
	ErrInternal:          "Internal",
	ErrDatabase:          "Database",
	ErrStorage:           "Storage",
	ErrTimeout:           "Timeout",
	ErrUnauthorized:      "Unauthorized",
	ErrForbidden:         "Forbidden",
	ErrInvalidToken:      "InvalidToken",
	ErrNotOwner:          "NotOwner",
	ErrBadRequest:        "BadRequest",
	ErrInvalidInput:      "InvalidInput",
	ErrInvalidTarget:     "InvalidTarget",
	ErrInvalidDeadline:   "InvalidDeadline",
	ErrInvalidAmount:     "InvalidAmount",
	ErrResourceConflict:  "ResourceConflict",
	ErrCampaignNotFound:  "CampaignNotFound",
	ErrCampaignCancelled: "CampaignCancelled",
	ErrCampaignClosed:    "CampaignClosed",
	ErrCampaignExpired:   "CampaignExpired",
	ErrAlreadyWithdrawn:  "AlreadyWithdrawn",
	ErrAlreadyCancelled:  "AlreadyCancelled",
	ErrTargetNotReached:  "TargetNotReached",
	ErrRefundNotEligible: "RefundNotEligible",
	ErrNothingToRefund:   "NothingToRefund",
	ErrOverflow:          "Overflow",
	ErrWithdrawalPending: "WithdrawalPending",
	ErrTransferFailed:    "TransferFailed",
}

// String 返回错误种类名称
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}
