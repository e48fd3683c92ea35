package errors

import (
	stderrors "errors"
	"time"
)

// TracedError 带请求上下文的错误
type TracedError struct {
	*AppError
	Timestamp time.Time
	Context   ErrorContext
}

// ErrorContext 错误上下文信息
type ErrorContext struct {
	RequestID string
	Caller    string
	Path      string
	Method    string
}

// NewTracedError 创建带追踪信息的错误，非 AppError 归为 ErrInternal
func NewTracedError(err error, ctx ErrorContext) *TracedError {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = &AppError{
			Code:    ErrInternal,
			Message: err.Error(),
			Err:     err,
		}
	}

	return &TracedError{
		AppError:  appErr,
		Timestamp: time.Now(),
		Context:   ctx,
	}
}
