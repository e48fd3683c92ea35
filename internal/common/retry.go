package common

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"
)

// IsTemporary 判断是否为临时性错误
func IsTemporary(err error) bool {
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}

// IsRetryable 判断是否可重试
func IsRetryable(err error) bool {
	return IsTemporary(err) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

// TemporaryError 把错误标记为临时性错误
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string   { return e.Err.Error() }
func (e *TemporaryError) Unwrap() error   { return e.Err }
func (e *TemporaryError) Temporary() bool { return true }

// WithRetry 通用重试机制，第 i 次失败后等待 (i+1)*delay
func WithRetry(ctx context.Context, operation func() error, maxRetries int, delay time.Duration) error {
	return WithRetryIf(ctx, operation, IsRetryable, maxRetries, delay)
}

// WithRetryIf 同 WithRetry，由调用方决定哪些错误可重试
func WithRetryIf(ctx context.Context, operation func() error, retryable func(error) bool, maxRetries int, delay time.Duration) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if !retryable(err) || i == maxRetries-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay * time.Duration(i+1)):
		}
	}
	return err
}
