package errors

import (
	"sync"
	"time"
)

// ErrorStats 错误统计快照
type ErrorStats struct {
	TotalErrors   int            `json:"total_errors"`
	ErrorsByKind  map[string]int `json:"errors_by_kind"`
	ErrorsByPath  map[string]int `json:"errors_by_path"`
	LastErrorTime *time.Time     `json:"last_error,omitempty"`
}

// ErrorAnalytics 接口错误分析
type ErrorAnalytics struct {
	mu            sync.RWMutex
	totalErrors   int
	errorsByCode  map[ErrorCode]int
	errorsByPath  map[string]int
	lastErrorTime time.Time
}

// NewErrorAnalytics 创建错误分析器
func NewErrorAnalytics() *ErrorAnalytics {
	return &ErrorAnalytics{
		errorsByCode: make(map[ErrorCode]int),
		errorsByPath: make(map[string]int),
	}
}

// Record 记录错误
func (a *ErrorAnalytics) Record(err *TracedError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalErrors++
	a.errorsByCode[err.Code]++
	a.errorsByPath[err.Context.Method+" "+err.Context.Path]++
	a.lastErrorTime = err.Timestamp
}

// Count 返回某错误码出现次数
func (a *ErrorAnalytics) Count(code ErrorCode) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.errorsByCode[code]
}

// GetStats 获取统计信息
func (a *ErrorAnalytics) GetStats() ErrorStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := ErrorStats{
		TotalErrors:  a.totalErrors,
		ErrorsByKind: make(map[string]int, len(a.errorsByCode)),
		ErrorsByPath: make(map[string]int, len(a.errorsByPath)),
	}
	for code, n := range a.errorsByCode {
		stats.ErrorsByKind[code.String()] = n
	}
	for path, n := range a.errorsByPath {
		stats.ErrorsByPath[path] = n
	}
	if !a.lastErrorTime.IsZero() {
		t := a.lastErrorTime
		stats.LastErrorTime = &t
	}
	return stats
}
