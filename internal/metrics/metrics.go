// Package metrics 暴露账本操作的 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campaign_ledger"

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Ledger operations by name and result kind.",
	}, []string{"operation", "result"})

	httpErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_errors_total",
		Help:      "Errors returned by the HTTP API by kind.",
	}, []string{"kind"})

	expiredUnfunded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "expired_unfunded_campaigns",
		Help:      "Campaigns past their deadline without reaching the target.",
	})
)

// ObserveOperation 记录一次账本操作，result 为 "ok" 或错误种类
func ObserveOperation(operation, result string) {
	operations.WithLabelValues(operation, result).Inc()
}

// ObserveHTTPError 记录一次接口错误
func ObserveHTTPError(kind string) {
	httpErrors.WithLabelValues(kind).Inc()
}

// SetExpiredUnfunded 更新已过期未达标活动数量
func SetExpiredUnfunded(n int) {
	expiredUnfunded.Set(float64(n))
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
