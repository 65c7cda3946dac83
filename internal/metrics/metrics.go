package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "umlgen_requests_total",
			Help: "Diagram requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "umlgen_upstream_duration_seconds",
			Help:    "Latency of model provider calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)
)

// Register 注册所有指标
func Register(r prometheus.Registerer) {
	r.MustRegister(requestsTotal, upstreamDuration)
}

// RecordRequest outcome 为 "success" 或错误类型名
func RecordRequest(operation, outcome string) {
	requestsTotal.WithLabelValues(operation, outcome).Inc()
}

func ObserveUpstream(provider string, d time.Duration) {
	upstreamDuration.WithLabelValues(provider).Observe(d.Seconds())
}
