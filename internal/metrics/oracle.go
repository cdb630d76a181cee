package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	oracleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Total chain oracle receipt lookups by result",
		},
		[]string{"result"},
	)

	oracleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_ms",
			Help:    "Chain oracle receipt lookup duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordOracle 记录链上回执查询的业务指标
// result: "hit" | "unavailable" | "error"
func RecordOracle(result string, started time.Time) {
	oracleTotal.WithLabelValues(result).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	oracleDuration.WithLabelValues(result).Observe(durMs)
}
