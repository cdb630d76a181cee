package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_requests_total",
			Help: "Total settle requests by result and bet_kind",
		},
		[]string{"result", "bet_kind"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_request_duration_ms",
			Help:    "Settle request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "bet_kind"},
	)
)

// RecordSettle records business metrics for a settle call.
// result should be "success" or "fail"; betKind is normalized to lower-case.
func RecordSettle(result, betKind string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	bk := strings.ToLower(strings.TrimSpace(betKind))
	if bk == "" {
		bk = "unknown"
	}
	settleTotal.WithLabelValues(res, bk).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	settleDuration.WithLabelValues(res, bk).Observe(durMs)
}
