package metrics

import (
	"strconv"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by path, method and status",
		},
		[]string{"path", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"path", "method"},
	)
)

const startKey = "_metrics_start"

// HTTPMetricsFilter 在请求进入时记录起始时间
func HTTPMetricsFilter(ctx *context.Context) {
	ctx.Input.SetData(startKey, time.Now())
}

// HTTPMetricsAfter 在响应完成后上报耗时与状态码
// path 用注册路由而非原始 URL，避免 query 导致标签爆炸
func HTTPMetricsAfter(ctx *context.Context) {
	start, _ := ctx.Input.GetData(startKey).(time.Time)
	if start.IsZero() {
		return
	}
	path := ctx.Input.URL()
	method := ctx.Input.Method()
	status := strconv.Itoa(ctx.ResponseWriter.Status)
	httpReqDuration.WithLabelValues(path, method).Observe(float64(time.Since(start).Milliseconds()))
	httpReqTotal.WithLabelValues(path, method, status).Inc()
}
