package logger

import (
	"context"
)

// trace_id 贯穿一次结算请求：中间件生成 → controller 注入 context →
// service/store 通过 XxxCtx 系列自动带出，排查某笔 tx_hash 时按此串联日志。
type traceKey struct{}

// 将 traceId 注入到 context 中
func WithTraceID(ctx context.Context, traceId string) context.Context {
	if traceId == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, traceId)
}

// 从 context 中获取 traceId，取不到返回空串
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(traceKey{}).(string)
	return v
}
