package middleware

import (
	"strings"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

// RequestIDFilter 为每个请求确定一个 trace_id 并回写响应头
// 优先沿用上游网关的 X-Request-Id / X-Trace-ID，缺失或异常超长时本地生成
func RequestIDFilter(ctx *context.Context) {
	id := strings.TrimSpace(ctx.Input.Header("X-Request-Id"))
	if id == "" {
		id = strings.TrimSpace(ctx.Input.Header("X-Trace-ID"))
	}
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	ctx.Output.Header("X-Request-Id", id)
}
