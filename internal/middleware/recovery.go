package middleware

import (
	"time"

	"roulette-server/common/logger"
	"roulette-server/internal/common/helper"
	"roulette-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// RecoveryFilter Panic Recovery 中间件
// 单笔结算 panic 不能拖垮整个进程，事务未提交会随连接回滚
func RecoveryFilter(ctx *beegocontext.Context) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		traceID := helper.GetTraceID(ctx)

		logger.Error("panic recovered",
			zap.String("trace_id", traceID),
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Any("error", err),
			zap.Stack("stack"))

		ctx.Output.SetStatus(500)
		ctx.Output.JSON(response.APIResponse{
			Code:      response.CodeSystemError,
			Message:   "系统繁忙，请稍后重试",
			TraceID:   traceID,
			Timestamp: time.Now().Unix(),
		}, false, false)

		ctx.Abort(500, "panic recovered")
	}()
}
