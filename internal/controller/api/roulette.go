package api

import (
	"errors"

	"roulette-server/common/logger"
	"roulette-server/internal/chain"
	"roulette-server/internal/config"
	helper "roulette-server/internal/common/helper"
	"roulette-server/internal/common/response"
	"roulette-server/internal/service"
	"roulette-server/internal/store"

	beego "github.com/beego/beego/v2/server/web"
)

var newSettleService = service.NewSettleService

type SettleController struct{ beego.Controller }

// 结算请求参数
type SettleRequestParam struct {
	TxHash   string `json:"tx_hash"`   // 链上存款交易哈希
	Player   string `json:"player"`    // 玩家链上出资地址（0x + 40 位十六进制）
	BetKind  string `json:"bet_kind"`  // number|color|evenodd
	BetValue string `json:"bet_value"` // 号码 / red|black|green / even|odd
	/*
		幂等约定：交易哈希本身就是幂等键。
		- 同一笔存款的所有重试请传相同 tx_hash；
		- 服务端幂等保证（多层防护）：
		  1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
		  2) MySQL 唯一键：事务内先插入 transactions(tx_hash)，重复哈希整笔回滚并返回 409；
		  3) 结果缓存：首次成功结果短期缓存于 Redis，后续重复请求快速拒绝。
		错误语义：
		- 并发重复（正在处理）：HTTP 202
		- 历史重复（已处理完）：HTTP 409 + code=2002，不再重复入账。
	*/
}

// Settle 处理结算接口：POST /api/roulette/settle
func (c *SettleController) Settle() {
	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	sp, ok, msg := helper.ParseAndValidateSettle(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	// 维护开关：暂停结算入口（已受理的不受影响）
	if config.GetFeatureFlag("settle_paused") {
		response.ErrorWithMessage(&c.Controller, 503, response.CodeBusinessError, "结算服务维护中，请稍后重试", traceID)
		return
	}

	svc := newSettleService()

	// trace_id 注入 context，下游 logger.XxxCtx 自动携带
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)

	// 进行结算业务逻辑处理
	out, err := svc.Settle(ctx, service.SettleInput{
		TxHash:   sp.TxHash,
		Player:   sp.Player,
		BetKind:  sp.BetKind,
		BetValue: sp.BetValue,
		TraceID:  traceID,
	})
	if err != nil {
		// 重复请求进行中
		if errors.Is(err, service.ErrDuplicateInFlight) {
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
			return
		}
		// 交易已结算过
		if errors.Is(err, store.ErrAlreadyProcessed) {
			response.Conflict(&c.Controller, response.CodeAlreadyProcessed, traceID)
			return
		}
		// 回执暂不可得（可重试）
		if errors.Is(err, chain.ErrReceiptUnavailable) {
			response.ServiceUnavailable(&c.Controller, response.CodeReceiptUnavailable, traceID)
			return
		}
		// 链上交易执行失败
		if errors.Is(err, chain.ErrTransactionFailed) {
			response.Conflict(&c.Controller, response.CodeTransactionFailed, traceID)
			return
		}
		// 收款方不是铸币账户
		if errors.Is(err, chain.ErrWrongRecipient) {
			response.Conflict(&c.Controller, response.CodeWrongRecipient, traceID)
			return
		}
		// 回执日志未命中本服务存款地址
		if errors.Is(err, chain.ErrPrincipalNotFound) {
			response.Conflict(&c.Controller, response.CodePrincipalNotFound, traceID)
			return
		}
		// 出资方与声称的玩家不符
		if errors.Is(err, service.ErrPlayerMismatch) {
			response.Conflict(&c.Controller, response.CodePlayerMismatch, traceID)
			return
		}
		// 余额不足
		if errors.Is(err, store.ErrInsufficientBalance) {
			response.Conflict(&c.Controller, response.CodeInsufficientBalance, traceID)
			return
		}
		// 入参类错误
		if errors.Is(err, service.ErrInvalidTxHash) ||
			errors.Is(err, service.ErrInvalidPlayer) ||
			errors.Is(err, service.ErrInvalidBet) ||
			errors.Is(err, chain.ErrAmountParse) {
			response.BadRequest(&c.Controller, err.Error(), traceID)
			return
		}
		// 系统错误
		response.InternalError(&c.Controller, traceID)
		return
	}

	// 成功响应
	response.Success(&c.Controller, out, traceID)
}
