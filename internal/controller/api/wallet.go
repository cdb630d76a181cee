package api

import (
	"errors"
	"strconv"
	"strings"

	helper "roulette-server/internal/common/helper"
	"roulette-server/internal/common/response"
	"roulette-server/internal/ledger"
	"roulette-server/internal/service"
	"roulette-server/internal/store"

	beego "github.com/beego/beego/v2/server/web"
)

var newWalletService = service.NewWalletService

type WalletController struct{ beego.Controller }

// playerParam 从查询串提取并校验 player 参数（链上出资地址）
func (c *WalletController) playerParam() (string, bool) {
	player := strings.TrimSpace(c.Ctx.Input.Query("player"))
	if player == "" || !helper.IsEthAddressFormat(player) {
		response.BadRequest(&c.Controller, "player must be a 0x-prefixed 40 hex address", helper.GetTraceID(c.Ctx))
		return "", false
	}
	return player, true
}

// limitParam 解析 limit 参数，越界时回落默认值
func (c *WalletController) limitParam() int {
	limit := 50
	if ls := strings.TrimSpace(c.Ctx.Input.Query("limit")); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit
}

// Balance 查询玩家余额：GET /api/wallet/balance?player=...
func (c *WalletController) Balance() {
	player, ok := c.playerParam()
	if !ok {
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	bal, err := newWalletService().GetBalance(c.Ctx.Request.Context(), player)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"player":  player,
		"balance": bal,
	}, traceID)
}

// Transactions 查询已结算存款：GET /api/wallet/transactions?player=...&limit=...
// player 缺省时返回全量快照（新→旧，limit 截断）
func (c *WalletController) Transactions() {
	traceID := helper.GetTraceID(c.Ctx)

	player := strings.TrimSpace(c.Ctx.Input.Query("player"))
	if player != "" && !helper.IsEthAddressFormat(player) {
		response.BadRequest(&c.Controller, "player must be a 0x-prefixed 40 hex address", traceID)
		return
	}

	list, err := newWalletService().ListTransactions(c.Ctx.Request.Context(), player, c.limitParam())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	items := make([]map[string]interface{}, 0, len(list))
	for _, t := range list {
		items = append(items, map[string]interface{}{
			"tx_hash":    t.TxHash,
			"depositor":  t.Depositor,
			"amount":     t.Amount,
			"created_at": t.CreatedAt,
		})
	}

	response.Success(&c.Controller, map[string]interface{}{
		"player":       player,
		"transactions": items,
	}, traceID)
}

// Ledger 查询玩家账本流水：GET /api/wallet/ledger?player=...&limit=...
func (c *WalletController) Ledger() {
	player, ok := c.playerParam()
	if !ok {
		return
	}
	traceID := helper.GetTraceID(c.Ctx)

	list, err := newWalletService().ListLedger(c.Ctx.Request.Context(), player, c.limitParam())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	items := make([]map[string]interface{}, 0, len(list))
	for _, l := range list {
		items = append(items, map[string]interface{}{
			"biz_type":      l.BizTypeStr,
			"amount":        l.Amount,
			"before_amount": l.BeforeAmount,
			"after_amount":  l.AfterAmount,
			"tx_hash":       l.TxHash,
			"spin_result":   l.SpinResult,
			"remark":        l.Remark,
			"created_at":    l.CreatedAt,
		})
	}

	response.Success(&c.Controller, map[string]interface{}{
		"player": player,
		"ledger": items,
	}, traceID)
}

// DepositAddress 查询本服务存款地址：GET /api/wallet/deposit_address
// 地址由服务自身 principal 派生，所有玩家共用，靠回执 from 区分出资方
func (c *WalletController) DepositAddress() {
	traceID := helper.GetTraceID(c.Ctx)

	addr, err := newWalletService().DepositAddress(c.Ctx.Request.Context())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"deposit_address": addr,
	}, traceID)
}

// Withdraw 玩家提现：POST /api/wallet/withdraw
func (c *WalletController) Withdraw() {
	wp, ok, msg := helper.ParseAndValidateWithdraw(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	out, err := newWalletService().Withdraw(c.Ctx.Request.Context(), service.WithdrawInput{
		Player:    wp.Player,
		Recipient: wp.Recipient,
		Amount:    wp.Amount,
		TraceID:   traceID,
	})
	if err != nil {
		// 余额不足
		if errors.Is(err, store.ErrInsufficientBalance) || errors.Is(err, ledger.ErrInsufficientFunds) {
			response.Conflict(&c.Controller, response.CodeInsufficientBalance, traceID)
			return
		}
		// 金额低于账本手续费
		if errors.Is(err, ledger.ErrAmountTooLow) {
			response.BadRequest(&c.Controller, response.ErrorMessages[response.CodeAmountTooLow], traceID)
			return
		}
		// 账本暂不可用（可重试）
		if errors.Is(err, ledger.ErrTemporarilyUnavailable) {
			response.ServiceUnavailable(&c.Controller, response.CodeWithdrawalUnavailable, traceID)
			return
		}
		// 入参类错误
		if errors.Is(err, service.ErrInvalidAmount) || errors.Is(err, service.ErrInvalidPlayer) {
			response.BadRequest(&c.Controller, err.Error(), traceID)
			return
		}
		// 系统错误
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, out, traceID)
}
