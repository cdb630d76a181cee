package api

import (
	"errors"

	helper "roulette-server/internal/common/helper"
	"roulette-server/internal/common/response"
	"roulette-server/internal/ledger"
	"roulette-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newTreasuryService = service.NewTreasuryService

// TreasuryController 管理端金库操作（受 AdminAuthFilter 保护）
type TreasuryController struct{ beego.Controller }

// Balance 查询金库余额：GET /api/treasury/balance
func (c *TreasuryController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)

	bal, err := newTreasuryService().Balance(c.Ctx.Request.Context())
	if err != nil {
		if errors.Is(err, ledger.ErrTemporarilyUnavailable) {
			response.ServiceUnavailable(&c.Controller, response.CodeWithdrawalUnavailable, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"balance": bal,
	}, traceID)
}

// Transfer 金库划转：POST /api/treasury/transfer
func (c *TreasuryController) Transfer() {
	tp, ok, msg := helper.ParseAndValidateTreasuryOp(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	if tp.To == "" {
		response.BadRequest(&c.Controller, "to required", traceID)
		return
	}

	blockIndex, err := newTreasuryService().Transfer(c.Ctx.Request.Context(), service.TreasuryTransferInput{
		To:      tp.To,
		Amount:  tp.Amount,
		TraceID: traceID,
	})
	if err != nil {
		c.writeLedgerError(err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"block_index": blockIndex,
	}, traceID)
}

// Approve 金库授权：POST /api/treasury/approve
func (c *TreasuryController) Approve() {
	tp, ok, msg := helper.ParseAndValidateTreasuryOp(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	if tp.Spender == "" {
		response.BadRequest(&c.Controller, "spender required", traceID)
		return
	}

	blockIndex, err := newTreasuryService().Approve(c.Ctx.Request.Context(), service.TreasuryApproveInput{
		Spender: tp.Spender,
		Amount:  tp.Amount,
		TraceID: traceID,
	})
	if err != nil {
		c.writeLedgerError(err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"block_index": blockIndex,
	}, traceID)
}

// Withdraw 金库提现：POST /api/treasury/withdraw
func (c *TreasuryController) Withdraw() {
	tp, ok, msg := helper.ParseAndValidateTreasuryWithdraw(c.Ctx)
	traceID := helper.GetTraceID(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	blockIndex, err := newTreasuryService().Withdraw(c.Ctx.Request.Context(), service.TreasuryWithdrawInput{
		To:      tp.To,
		Amount:  tp.Amount,
		TraceID: traceID,
	})
	if err != nil {
		c.writeLedgerError(err, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"block_index": blockIndex,
	}, traceID)
}

// writeLedgerError 统一映射账本错误到响应
func (c *TreasuryController) writeLedgerError(err error, traceID string) {
	switch {
	case errors.Is(err, ledger.ErrAmountTooLow):
		response.BadRequest(&c.Controller, response.ErrorMessages[response.CodeAmountTooLow], traceID)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.Conflict(&c.Controller, response.CodeInsufficientBalance, traceID)
	case errors.Is(err, ledger.ErrInsufficientAllowance):
		response.Conflict(&c.Controller, response.CodeInsufficientBalance, traceID)
	case errors.Is(err, ledger.ErrTemporarilyUnavailable):
		response.ServiceUnavailable(&c.Controller, response.CodeWithdrawalUnavailable, traceID)
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidPlayer):
		response.BadRequest(&c.Controller, err.Error(), traceID)
	default:
		response.InternalError(&c.Controller, traceID)
	}
}
