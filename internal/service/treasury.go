package service

import (
	"context"
	"fmt"
	"strings"

	chelper "roulette-server/common/helper"
	"roulette-server/internal/config"
	"roulette-server/internal/ledger"

	decimal "github.com/shopspring/decimal"
)

// TreasuryService 管理端资金操作：查询金库余额、划转、授权、提现
// 所有操作直接打到账本服务，不经过玩家内部余额
type TreasuryService interface {
	Balance(ctx context.Context) (string, error)
	Transfer(ctx context.Context, in TreasuryTransferInput) (uint64, error)
	Approve(ctx context.Context, in TreasuryApproveInput) (uint64, error)
	Withdraw(ctx context.Context, in TreasuryWithdrawInput) (uint64, error)
}

type TreasuryTransferInput struct {
	To      string
	Amount  string
	TraceID string
}

type TreasuryApproveInput struct {
	Spender string
	Amount  string
	TraceID string
}

type TreasuryWithdrawInput struct {
	To      string // 链上收款地址
	Amount  string
	TraceID string
}

type treasuryService struct {
	ledger    ledger.Client
	principal string // 本服务在账本上的账户
}

// NewTreasuryService 生产构造
func NewTreasuryService() TreasuryService {
	cfg := config.GetCurrent()
	baseURL := ""
	principal := ""
	if cfg != nil {
		baseURL = cfg.Ledger.ServiceURL
		principal = cfg.Chain.CanisterPrincipal
	}
	return &treasuryService{
		ledger:    ledger.New(baseURL, config.LedgerPrincipal(), config.MinterPrincipal()),
		principal: principal,
	}
}

// NewTreasuryServiceWith 测试构造
func NewTreasuryServiceWith(lc ledger.Client, principal string) TreasuryService {
	return &treasuryService{ledger: lc, principal: principal}
}

func (s *treasuryService) Balance(ctx context.Context) (string, error) {
	bal, err := s.ledger.BalanceOf(ctx, s.principal)
	if err != nil {
		return "", err
	}
	return chelper.TrimDecimal(bal), nil
}

func (s *treasuryService) Transfer(ctx context.Context, in TreasuryTransferInput) (uint64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() || amount.Exponent() < 0 {
		return 0, ErrInvalidAmount
	}
	to := strings.TrimSpace(in.To)
	if to == "" {
		return 0, ErrInvalidPlayer
	}

	fmt.Printf("[Treasury]  划转请求: to=%s, amount=%s, trace_id=%s\n", to, amount.String(), in.TraceID)
	return s.ledger.Transfer(ctx, to, amount)
}

func (s *treasuryService) Approve(ctx context.Context, in TreasuryApproveInput) (uint64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() || amount.Exponent() < 0 {
		return 0, ErrInvalidAmount
	}
	spender := strings.TrimSpace(in.Spender)
	if spender == "" {
		return 0, ErrInvalidPlayer
	}

	fmt.Printf("[Treasury]  授权请求: spender=%s, amount=%s, trace_id=%s\n", spender, amount.String(), in.TraceID)
	return s.ledger.Approve(ctx, spender, amount)
}

// Withdraw 金库提现：经 minter 出金到链上地址，不动玩家内部余额
func (s *treasuryService) Withdraw(ctx context.Context, in TreasuryWithdrawInput) (uint64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil || !amount.IsPositive() || amount.Exponent() < 0 {
		return 0, ErrInvalidAmount
	}
	to := strings.TrimSpace(in.To)
	if to == "" {
		return 0, ErrInvalidPlayer
	}

	fmt.Printf("[Treasury]  提现请求: to=%s, amount=%s, trace_id=%s\n", to, amount.String(), in.TraceID)
	return s.ledger.Withdraw(ctx, to, amount)
}
