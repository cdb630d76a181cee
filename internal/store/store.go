package store

import (
	"context"

	"roulette-server/internal/game"
	"roulette-server/internal/model"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// 存储层终态错误
var (
	// ErrAlreadyProcessed 该交易哈希已结算过（唯一键冲突）
	ErrAlreadyProcessed = errors.New("transaction already processed")
	// ErrInsufficientBalance 扣款会使余额为负，整笔结算回滚
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrPlayerDisabled 玩家被禁用
	ErrPlayerDisabled = errors.New("player disabled")
)

// Settlement 一次完整结算需要原子落库的全部事实
// Amount 为回执核验出的存款本金；Delta 为押注判定后的净变动
// （中奖 = 本金×净赔率，未中 = -本金）
type Settlement struct {
	TxHash     string
	Player     string
	Depositor  string
	Amount     decimal.Decimal
	Bet        game.Bet
	SpinResult int
	Won        bool
	Delta      decimal.Decimal
	TraceID    string
}

// Store 结算存储接口，可注入以便测试
// ApplySettlement 必须保证：哈希占位、本金入账、押注结算、账本与审计
// 全部在同一事务内生效或全部回滚
type Store interface {
	// HasProcessed 查询某个哈希是否已结算（快速路径，允许轻微滞后）
	HasProcessed(ctx context.Context, txHash string) (bool, error)
	// GetBalance 查询玩家当前余额（wei），不存在视为 0
	GetBalance(ctx context.Context, player string) (decimal.Decimal, error)
	// ListTransactions 查询玩家已结算的存款交易（新→旧），player 为空时返回全量快照
	ListTransactions(ctx context.Context, player string, limit int) ([]model.Transaction, error)
	// ListLedger 查询玩家账本流水（新→旧）
	ListLedger(ctx context.Context, player string, limit int) ([]model.WalletLedger, error)
	// ApplySettlement 原子落账一次结算，返回结算后余额
	// 重复哈希返回 ErrAlreadyProcessed，余额会变负返回 ErrInsufficientBalance
	ApplySettlement(ctx context.Context, s *Settlement) (decimal.Decimal, error)
	// Adjust 对玩家余额做一次带账本的净变动（提现扣款、后台调整）
	// delta 为负时不足额返回 ErrInsufficientBalance
	Adjust(ctx context.Context, player string, delta decimal.Decimal, bizType, remark, traceID string) (decimal.Decimal, error)
}
