package store

import (
	"context"
	"sync"
	"time"

	"roulette-server/internal/model"

	"github.com/shopspring/decimal"
)

// memoryStore 纯内存实现，仅供单元测试注入使用
// 语义与 mysqlStore 对齐：哈希占位、余额永不为负、整笔结算原子生效
type memoryStore struct {
	mu        sync.Mutex
	processed map[string]model.Transaction
	balances  map[string]decimal.Decimal
	ledger    map[string][]model.WalletLedger
	nextID    int64
}

// NewMemory 创建内存结算存储
func NewMemory() Store {
	return &memoryStore{
		processed: make(map[string]model.Transaction),
		balances:  make(map[string]decimal.Decimal),
		ledger:    make(map[string][]model.WalletLedger),
	}
}

func (m *memoryStore) HasProcessed(ctx context.Context, txHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[txHash]
	return ok, nil
}

func (m *memoryStore) GetBalance(ctx context.Context, player string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[player]; ok {
		return b, nil
	}
	return decimal.Zero, nil
}

func (m *memoryStore) ListTransactions(ctx context.Context, player string, limit int) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// player 为空时返回全量快照
	var list []model.Transaction
	for _, t := range m.processed {
		if player == "" || t.Player == player {
			list = append(list, t)
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *memoryStore) ListLedger(ctx context.Context, player string, limit int) ([]model.WalletLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.ledger[player]
	out := make([]model.WalletLedger, 0, len(rows))
	// 新→旧
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) ApplySettlement(ctx context.Context, s *Settlement) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.processed[s.TxHash]; ok {
		return decimal.Zero, ErrAlreadyProcessed
	}

	before := m.balances[s.Player]
	afterDeposit := before.Add(s.Amount)
	after := afterDeposit.Add(s.Delta)
	if after.IsNegative() {
		return decimal.Zero, ErrInsufficientBalance
	}

	m.nextID++
	m.processed[s.TxHash] = model.Transaction{
		ID:        m.nextID,
		TxHash:    s.TxHash,
		Depositor: s.Depositor,
		Player:    s.Player,
		Amount:    s.Amount.String(),
		TraceID:   s.TraceID,
		CreatedAt: time.Now().UnixMilli(),
	}
	m.balances[s.Player] = after

	bizType := "loss"
	if s.Won {
		bizType = "payout"
	}
	m.ledger[s.Player] = append(m.ledger[s.Player],
		model.WalletLedger{
			Player:       s.Player,
			BizTypeStr:   "deposit",
			Amount:       s.Amount.String(),
			BeforeAmount: before.String(),
			AfterAmount:  afterDeposit.String(),
			TxHash:       s.TxHash,
			SpinResult:   s.SpinResult,
			TraceID:      s.TraceID,
		},
		model.WalletLedger{
			Player:       s.Player,
			BizTypeStr:   bizType,
			Amount:       s.Delta.Abs().String(),
			BeforeAmount: afterDeposit.String(),
			AfterAmount:  after.String(),
			TxHash:       s.TxHash,
			SpinResult:   s.SpinResult,
			TraceID:      s.TraceID,
		})

	return after, nil
}

func (m *memoryStore) Adjust(ctx context.Context, player string, delta decimal.Decimal, bizType, remark, traceID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.balances[player]
	after := before.Add(delta)
	if after.IsNegative() {
		return decimal.Zero, ErrInsufficientBalance
	}
	m.balances[player] = after
	m.ledger[player] = append(m.ledger[player], model.WalletLedger{
		Player:       player,
		BizTypeStr:   bizType,
		Amount:       delta.Abs().String(),
		BeforeAmount: before.String(),
		AfterAmount:  after.String(),
		Remark:       remark,
		TraceID:      traceID,
	})
	return after, nil
}
