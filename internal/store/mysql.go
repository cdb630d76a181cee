package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"roulette-server/common/logger"
	"roulette-server/internal/game"
	"roulette-server/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 事务超时：避免行锁被长时间持有
const defaultTxTimeout = 3 * time.Second

// mysqlStore 基于 MySQL 的结算存储实现
// 幂等性由 transactions.tx_hash 唯一键保证：占位插入先于任何余额变更，
// 事务回滚时占位一并释放，哈希可以重试
type mysqlStore struct {
	db          *sqlx.DB
	topicSettle string
}

// NewMySQL 创建 MySQL 结算存储
func NewMySQL(db *sqlx.DB, topicSettle string) Store {
	return &mysqlStore{db: db, topicSettle: topicSettle}
}

func (m *mysqlStore) HasProcessed(ctx context.Context, txHash string) (bool, error) {
	return model.TxHashProcessed(ctx, m.db, txHash)
}

func (m *mysqlStore) GetBalance(ctx context.Context, player string) (decimal.Decimal, error) {
	b, err := model.GetBalanceByPlayer(ctx, m.db, player)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(b.Amount)
	if err != nil {
		logger.ErrorCtx(ctx, "balance amount malformed in db",
			zap.String("player", player),
			zap.String("amount", b.Amount),
			zap.Error(err))
		return decimal.Zero, err
	}
	return amount, nil
}

func (m *mysqlStore) ListTransactions(ctx context.Context, player string, limit int) ([]model.Transaction, error) {
	if player == "" {
		return model.ListRecentTransactions(ctx, m.db, limit)
	}
	return model.ListTransactionsByPlayer(ctx, m.db, player, limit)
}

func (m *mysqlStore) ListLedger(ctx context.Context, player string, limit int) ([]model.WalletLedger, error) {
	return model.ListLedgerByPlayer(ctx, m.db, player, limit)
}

func (m *mysqlStore) ApplySettlement(ctx context.Context, s *Settlement) (decimal.Decimal, error) {
	txCtx, cancel := context.WithTimeout(ctx, defaultTxTimeout)
	defer cancel()

	tx, err := m.db.BeginTxx(txCtx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. 哈希占位：先于余额变更插入，重复哈希在此处被唯一键拦下
	rec := &model.Transaction{
		TxHash:    s.TxHash,
		Depositor: s.Depositor,
		Player:    s.Player,
		Amount:    s.Amount.String(),
		TraceID:   s.TraceID,
	}
	if err := rec.Insert(txCtx, tx); err != nil {
		if model.IsMySQLDuplicateKeyError(err) {
			return decimal.Zero, ErrAlreadyProcessed
		}
		return decimal.Zero, err
	}

	// 2. 加锁读取（或创建）玩家余额行
	bal, err := model.GetOrCreateBalance(txCtx, tx, s.Player)
	if err != nil {
		return decimal.Zero, err
	}
	if bal.Status != 1 {
		return decimal.Zero, ErrPlayerDisabled
	}
	before, err := decimal.NewFromString(bal.Amount)
	if err != nil {
		logger.ErrorCtx(txCtx, "balance amount malformed in db",
			zap.String("player", s.Player),
			zap.String("amount", bal.Amount))
		return decimal.Zero, err
	}

	// 3. 存款本金入账
	afterDeposit := before.Add(s.Amount)
	depositRow := &model.WalletLedger{
		Player:       s.Player,
		BizTypeStr:   "deposit",
		Amount:       s.Amount.String(),
		BeforeAmount: before.String(),
		AfterAmount:  afterDeposit.String(),
		TxHash:       s.TxHash,
		BetKind:      string(s.Bet.Kind),
		BetValue:     betValue(s.Bet),
		SpinResult:   s.SpinResult,
		Remark:       "deposit credit",
		TraceID:      s.TraceID,
	}
	if err := depositRow.Insert(txCtx, tx); err != nil {
		return decimal.Zero, err
	}

	// 4. 押注结算
	after := afterDeposit.Add(s.Delta)
	if after.IsNegative() {
		// 余额永不为负：整笔回滚，占位随之释放
		return decimal.Zero, ErrInsufficientBalance
	}
	bizType := "loss"
	remark := "bet lost, stake debited"
	if s.Won {
		bizType = "payout"
		remark = "bet won"
	}
	betRow := &model.WalletLedger{
		Player:       s.Player,
		BizTypeStr:   bizType,
		Amount:       s.Delta.Abs().String(),
		BeforeAmount: afterDeposit.String(),
		AfterAmount:  after.String(),
		TxHash:       s.TxHash,
		BetKind:      string(s.Bet.Kind),
		BetValue:     betValue(s.Bet),
		SpinResult:   s.SpinResult,
		Remark:       remark,
		TraceID:      s.TraceID,
	}
	if err := betRow.Insert(txCtx, tx); err != nil {
		return decimal.Zero, err
	}

	// 5. 更新余额
	if err := model.UpdateBalanceAmount(txCtx, tx, bal.ID, after.String()); err != nil {
		return decimal.Zero, err
	}

	// 6. 结算审计（tx_hash 唯一，重复结算的兜底）
	won := int8(0)
	if s.Won {
		won = 1
	}
	slog := &model.SettlementLog{
		TxHash:     s.TxHash,
		Player:     s.Player,
		BetKind:    string(s.Bet.Kind),
		BetValue:   betValue(s.Bet),
		SpinResult: s.SpinResult,
		Won:        won,
		Delta:      s.Delta.String(),
		NewBalance: after.String(),
		TraceID:    s.TraceID,
	}
	if err := model.CreateSettlementLog(txCtx, tx, slog); err != nil {
		if model.IsMySQLDuplicateKeyError(err) {
			return decimal.Zero, ErrAlreadyProcessed
		}
		return decimal.Zero, err
	}

	// 7. 事务消息：结算结果经 outbox 异步投递
	if m.topicSettle != "" {
		payload := map[string]interface{}{
			"tx_hash":     s.TxHash,
			"player":      s.Player,
			"bet":         s.Bet.String(),
			"spin_result": s.SpinResult,
			"won":         s.Won,
			"delta":       s.Delta.String(),
			"new_balance": after.String(),
			"trace_id":    s.TraceID,
		}
		if err := model.CreateOutbox(txCtx, tx, m.topicSettle, s.TxHash, payload); err != nil {
			return decimal.Zero, err
		}
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}

	return after, nil
}

func (m *mysqlStore) Adjust(ctx context.Context, player string, delta decimal.Decimal, bizType, remark, traceID string) (decimal.Decimal, error) {
	txCtx, cancel := context.WithTimeout(ctx, defaultTxTimeout)
	defer cancel()

	tx, err := m.db.BeginTxx(txCtx, nil)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	bal, err := model.GetOrCreateBalance(txCtx, tx, player)
	if err != nil {
		return decimal.Zero, err
	}
	if bal.Status != 1 {
		return decimal.Zero, ErrPlayerDisabled
	}
	before, err := decimal.NewFromString(bal.Amount)
	if err != nil {
		return decimal.Zero, err
	}

	after := before.Add(delta)
	if after.IsNegative() {
		return decimal.Zero, ErrInsufficientBalance
	}

	row := &model.WalletLedger{
		Player:       player,
		BizTypeStr:   bizType,
		Amount:       delta.Abs().String(),
		BeforeAmount: before.String(),
		AfterAmount:  after.String(),
		Remark:       remark,
		TraceID:      traceID,
	}
	if err := row.Insert(txCtx, tx); err != nil {
		return decimal.Zero, err
	}

	if err := model.UpdateBalanceAmount(txCtx, tx, bal.ID, after.String()); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, err
	}

	return after, nil
}

// betValue 下注值的落库形式：号码转十进制字符串，其余玩法存选项
func betValue(b game.Bet) string {
	if b.Kind == game.BetNumber {
		return strconv.Itoa(b.Number)
	}
	return b.Choice
}
