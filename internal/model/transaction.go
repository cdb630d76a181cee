package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Transaction 对应 transactions 表
// 每个链上存款哈希只允许结算一次（唯一键: tx_hash）
// 记录先于余额变更插入，作为本次结算的占位；事务回滚时占位一并释放
type Transaction struct {
	ID        int64  `db:"id"`
	TxHash    string `db:"tx_hash"`    // 链上交易哈希（小写 0x 开头）
	Depositor string `db:"depositor"`  // 回执 from，链上实际出资地址
	Player    string `db:"player"`     // 发起结算的玩家链上地址
	Amount    string `db:"amount"`     // 存款金额（wei，十进制字符串）
	TraceID   string `db:"trace_id"`   // 链路追踪ID
	CreatedAt int64  `db:"created_at"` // 创建时间（13位毫秒时间戳）
}

// Insert 插入一条交易占位记录，重复哈希将触发唯一键冲突
func (t *Transaction) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	t.CreatedAt = now

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO transactions (tx_hash, depositor, player, amount, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	args := []interface{}{t.TxHash, t.Depositor, t.Player, t.Amount, t.TraceID, now}

	result, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	t.ID = id
	return nil
}

// TxHashProcessed 判断某个交易哈希是否已被结算过（非锁查询，只作快速路径）
func TxHashProcessed(ctx context.Context, db *sqlx.DB, txHash string) (bool, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "SELECT COUNT(1) FROM transactions WHERE tx_hash = ?"
	var cnt int
	if err := db.GetContext(ctx, &cnt, sqlStr, txHash); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// GetTransactionByHash 按哈希查询交易记录
func GetTransactionByHash(ctx context.Context, db *sqlx.DB, txHash string) (*Transaction, error) {
	sqlStr := "SELECT id, tx_hash, depositor, player, amount, trace_id, created_at FROM transactions WHERE tx_hash = ? LIMIT 1"
	var t Transaction
	if err := db.GetContext(ctx, &t, sqlStr, txHash); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTransactionsByPlayer 按玩家查询已结算的交易（新→旧）
func ListTransactionsByPlayer(ctx context.Context, db *sqlx.DB, player string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sqlStr := "SELECT id, tx_hash, depositor, player, amount, trace_id, created_at FROM transactions WHERE player = ? ORDER BY id DESC LIMIT ?"
	var list []Transaction
	if err := db.SelectContext(ctx, &list, sqlStr, player, limit); err != nil {
		return nil, err
	}
	return list, nil
}

// ListRecentTransactions 全量已结算交易快照（新→旧，limit 截断）
func ListRecentTransactions(ctx context.Context, db *sqlx.DB, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sqlStr := "SELECT id, tx_hash, depositor, player, amount, trace_id, created_at FROM transactions ORDER BY id DESC LIMIT ?"
	var list []Transaction
	if err := db.SelectContext(ctx, &list, sqlStr, limit); err != nil {
		return nil, err
	}
	return list, nil
}
