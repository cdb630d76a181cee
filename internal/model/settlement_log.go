package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SettlementLog 结算日志表（按 tx_hash 唯一，防止重复结算的兜底审计）
type SettlementLog struct {
	ID         int64  `db:"id"`          // 自增ID
	TxHash     string `db:"tx_hash"`     // 链上交易哈希
	Player     string `db:"player"`      // 玩家链上地址
	BetKind    string `db:"bet_kind"`    // 玩法: number|color|evenodd
	BetValue   string `db:"bet_value"`   // 下注值
	SpinResult int    `db:"spin_result"` // 转盘结果 0..36
	Won        int8   `db:"won"`         // 是否中奖: 1=中 0=未中
	Delta      string `db:"delta"`       // 余额净变动（wei，可为负，十进制字符串）
	NewBalance string `db:"new_balance"` // 结算后余额（wei）
	TraceID    string `db:"trace_id"`    // 链路追踪ID
	CreatedAt  int64  `db:"created_at"`  // 创建时间（13位毫秒时间戳）
}

// CreateSettlementLog 创建结算日志（利用 tx_hash 唯一索引作为重复结算的兜底）
func CreateSettlementLog(ctx context.Context, exec sqlx.ExtContext, log *SettlementLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO settlement_log (tx_hash, player, bet_kind, bet_value, spin_result, won, delta, new_balance, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.TxHash, log.Player, log.BetKind, log.BetValue, log.SpinResult, log.Won, log.Delta, log.NewBalance, log.TraceID, log.CreatedAt)

	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id

	return nil
}

// GetSettlementLog 查询结算日志
func GetSettlementLog(ctx context.Context, db *sqlx.DB, txHash string) (*SettlementLog, error) {
	sqlStr := `SELECT id, tx_hash, player, bet_kind, bet_value, spin_result, won, CAST(delta AS CHAR) AS delta, CAST(new_balance AS CHAR) AS new_balance, trace_id, created_at
	           FROM settlement_log WHERE tx_hash = ? LIMIT 1`

	var log SettlementLog
	if err := db.GetContext(ctx, &log, sqlStr, txHash); err != nil {
		return nil, err
	}

	return &log, nil
}
