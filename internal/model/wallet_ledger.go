package model

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// WalletLedger 对应 wallet_ledger 表（追加式账本）
// 说明：金额为非负 wei 字符串；方向由 before_amount/after_amount 与 biz_type 推导
// biz_type: 1=deposit 存款入账 2=payout 派彩 3=loss 输注扣款 4=withdraw 提现 5=adjust 后台调整
// 同时冗余 biz_type_str 便于查询
type WalletLedger struct {
	ID           int64  `db:"id"`
	Player       string `db:"player"`
	BizType      int    `db:"biz_type"`
	BizTypeStr   string `db:"biz_type_str"`
	Amount       string `db:"amount"`
	BeforeAmount string `db:"before_amount"`
	AfterAmount  string `db:"after_amount"`
	TxHash       string `db:"tx_hash"`
	BetKind      string `db:"bet_kind"`
	BetValue     string `db:"bet_value"`
	SpinResult   int    `db:"spin_result"`
	Remark       string `db:"remark"`
	TraceID      string `db:"trace_id"`
	CreatedAt    int64  `db:"created_at"`
}

// Insert 新增一条账本记录（biz_type 数值码与字符串双写）
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	code := l.BizType
	str := l.BizTypeStr
	if code == 0 && str != "" {
		switch strings.ToLower(str) {
		case "deposit":
			code = 1
		case "payout":
			code = 2
		case "loss":
			code = 3
		case "withdraw":
			code = 4
		case "adjust":
			code = 5
		}
	}
	if str == "" && code != 0 {
		switch code {
		case 1:
			str = "deposit"
		case 2:
			str = "payout"
		case 3:
			str = "loss"
		case 4:
			str = "withdraw"
		case 5:
			str = "adjust"
		}
	}
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO wallet_ledger (player, biz_type, biz_type_str, amount, before_amount, after_amount, tx_hash, bet_kind, bet_value, spin_result, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{l.Player, code, str, l.Amount, l.BeforeAmount, l.AfterAmount, l.TxHash, l.BetKind, l.BetValue, l.SpinResult, l.Remark, l.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListLedgerByPlayer 按玩家查询账本记录（新→旧）
func ListLedgerByPlayer(ctx context.Context, db *sqlx.DB, player string, limit int) ([]WalletLedger, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	sqlStr := "SELECT id, player, biz_type, biz_type_str, CAST(amount AS CHAR) AS amount, CAST(before_amount AS CHAR) AS before_amount, CAST(after_amount AS CHAR) AS after_amount, tx_hash, bet_kind, bet_value, spin_result, remark, trace_id, created_at FROM wallet_ledger WHERE player = ? ORDER BY id DESC LIMIT ?"
	var list []WalletLedger
	if err := db.SelectContext(ctx, &list, sqlStr, player, limit); err != nil {
		return nil, err
	}
	return list, nil
}
