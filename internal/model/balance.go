package model

import (
	"context"
	"database/sql"
	"time"

	"roulette-server/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Balance 对应 balances 表
// 玩家唯一标识 = 链上出资地址（小写 0x + 40 位十六进制）
// 金额使用 DECIMAL(65,0) 存储（wei 整数），Go 层以十进制字符串表示，杜绝浮点误差
type Balance struct {
	ID        int64  `db:"id"`         // 自增ID（内部使用）
	Player    string `db:"player"`     // 玩家链上地址（唯一键）
	Amount    string `db:"amount"`     // 余额（wei，十进制字符串，非负）
	Status    int8   `db:"status"`     // 状态: 1=正常 0=禁用
	CreatedAt int64  `db:"created_at"` // 创建时间（13位毫秒时间戳）
	UpdatedAt int64  `db:"updated_at"` // 更新时间（13位毫秒时间戳）
}

// GetBalanceByPlayer 按玩家查询余额行（非锁查询）
func GetBalanceByPlayer(ctx context.Context, db *sqlx.DB, player string) (*Balance, error) {
	query := `SELECT id, player, CAST(amount AS CHAR) AS amount, status, created_at, updated_at
	          FROM balances
	          WHERE player = ?
	          LIMIT 1`

	var b Balance
	err := db.GetContext(ctx, &b, query, player)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get balance by player failed",
			zap.String("player", player),
			zap.Error(err))
		return nil, err
	}

	return &b, nil
}

// GetBalanceByPlayerForUpdate 按玩家查询余额行（加锁）
// 必须在事务中调用
func GetBalanceByPlayerForUpdate(ctx context.Context, exec sqlx.ExtContext, player string) (*Balance, error) {
	query := `SELECT id, player, CAST(amount AS CHAR) AS amount, status, created_at, updated_at
	          FROM balances
	          WHERE player = ?
	          FOR UPDATE`

	var b Balance
	err := sqlx.GetContext(ctx, exec, &b, query, player)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get balance by player for update failed",
			zap.String("player", player),
			zap.Error(err))
		return nil, err
	}

	return &b, nil
}

// Insert 插入余额行（初始余额由调用方指定，通常为 "0"）
func (b *Balance) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Amount == "" {
		b.Amount = "0"
	}

	query := `INSERT INTO balances (player, amount, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, query, b.Player, b.Amount, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		logger.Error("insert balance failed",
			zap.String("player", b.Player),
			zap.Error(err))
		return err
	}

	id, _ := result.LastInsertId()
	b.ID = id
	return nil
}

// UpdateBalanceAmount 更新玩家余额（newAmount 为 wei 十进制字符串）
func UpdateBalanceAmount(ctx context.Context, exec sqlx.ExtContext, id int64, newAmount string) error {
	now := time.Now().UnixMilli()
	query := `UPDATE balances SET amount = ?, updated_at = ? WHERE id = ?`

	_, err := exec.ExecContext(ctx, query, newAmount, now, id)
	if err != nil {
		logger.Error("update balance failed",
			zap.Int64("id", id),
			zap.String("new_amount", newAmount),
			zap.Error(err))
		return err
	}

	return nil
}

// GetOrCreateBalance 获取或创建玩家余额行（首次结算自动开户）
// 必须在事务中调用：返回的行已持有行锁
func GetOrCreateBalance(ctx context.Context, exec sqlx.ExtContext, player string) (*Balance, error) {
	b, err := GetBalanceByPlayerForUpdate(ctx, exec, player)
	if err == nil {
		return b, nil
	}

	if err == sql.ErrNoRows {
		nb := &Balance{
			Player: player,
			Amount: "0",
			Status: 1,
		}
		if err := nb.Insert(ctx, exec); err != nil {
			// 处理并发开户的情况（唯一索引冲突），重新加锁查询
			if IsMySQLDuplicateKeyError(err) {
				logger.Info("concurrent balance creation detected, retry query",
					zap.String("player", player))
				return GetBalanceByPlayerForUpdate(ctx, exec, player)
			}
			return nil, err
		}
		return nb, nil
	}

	return nil, err
}
