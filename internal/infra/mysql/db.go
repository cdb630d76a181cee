package mysql

import (
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
)

// 全局句柄由 main 启动时通过 UseDB 注入，model 层只读访问。
// 结算事务（transactions 唯一键预占 + 余额变更）都走同一个连接池。
var (
	mu     sync.RWMutex
	db     *sql.DB
	sqlxDB *sqlx.DB
)

// UseDB 注入外部初始化好的 *sql.DB（common.InitDB 返回的句柄）
func UseDB(d *sql.DB) {
	if d == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	db = d
	sqlxDB = sqlx.NewDb(d, "mysql")
}

// DB 返回全局 *sql.DB 句柄，未注入时为 nil
func DB() *sql.DB {
	mu.RLock()
	defer mu.RUnlock()
	return db
}

// SQLX 返回 sqlx 包装句柄，供 model 层命名参数查询使用
func SQLX() *sqlx.DB {
	mu.RLock()
	defer mu.RUnlock()
	return sqlxDB
}
