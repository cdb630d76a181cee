package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis 在本服务中只承担加速职责：结算进行中锁、结果缓存、余额缓存、
// 限流窗口。Client() 为 nil 时这些路径全部降级跳过，正确性由 MySQL
// 唯一键兜底，因此初始化失败不阻塞启动。
var rdb *goredis.Client

// Init 根据配置初始化 Redis 客户端；addr 为空视为未启用。
func Init(addr, password string, db int) {
	if addr == "" {
		return
	}
	rdb = goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Client 返回 Redis 客户端实例，未启用时为 nil
func Client() *goredis.Client { return rdb }

// Ping 在给定超时时间内探测连接；未启用时视为健康
func Ping(ctx context.Context, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(c).Err()
}
