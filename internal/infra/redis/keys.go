package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixSettleResult：结算幂等“结果缓存”Key 的前缀。
	// 作用：缓存某笔链上交易哈希对应的第一次成功结算结果（SettleOutput JSON），
	// 用于后续重复请求直接返回。
	PrefixSettleResult = "settle:result:"
	// PrefixSettleLock：结算幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记交易哈希正在结算中，吸收瞬时重复请求，
	// 避免同一笔存款在等待链上收据期间被并发重放。
	PrefixSettleLock = "settle:lock:"

	// PrefixPlayerBalance：玩家余额查询缓存（短 TTL，降低热点查询压力）
	PrefixPlayerBalance = "wallet:balance:"
)

// SettleResultKey：构造结算“结果缓存”的完整 Key。
// 形如：settle:result:{tx_hash}
func SettleResultKey(txHash string) string { return PrefixSettleResult + txHash }

// SettleLockKey：构造结算“进行中锁”的完整 Key。
// 形如：settle:lock:{tx_hash}
func SettleLockKey(txHash string) string { return PrefixSettleLock + txHash }

// PlayerBalanceKey：构造玩家余额缓存 Key。形如：wallet:balance:{player}
func PlayerBalanceKey(player string) string { return PrefixPlayerBalance + player }
