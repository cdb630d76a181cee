package config

import (
	"strings"
	"sync/atomic"
)

// 原子存储当前生效的配置，供各业务读取
var current atomic.Value // *Config

func SetCurrent(c *Config) {
	current.Store(c)
}

func GetCurrent() *Config {
	v := current.Load()
	if v == nil {
		return nil
	}
	return v.(*Config)
}

// GetFeatureFlag 返回功能开关（默认 false）
func GetFeatureFlag(name string) bool {
	cfg := GetCurrent()
	if cfg == nil || cfg.FeatureFlags == nil {
		return false
	}
	return cfg.FeatureFlags[name]
}

// GetThreshold 返回业务阈值（支持默认值）
func GetThreshold(name string, def int64) int64 {
	cfg := GetCurrent()
	if cfg == nil || cfg.Thresholds == nil {
		return def
	}
	if v, ok := cfg.Thresholds[name]; ok {
		return v
	}
	return def
}

// 默认的链上资金账户，未配置时兜底使用（ckETH 主网 helper 合约的铸币账户）
const (
	defaultMinterAddress   = "0xb44b5e756a894775fc32eddf3314bb1b1944dc34"
	defaultLedgerPrincipal = "apia6-jaaaa-aaaar-qabma-cai"
	defaultMinterPrincipal = "jzenf-aiaaa-aaaar-qaa7q-cai"
)

// MinterAddress 返回存款必须命中的铸币账户地址（统一小写）
func MinterAddress() string {
	cfg := GetCurrent()
	if cfg != nil && strings.TrimSpace(cfg.Chain.MinterAddress) != "" {
		return strings.ToLower(strings.TrimSpace(cfg.Chain.MinterAddress))
	}
	return defaultMinterAddress
}

// LedgerPrincipal 返回 ICRC 账本 principal
func LedgerPrincipal() string {
	cfg := GetCurrent()
	if cfg != nil && strings.TrimSpace(cfg.Ledger.LedgerPrincipal) != "" {
		return strings.TrimSpace(cfg.Ledger.LedgerPrincipal)
	}
	return defaultLedgerPrincipal
}

// CanisterPrincipal 返回本服务自身的 canister principal
// 存款地址由它派生，未配置时返回空串，结算入口会据此拒绝
func CanisterPrincipal() string {
	cfg := GetCurrent()
	if cfg == nil {
		return ""
	}
	return strings.TrimSpace(cfg.Chain.CanisterPrincipal)
}

// MinterPrincipal 返回提现目标 minter principal
func MinterPrincipal() string {
	cfg := GetCurrent()
	if cfg != nil && strings.TrimSpace(cfg.Ledger.MinterPrincipal) != "" {
		return strings.TrimSpace(cfg.Ledger.MinterPrincipal)
	}
	return defaultMinterPrincipal
}
