package routers

import (
	"roulette-server/internal/config"
	"roulette-server/internal/controller/api"
	"roulette-server/internal/metrics"
	"roulette-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// Register 注册HTTP路由与全局过滤器
// 在配置加载完成后由 main 显式调用
func Register() {
	cfg := config.Get()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 业务 API ==========

	// 结算接口：限流
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/roulette/settle", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/roulette/settle", &api.SettleController{}, "post:Settle")

	// 钱包查询接口
	beego.Router("/api/wallet/balance", &api.WalletController{}, "get:Balance")
	beego.Router("/api/wallet/transactions", &api.WalletController{}, "get:Transactions")
	beego.Router("/api/wallet/ledger", &api.WalletController{}, "get:Ledger")
	beego.Router("/api/wallet/deposit_address", &api.WalletController{}, "get:DepositAddress")

	// 提现接口：限流
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/wallet/withdraw", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/wallet/withdraw", &api.WalletController{}, "post:Withdraw")

	// ========== 管理 API（需要管理员认证） ==========

	// 登录用静态凭证换取 JWT，本身不走认证过滤器
	beego.Router("/api/admin/login", &api.AdminController{}, "post:Login")
	if cfg != nil && cfg.Auth.Admin.Enabled {
		beego.InsertFilter("/api/admin/logout", beego.BeforeExec, middleware.AdminAuthFilter)
		beego.InsertFilter("/api/treasury/*", beego.BeforeExec, middleware.AdminAuthFilter)
	}
	beego.Router("/api/admin/logout", &api.AdminController{}, "post:Logout")
	beego.Router("/api/treasury/balance", &api.TreasuryController{}, "get:Balance")
	beego.Router("/api/treasury/transfer", &api.TreasuryController{}, "post:Transfer")
	beego.Router("/api/treasury/approve", &api.TreasuryController{}, "post:Approve")
	beego.Router("/api/treasury/withdraw", &api.TreasuryController{}, "post:Withdraw")
}
