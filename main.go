package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"roulette-server/common"
	"roulette-server/common/logger"
	"roulette-server/internal/config"
	infmysql "roulette-server/internal/infra/mysql"
	infrds "roulette-server/internal/infra/redis"
	"roulette-server/internal/worker"
	"roulette-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.InitLogger()
	defer logger.Sync()

	// ========== 配置加载 ==========
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("config load failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// ========== 基础设施 ==========
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)

	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infrds.Ping(ctx, 2*time.Second); err != nil {
		logger.Warn("redis ping failed, 降级为无缓存模式", zap.Error(err))
	}

	// 配置中心热更新：只刷新 current 快照，连接类配置不热切
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		logger.Info("config reloaded",
			zap.Bool("prom", newCfg.Observability.EnableProm),
			zap.Bool("ratelimit", newCfg.RateLimit.Enabled))
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// ========== 后台任务 ==========
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartSettleConsumer(ctx, &wg)

	// ========== 指标服务 ==========
	if cfg.Observability.EnableProm {
		promAddr := cfg.Observability.PromAddr
		if promAddr == "" {
			promAddr = ":9100"
		}
		promSrv := &http.Server{Addr: promAddr, Handler: promhttp.Handler()}
		go func() {
			logger.Info("prometheus metrics listening", zap.String("addr", promAddr))
			if err := promSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("prometheus server exit", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer shutCancel()
			_ = promSrv.Shutdown(shutCtx)
		}()
	}

	// ========== HTTP 服务 ==========
	routers.Register()
	beego.BConfig.CopyRequestBody = true
	beego.BConfig.RunMode = beego.PROD

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
		cancel()
		wg.Wait()
		logger.Sync()
		os.Exit(0)
	}()

	logger.Info("server starting", zap.Int("port", cfg.Server.Port))
	beego.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}
