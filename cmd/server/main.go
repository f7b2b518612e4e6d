package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/config"
	"github.com/wacdo-pos/kiosk/internal/database"
	"github.com/wacdo-pos/kiosk/internal/httpx"
	"github.com/wacdo-pos/kiosk/internal/logger"
	"github.com/wacdo-pos/kiosk/internal/metrics"
	"github.com/wacdo-pos/kiosk/internal/router"
	"github.com/wacdo-pos/kiosk/internal/service"
	"github.com/wacdo-pos/kiosk/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.PoolConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
		IdleTimeout:    cfg.DBIdleTimeout,
	})
	if err != nil {
		log.Fatal("database pool", zap.Error(err))
	}
	defer pool.Close()

	// The server starts even when the database is down; inserts fail with 500
	// until it comes back.
	if err := pool.Ping(ctx); err != nil {
		log.Warn("database unreachable at startup", zap.Error(err))
	} else {
		log.Info("database connected", zap.Int32("max_conns", cfg.DBMaxConns))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics("api", reg)

	hub := ws.NewHub(log.Named("ws"))
	go hub.Run(ctx)

	svc := service.NewOrderService(service.PoolAcquirer{Pool: pool}, service.NewQueriesStore)
	r := router.New(cfg, svc, pool, hub, m, log)

	log.Info("starting server", zap.String("port", cfg.Port), zap.Strings("allowed_origins", cfg.AllowedOrigins))
	if err := httpx.New(":"+cfg.Port, r).Run(ctx); err != nil {
		log.Fatal("server", zap.Error(err))
	}
	log.Info("server stopped")
}
