package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/catalog"
	"github.com/wacdo-pos/kiosk/internal/config"
	"github.com/wacdo-pos/kiosk/internal/kiosk"
	"github.com/wacdo-pos/kiosk/internal/logger"
	"github.com/wacdo-pos/kiosk/internal/orderclient"
)

func main() {
	cfg := config.Load()

	// Logs go to stderr; stdout belongs to the customer.
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hc := &http.Client{Timeout: cfg.HTTPTimeout}
	cat := catalog.NewClient(cfg.CatalogBaseURL, hc, log.Named("catalog"))
	orders := orderclient.New(cfg.OrderAPIURL, hc, log.Named("orders"))

	log.Info("kiosk ready",
		zap.String("catalog", cfg.CatalogBaseURL),
		zap.String("order_api", cfg.OrderAPIURL),
	)
	if err := kiosk.NewDefault(cat, orders, log).Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatal("kiosk session", zap.Error(err))
	}
}
