package main

import (
	"context"
	"flag"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/config"
	"github.com/wacdo-pos/kiosk/internal/database"
	"github.com/wacdo-pos/kiosk/internal/enum"
	"github.com/wacdo-pos/kiosk/internal/logger"
	"github.com/wacdo-pos/kiosk/internal/service"
)

type sampleOrder struct {
	articles string
	total    string
	place    string
	table    int32
}

// Orders a staff screen can be developed against.
var samples = []sampleOrder{
	{"Big Mac (menu best of - frites - Coca-Cola) x1", "8.50", enum.PlaceDineIn, 12},
	{"Cheeseburger x2, Coca-Cola - 50cl x2", "10.60", enum.PlaceTakeout, 0},
	{"McFirst (menu maxi best of - potatoes - Sprite) x1, Sundae x1", "12.40", enum.PlaceDineIn, 7},
	{"Wrap Ranch x1, Eau - 30cl x1", "6.80", enum.PlaceTakeout, 0},
	{"Frites x3", "7.50", enum.PlaceDineIn, 101},
}

func main() {
	processed := flag.Int("processed", 2, "Number of seeded orders to mark as processed")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := database.NewPool(ctx, database.PoolConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       2,
		ConnectTimeout: cfg.DBConnectTimeout,
	})
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}

	// All orders or none.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ids, err := seedOrders(ctx, database.New(pool).WithTx(tx), *processed)
	if err != nil {
		log.Fatal("seed orders", zap.Error(err))
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal("commit", zap.Error(err))
	}

	log.Info("seed complete", zap.Int64s("order_ids", ids), zap.Int("processed", max(0, min(*processed, len(ids)))))
}

func seedOrders(ctx context.Context, q *database.Queries, processed int) ([]int64, error) {
	base := time.Now().UnixMilli()

	ids := make([]int64, 0, len(samples))
	for i, s := range samples {
		params := database.InsertOrderParams{
			Cnumber:  base + int64(i),
			Total:    service.DecimalToNumeric(decimal.RequireFromString(s.total)),
			Articles: s.articles,
			Place:    s.place,
		}
		if s.table > 0 {
			params.Table = pgtype.Int4{Int32: s.table, Valid: true}
		}
		o, err := q.InsertOrder(ctx, params)
		if err != nil {
			return nil, err
		}
		ids = append(ids, o.ID)
	}

	for _, id := range ids[:max(0, min(processed, len(ids)))] {
		if _, err := q.MarkOrderProcessed(ctx, id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
