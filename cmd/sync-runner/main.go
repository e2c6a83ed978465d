// Command sync-runner executes due warehouse syncs on a fixed tick. It is
// the standalone alternative to the in-process runner for deployments that
// separate API serving from scheduled work.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"admesh-export/internal/analytics"
	"admesh-export/internal/config"
	"admesh-export/internal/store"
	"admesh-export/internal/warehouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("could not load configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("could not open job store")
	}
	defer db.Close()

	source, err := analytics.NewClickHouseSource(analytics.Options{
		Addr:       cfg.ClickHouse.Addr,
		Database:   cfg.ClickHouse.Database,
		Username:   cfg.ClickHouse.Username,
		Password:   cfg.ClickHouse.Password,
		BatchSize:  cfg.Export.BatchSize,
		MaxRawRows: cfg.Export.MaxRawRows,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect to analytical store")
	}
	defer source.Close()

	scheduler := warehouse.NewScheduler(db, warehouse.NewAggregateTransfer(source), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler.Run(ctx, cfg.Sync.TickInterval)
}
