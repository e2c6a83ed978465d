// Command export-api serves the export and warehouse-sync HTTP API.
//
// @title AdMesh Export API
// @version 1.0
// @description Export and warehouse-sync pipeline for aggregate ad-mediation analytics.
// @BasePath /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"admesh-export/internal/analytics"
	"admesh-export/internal/api"
	"admesh-export/internal/api/handler"
	"admesh-export/internal/config"
	"admesh-export/internal/destination"
	"admesh-export/internal/export"
	"admesh-export/internal/store"
	"admesh-export/internal/warehouse"

	_ "admesh-export/docs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("could not load configuration")
	}

	logger := newLogger(cfg.Log.Level)

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

	gen, err := export.NewGenerator(cfg.Export.Dir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not prepare export directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dests := destination.NewRegistry(buildTargets(ctx, cfg, logger))

	manager := export.NewManager(db, source, gen, dests, cfg.Export.Workers, logger)
	scheduler := warehouse.NewScheduler(db, warehouse.NewAggregateTransfer(source), logger)

	// In-process sync runner; deployments with an external cron disable it
	// by setting the tick to zero.
	if cfg.Sync.TickInterval > 0 {
		go scheduler.Run(ctx, cfg.Sync.TickInterval)
	}

	h := handler.New(manager, scheduler, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(h, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("export api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}

	// Let in-flight exports reach a terminal state before closing stores.
	manager.Wait()
}

func buildTargets(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*destination.S3Target, *destination.GCSTarget, *destination.BigQueryTarget) {
	var (
		s3  *destination.S3Target
		gcs *destination.GCSTarget
		bq  *destination.BigQueryTarget
		err error
	)
	if cfg.S3.Enabled {
		if s3, err = destination.NewS3Target(cfg.S3.Region, cfg.S3.Endpoint); err != nil {
			logger.Fatal().Err(err).Msg("could not configure s3 destination")
		}
	}
	if cfg.GCS.Enabled {
		if gcs, err = destination.NewGCSTarget(ctx); err != nil {
			logger.Fatal().Err(err).Msg("could not configure gcs destination")
		}
	}
	if cfg.BigQuery.Enabled {
		if bq, err = destination.NewBigQueryTarget(ctx, cfg.BigQuery.ProjectID); err != nil {
			logger.Fatal().Err(err).Msg("could not configure bigquery destination")
		}
	}
	return s3, gcs, bq
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
