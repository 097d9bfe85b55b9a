// Command maintenance runs one maintenance sweep against PostgreSQL and exits.
// It is meant for cron when the server's background loop is disabled.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/cache"
	"stockledger/backend/internal/config"
	"stockledger/backend/internal/logging"
	"stockledger/backend/internal/notify"
	"stockledger/backend/internal/service"
	pgstore "stockledger/backend/internal/store/postgres"
	"stockledger/backend/internal/trend"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("maintenance failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	trendCache := cache.TrendCache(cache.NoopTrendCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisTrendCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
		} else {
			trendCache = redisCache
		}
	}

	// Rules-only scoring.
	trends := trend.NewEngine(trendCache, cfg.TrendCacheTTL, nil, logger)

	var publisher notify.Publisher = notify.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafka.Close()
		publisher = kafka
	}

	svc := service.New(repo, trends, publisher, service.Options{
		WarehouseID:   cfg.WarehouseStoreID,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})
	report, err := svc.RunMaintenance(ctx)
	if err != nil {
		return err
	}
	logger.Info("maintenance done",
		zap.Int("purged_batches", report.PurgedBatches),
		zap.Int("expiry_warnings", report.ExpiryWarnings),
		zap.Int("low_stock_warnings", report.LowStockWarnings),
		zap.Int("trend_updates", report.TrendUpdates),
	)
	return nil
}
