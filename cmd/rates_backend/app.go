package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/rates_tracker_app/internal/adapters/lock"
	"github.com/SscSPs/rates_tracker_app/internal/adapters/nbp"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/SscSPs/rates_tracker_app/internal/core/services"
	"github.com/SscSPs/rates_tracker_app/internal/platform/config"
	"github.com/SscSPs/rates_tracker_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/rates_tracker_app/pkg/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// app is the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	locker   locking.Locker
	services *portssvc.ServiceContainer
	closers  []func()
}

func bootstrap(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	a.pool, err = database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return nil, fmt.Errorf("initialize database pool: %w", err)
	}
	a.closers = append(a.closers, func() { database.ClosePgxPool(a.pool) })
	logger.Info("Database connection pool established.")

	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.locker = lock.NewRedisLocker(client)
		logger.Info("Using Redis locks")
	} else {
		a.locker = lock.NewMemoryLocker()
		logger.Info("REDIS_URL not set, using in-process locks")
	}

	gateway := nbp.NewClient(
		nbp.WithBaseURL(cfg.NBPBaseURL),
		nbp.WithLogger(logger),
		nbp.WithTimeout(cfg.NBPTimeout),
		nbp.WithRetries(cfg.NBPRetries),
		nbp.WithRetryBackoff(cfg.NBPRetryBackoff),
		nbp.WithRateLimit(cfg.NBPRateLimit),
	)
	a.services = services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(a.pool), gateway, a.locker)
	return a, nil
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) syncInstruments(ctx context.Context, categories []string) error {
	report, err := a.services.Instrument.SyncCatalog(ctx, categories)
	if err != nil {
		return err
	}
	a.logger.Info("Instrument sync finished", slog.Int("processed", report.Processed), slog.Any("failed", report.Failed))
	return nil
}

func (a *app) cacheRates(ctx context.Context, code string) error {
	report, err := a.services.Instrument.CacheCurrentRates(ctx, code)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		a.logger.Warn("Some current rates could not be refreshed", slog.Any("failed", report.Failed))
	}
	return nil
}
