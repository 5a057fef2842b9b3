package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/handlers"
	"github.com/SscSPs/rates_tracker_app/internal/middleware"
	"github.com/SscSPs/rates_tracker_app/internal/platform/scheduler"
	"github.com/SscSPs/rates_tracker_app/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
)

const shutdownTimeout = 15 * time.Second

type serveCmd struct {
	logger     *slog.Logger
	migrate    bool
	seed       bool
	migrations string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API" }
func (*serveCmd) Usage() string {
	return `rates_backend serve [-migrate] [-seed] [-migrations <url>]

  Runs the HTTP API, and the daily jobs when SCHEDULER_ENABLED is set.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.migrate, "migrate", true, "apply pending migrations before serving")
	f.BoolVar(&c.seed, "seed", true, "sync table A when the catalog only holds gold")
	f.StringVar(&c.migrations, "migrations", database.DefaultMigrationsPath, "migration source URL")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := bootstrap(ctx, c.logger)
	if err != nil {
		c.logger.Error("Failed to start", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer a.close()

	if c.migrate {
		c.logger.Info("Running database migrations...")
		if _, err := database.RunMigrations(a.cfg.DatabaseURL, c.migrations, c.logger); err != nil {
			c.logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	}
	if c.seed {
		if seeded, err := a.services.Instrument.SeedCatalogIfEmpty(ctx); err != nil {
			c.logger.Warn("Catalog seed failed", slog.String("error", err.Error()))
		} else if seeded {
			c.logger.Info("Seeded instrument catalog from table A")
		}
	}

	if a.cfg.SchedulerEnabled {
		sched, err := c.startScheduler(a)
		if err != nil {
			c.logger.Error("Failed to start scheduler", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				c.logger.Warn("Scheduler did not stop cleanly", slog.String("error", err.Error()))
			}
		}()
	}

	router, err := c.router(a)
	if err != nil {
		c.logger.Error("Failed to build router", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	srv := &http.Server{Addr: ":" + a.cfg.Port, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("Server starting", slog.String("port", a.cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Server failed to run", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		c.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("Server shutdown failed", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func (c *serveCmd) router(a *app) (*gin.Engine, error) {
	if a.cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(a.cfg); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	limiter, err := middleware.NewMemoryLimiter(a.cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(c.logger),
		gin.Recovery(),
		middleware.Metrics(),
		cors.New(cors.Config{
			AllowOrigins:     a.cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)
	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	handlers.RegisterRoutes(r, a.cfg, a.services, middleware.RateLimit(limiter))
	return r, nil
}

func (c *serveCmd) startScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.locker, a.cfg.Location, scheduler.WithLogger(c.logger))
	categories := []string{domain.CategoryTableA, domain.CategoryTableB}
	if err := sched.Register("sync-instruments", a.cfg.SyncCron, func(ctx context.Context) error {
		return a.syncInstruments(ctx, categories)
	}); err != nil {
		return nil, err
	}
	if err := sched.Register("cache-rates", a.cfg.CacheRatesCron, func(ctx context.Context) error {
		return a.cacheRates(ctx, "")
	}); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
