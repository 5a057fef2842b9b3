package main

import (
	"context"
	"flag"
	"log/slog"
	"strings"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/pkg/database"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	logger     *slog.Logger
	migrations string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending database migrations" }
func (*migrateCmd) Usage() string {
	return `rates_backend migrate [-migrations <url>]

  Applies every pending "up" migration and exits.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.migrations, "migrations", database.DefaultMigrationsPath, "migration source URL")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := bootstrap(context.Background(), c.logger)
	if err != nil {
		c.logger.Error("Failed to start", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := database.RunMigrations(a.cfg.DatabaseURL, c.migrations, c.logger); err != nil {
		c.logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type syncInstrumentsCmd struct {
	logger *slog.Logger
	table  string
	all    bool
}

func (*syncInstrumentsCmd) Name() string { return "sync-instruments" }
func (*syncInstrumentsCmd) Synopsis() string {
	return "upsert the currency catalog from the NBP tables"
}
func (*syncInstrumentsCmd) Usage() string {
	return `rates_backend sync-instruments [-table A|B] [-all]

  Upserts the currencies NBP publishes in a fixing table. Existing
  instruments are never removed.
`
}

func (c *syncInstrumentsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.table, "table", domain.CategoryTableA, "NBP table to sync (A or B)")
	f.BoolVar(&c.all, "all", false, "sync tables A and B")
}

func (c *syncInstrumentsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	categories := []string{strings.ToUpper(c.table)}
	if c.all {
		categories = []string{domain.CategoryTableA, domain.CategoryTableB}
	}
	if !domain.IsCurrencyCategory(categories[0]) {
		c.logger.Error("Unsupported table", slog.String("table", c.table))
		return subcommands.ExitUsageError
	}

	a, err := bootstrap(ctx, c.logger)
	if err != nil {
		c.logger.Error("Failed to start", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := a.syncInstruments(ctx, categories); err != nil {
		c.logger.Error("Instrument sync failed", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type cacheRatesCmd struct {
	logger   *slog.Logger
	currency string
}

func (*cacheRatesCmd) Name() string     { return "cache-rates" }
func (*cacheRatesCmd) Synopsis() string { return "refresh today's value of the tracked currencies" }
func (*cacheRatesCmd) Usage() string {
	return `rates_backend cache-rates [-currency <code>]

  Revalidates the current rate of one currency, or of every currency in the
  catalog when -currency is omitted.
`
}

func (c *cacheRatesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "currency code (default: all)")
}

func (c *cacheRatesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := bootstrap(ctx, c.logger)
	if err != nil {
		c.logger.Error("Failed to start", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := a.cacheRates(ctx, c.currency); err != nil {
		c.logger.Error("Caching current rates failed", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
