package services

import (
	"context"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// InstrumentReaderSvc defines read operations for the instrument catalog
type InstrumentReaderSvc interface {
	// GetInstrument retrieves an instrument by code, case-insensitively.
	GetInstrument(ctx context.Context, code string) (*domain.Instrument, error)

	// ListInstruments retrieves the whole catalog ordered by code.
	ListInstruments(ctx context.Context) ([]domain.Instrument, error)
}

// SyncReport summarizes a catalog sync or rate caching run.
type SyncReport struct {
	Processed int      `json:"processed"`
	Failed    []string `json:"failed,omitempty"`
}

// InstrumentWriterSvc defines maintenance operations for the instrument catalog
type InstrumentWriterSvc interface {
	// SyncCatalog upserts the instruments upstream publishes in each category.
	SyncCatalog(ctx context.Context, categories []string) (SyncReport, error)

	// SeedCatalogIfEmpty syncs table A when the catalog holds nothing but gold.
	SeedCatalogIfEmpty(ctx context.Context) (bool, error)

	// CacheCurrentRates refreshes the current value of one instrument, or of every currency when code is empty.
	CacheCurrentRates(ctx context.Context, code string) (SyncReport, error)
}

// InstrumentSvcFacade combines all instrument service interfaces
type InstrumentSvcFacade interface {
	InstrumentReaderSvc
	InstrumentWriterSvc
}
