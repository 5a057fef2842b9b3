package repositories

import (
	"context"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// InstrumentReader defines read operations for the instrument catalog
type InstrumentReader interface {
	// FindInstrumentByCode retrieves an instrument by its code; apperrors.ErrNotFound when unknown.
	FindInstrumentByCode(ctx context.Context, code string) (*domain.Instrument, error)

	// ListInstruments retrieves all instruments ordered by code.
	ListInstruments(ctx context.Context) ([]domain.Instrument, error)

	// CountInstruments returns how many instruments are in the catalog.
	CountInstruments(ctx context.Context) (int, error)
}

// InstrumentWriter defines write operations for the instrument catalog
type InstrumentWriter interface {
	// SaveInstrument inserts an instrument or updates its name and category.
	SaveInstrument(ctx context.Context, instrument domain.Instrument) error
}

// InstrumentRepositoryFacade combines all instrument-related repository interfaces
type InstrumentRepositoryFacade interface {
	InstrumentReader
	InstrumentWriter
}

// InstrumentRepositoryWithTx extends InstrumentRepositoryFacade with transaction capabilities
type InstrumentRepositoryWithTx interface {
	InstrumentRepositoryFacade
	TransactionManager
}
