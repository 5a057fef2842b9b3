package services

import (
	"context"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// MarketDataReaderSvc answers market data queries from storage, going
// upstream only when the stored data is missing or stale.
type MarketDataReaderSvc interface {
	// GetOrFetchOnDate returns the point of inst on date; apperrors.ErrNotFound when upstream has none.
	GetOrFetchOnDate(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, error)

	// GetSingle is GetOrFetchOnDate reporting whether storage answered.
	GetSingle(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.SingleValue, error)

	// GetCurrent returns today's value, or the latest stored one flagged with Error when it can't be revalidated.
	GetCurrent(ctx context.Context, inst domain.Instrument) (*domain.CurrentValue, error)

	// GetCurrentForInstruments is GetCurrent for many instruments, reading storage once.
	GetCurrentForInstruments(ctx context.Context, insts []domain.Instrument) ([]domain.CurrentValue, error)

	// GetTrend returns the points in [start, end]; apperrors.ErrNoData when there are none anywhere.
	GetTrend(ctx context.Context, inst domain.Instrument, start, end time.Time) (*domain.Trend, error)

	// GetRecent returns the last n points, refreshing them when the newest is older than yesterday.
	GetRecent(ctx context.Context, inst domain.Instrument, n int) ([]domain.RatePoint, error)
}

// MarketDataWriterSvc fills storage from upstream.
type MarketDataWriterSvc interface {
	// HydrateRange upserts whatever upstream has for [start, end] and returns how many points it got.
	HydrateRange(ctx context.Context, inst domain.Instrument, start, end time.Time) (int, error)
}

// MarketDataSvcFacade combines all market data service interfaces
type MarketDataSvcFacade interface {
	MarketDataReaderSvc
	MarketDataWriterSvc
}
