package gateways

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// ErrNotFound is returned by single-value fetches when upstream has no usable
// value: not published, timed out, malformed, or answered for another code.
// Callers treat it as "no value", never as a failure to report.
var ErrNotFound = errors.New("upstream value not available")

// RateGateway fetches rate points from the upstream publisher.
// Range and recent fetches return an empty slice with a nil error on upstream
// failure. A non-nil error from any method other than ErrNotFound means the
// call itself was invalid (apperrors.ErrValidation).
type RateGateway interface {
	// FetchPoint returns the point published for date. Upstream may answer with
	// an earlier effective date; callers store it under the date it carries.
	FetchPoint(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, error)

	// FetchRange returns the points published inside [start, end], oldest first.
	FetchRange(ctx context.Context, inst domain.Instrument, start, end time.Time) ([]domain.RatePoint, error)

	// FetchCurrent returns the most recently published point.
	FetchCurrent(ctx context.Context, inst domain.Instrument) (*domain.RatePoint, error)

	// FetchRecent returns the last n published points, oldest first.
	FetchRecent(ctx context.Context, inst domain.Instrument, n int) ([]domain.RatePoint, error)
}

// CatalogGateway lists the instruments upstream publishes in a category.
type CatalogGateway interface {
	ListInstruments(ctx context.Context, category string) ([]domain.Instrument, error)
}

// MarketDataGateway is the full upstream surface.
type MarketDataGateway interface {
	RateGateway
	CatalogGateway
}
