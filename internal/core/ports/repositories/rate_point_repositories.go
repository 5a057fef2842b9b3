package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// RatePointReader defines read operations for stored rate points
type RatePointReader interface {
	// FindRatePoint retrieves the point of an instrument on one date; apperrors.ErrNotFound when absent.
	FindRatePoint(ctx context.Context, code string, date time.Time) (*domain.RatePoint, error)

	// FindLatestRatePoint retrieves the point with the greatest effective date; apperrors.ErrNotFound when absent.
	FindLatestRatePoint(ctx context.Context, code string) (*domain.RatePoint, error)

	// FindLatestRatePoints retrieves the latest point of each code in one query. Codes with no points are absent from the map.
	FindLatestRatePoints(ctx context.Context, codes []string) (map[string]domain.RatePoint, error)

	// ListRatePointsInRange retrieves the points inside [start, end], oldest first.
	ListRatePointsInRange(ctx context.Context, code string, start, end time.Time) ([]domain.RatePoint, error)

	// ListRecentRatePoints retrieves the newest limit points, returned oldest first.
	ListRecentRatePoints(ctx context.Context, code string, limit int) ([]domain.RatePoint, error)
}

// RatePointWriter defines write operations for stored rate points
type RatePointWriter interface {
	// UpsertRatePoint inserts a point or overwrites the value of the existing one for the same (code, date).
	UpsertRatePoint(ctx context.Context, point domain.RatePoint) error

	// UpsertRatePoints upserts many points in one round trip.
	UpsertRatePoints(ctx context.Context, points []domain.RatePoint) error
}

// RatePointRepositoryFacade combines all rate point repository interfaces
type RatePointRepositoryFacade interface {
	RatePointReader
	RatePointWriter
}

// RatePointRepositoryWithTx extends RatePointRepositoryFacade with transaction capabilities
type RatePointRepositoryWithTx interface {
	RatePointRepositoryFacade
	TransactionManager
}
