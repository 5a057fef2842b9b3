package repositories

import (
	"context"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// WatchlistReader defines read operations for users' followed instruments
type WatchlistReader interface {
	// ListFollowedInstruments retrieves the instruments a user follows, ordered by code.
	ListFollowedInstruments(ctx context.Context, userID string) ([]domain.Instrument, error)
}

// WatchlistWriter defines write operations for users' followed instruments
type WatchlistWriter interface {
	// AddEntry follows an instrument; following twice is a no-op.
	AddEntry(ctx context.Context, entry domain.WatchlistEntry) error

	// RemoveEntry unfollows an instrument; apperrors.ErrNotFound when it was not followed.
	RemoveEntry(ctx context.Context, userID, code string) error
}

// WatchlistRepositoryFacade combines all watchlist repository interfaces
type WatchlistRepositoryFacade interface {
	WatchlistReader
	WatchlistWriter
}
