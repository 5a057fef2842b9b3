package services

import (
	"context"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// WatchlistReaderSvc defines read operations for a user's watchlist
type WatchlistReaderSvc interface {
	// GetWatchlistCards builds one dashboard card per followed instrument, ordered by code.
	GetWatchlistCards(ctx context.Context, userID string) ([]domain.WatchlistCard, error)

	// ListFollowed retrieves the instruments a user follows.
	ListFollowed(ctx context.Context, userID string) ([]domain.Instrument, error)
}

// WatchlistWriterSvc defines write operations for a user's watchlist
type WatchlistWriterSvc interface {
	// Follow adds an instrument to the watchlist; following twice is not an error.
	Follow(ctx context.Context, userID, code string) (*domain.Instrument, error)

	// Unfollow removes an instrument from the watchlist.
	Unfollow(ctx context.Context, userID, code string) error
}

// WatchlistSvcFacade combines all watchlist service interfaces
type WatchlistSvcFacade interface {
	WatchlistReaderSvc
	WatchlistWriterSvc
}
