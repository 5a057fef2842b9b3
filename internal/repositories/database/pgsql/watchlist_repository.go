package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	"github.com/SscSPs/rates_tracker_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxWatchlistRepository struct {
	BaseRepository
}

func newPgxWatchlistRepository(pool *pgxpool.Pool) portsrepo.WatchlistRepositoryFacade {
	return &PgxWatchlistRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.WatchlistRepositoryFacade = (*PgxWatchlistRepository)(nil)

// AddEntry follows an instrument; an existing entry is left untouched.
func (r *PgxWatchlistRepository) AddEntry(ctx context.Context, entry domain.WatchlistEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO watchlist_entries (user_id, instrument_code, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, instrument_code) DO NOTHING;
	`
	if _, err := r.Pool.Exec(ctx, query, entry.UserID, domain.NormalizeCode(entry.InstrumentCode), createdAt); err != nil {
		return fmt.Errorf("failed to add watchlist entry %s for user %s: %w", entry.InstrumentCode, entry.UserID, err)
	}
	return nil
}

// RemoveEntry unfollows an instrument.
func (r *PgxWatchlistRepository) RemoveEntry(ctx context.Context, userID, code string) error {
	tag, err := r.Pool.Exec(ctx,
		`DELETE FROM watchlist_entries WHERE user_id = $1 AND instrument_code = $2;`,
		userID, domain.NormalizeCode(code),
	)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry %s for user %s: %w", code, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("instrument " + domain.NormalizeCode(code) + " is not on the watchlist")
	}
	return nil
}

// ListFollowedInstruments joins the user's entries with the catalog.
func (r *PgxWatchlistRepository) ListFollowedInstruments(ctx context.Context, userID string) ([]domain.Instrument, error) {
	query := `
		SELECT i.code, i.name, i.category, i.created_at, i.updated_at
		FROM watchlist_entries w
		JOIN instruments i ON i.code = w.instrument_code
		WHERE w.user_id = $1
		ORDER BY i.code;
	`
	rows, err := r.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist for user %s: %w", userID, err)
	}
	ms, err := pgx.CollectRows(rows, scanInstrument)
	if err != nil {
		return nil, fmt.Errorf("failed to scan watchlist for user %s: %w", userID, err)
	}
	return mapping.ToDomainInstrumentSlice(ms), nil
}
