package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	"github.com/SscSPs/rates_tracker_app/internal/models"
	"github.com/SscSPs/rates_tracker_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxInstrumentRepository struct {
	BaseRepository
}

// newPgxInstrumentRepository creates a new repository for the instrument catalog.
func newPgxInstrumentRepository(pool *pgxpool.Pool) portsrepo.InstrumentRepositoryWithTx {
	return &PgxInstrumentRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.InstrumentRepositoryWithTx = (*PgxInstrumentRepository)(nil)

// SaveInstrument inserts or updates an instrument.
func (r *PgxInstrumentRepository) SaveInstrument(ctx context.Context, instrument domain.Instrument) error {
	m := mapping.ToModelInstrument(instrument)
	now := time.Now().UTC()

	query := `
		INSERT INTO instruments (code, name, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at;
	`

	if _, err := r.Pool.Exec(ctx, query, m.Code, m.Name, m.Category, now); err != nil {
		return fmt.Errorf("failed to save instrument %s: %w", m.Code, err)
	}
	return nil
}

// FindInstrumentByCode retrieves an instrument by its code.
func (r *PgxInstrumentRepository) FindInstrumentByCode(ctx context.Context, code string) (*domain.Instrument, error) {
	query := `
		SELECT code, name, category, created_at, updated_at
		FROM instruments
		WHERE code = $1;
	`
	var m models.Instrument
	err := r.Pool.QueryRow(ctx, query, domain.NormalizeCode(code)).Scan(
		&m.Code,
		&m.Name,
		&m.Category,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find instrument by code %s: %w", code, err)
	}

	d := mapping.ToDomainInstrument(m)
	return &d, nil
}

// ListInstruments retrieves all instruments.
func (r *PgxInstrumentRepository) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	query := `
		SELECT code, name, category, created_at, updated_at
		FROM instruments
		ORDER BY code;
	`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	ms, err := pgx.CollectRows(rows, scanInstrument)
	if err != nil {
		return nil, fmt.Errorf("failed to scan instruments: %w", err)
	}
	return mapping.ToDomainInstrumentSlice(ms), nil
}

// CountInstruments returns the catalog size.
func (r *PgxInstrumentRepository) CountInstruments(ctx context.Context) (int, error) {
	var n int
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM instruments;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count instruments: %w", err)
	}
	return n, nil
}

func scanInstrument(row pgx.CollectableRow) (models.Instrument, error) {
	var m models.Instrument
	err := row.Scan(&m.Code, &m.Name, &m.Category, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
