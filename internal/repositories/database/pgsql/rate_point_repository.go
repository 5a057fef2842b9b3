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

const ratePointColumns = `id, instrument_code, value, category, effective_date, created_at, updated_at`

// upsertRatePointQuery relies on the (instrument_code, effective_date) unique
// constraint, so concurrent writers of the same point never produce duplicates.
const upsertRatePointQuery = `
	INSERT INTO rate_points (instrument_code, value, category, effective_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (instrument_code, effective_date) DO UPDATE SET
		value = EXCLUDED.value,
		category = EXCLUDED.category,
		updated_at = EXCLUDED.updated_at;
`

// PgxRatePointRepository implements portsrepo.RatePointRepositoryWithTx using pgxpool.
type PgxRatePointRepository struct {
	BaseRepository
}

func newPgxRatePointRepository(pool *pgxpool.Pool) portsrepo.RatePointRepositoryWithTx {
	return &PgxRatePointRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.RatePointRepositoryWithTx = (*PgxRatePointRepository)(nil)

// UpsertRatePoint inserts a point or overwrites the value stored for the same date.
func (r *PgxRatePointRepository) UpsertRatePoint(ctx context.Context, point domain.RatePoint) error {
	m := mapping.ToModelRatePoint(point)
	_, err := r.Pool.Exec(ctx, upsertRatePointQuery,
		m.InstrumentCode, m.Value, m.Category, m.EffectiveDate, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rate point %s@%s: %w", m.InstrumentCode, domain.FormatDate(m.EffectiveDate), err)
	}
	return nil
}

// UpsertRatePoints upserts all points in one batch inside a transaction.
func (r *PgxRatePointRepository) UpsertRatePoints(ctx context.Context, points []domain.RatePoint) error {
	if len(points) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return r.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range points {
			m := mapping.ToModelRatePoint(p)
			batch.Queue(upsertRatePointQuery, m.InstrumentCode, m.Value, m.Category, m.EffectiveDate, now)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert %d rate points: %w", len(points), err)
		}
		return nil
	})
}

// FindRatePoint retrieves the point stored for one date.
func (r *PgxRatePointRepository) FindRatePoint(ctx context.Context, code string, date time.Time) (*domain.RatePoint, error) {
	query := `SELECT ` + ratePointColumns + `
		FROM rate_points
		WHERE instrument_code = $1 AND effective_date = $2;`
	return r.findOne(ctx, query, domain.NormalizeCode(code), domain.DateOf(date))
}

// FindLatestRatePoint retrieves the point with the greatest effective date.
func (r *PgxRatePointRepository) FindLatestRatePoint(ctx context.Context, code string) (*domain.RatePoint, error) {
	query := `SELECT ` + ratePointColumns + `
		FROM rate_points
		WHERE instrument_code = $1
		ORDER BY effective_date DESC
		LIMIT 1;`
	return r.findOne(ctx, query, domain.NormalizeCode(code))
}

func (r *PgxRatePointRepository) findOne(ctx context.Context, query string, args ...any) (*domain.RatePoint, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to find rate point", err)
	}
	m, err := pgx.CollectOneRow(rows, scanRatePoint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("rate point not found")
		}
		return nil, apperrors.NewAppError(500, "failed to scan rate point", err)
	}
	d := mapping.ToDomainRatePoint(m)
	return &d, nil
}

// FindLatestRatePoints retrieves the latest point of each code with one DISTINCT ON query.
func (r *PgxRatePointRepository) FindLatestRatePoints(ctx context.Context, codes []string) (map[string]domain.RatePoint, error) {
	out := make(map[string]domain.RatePoint, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	normalized := make([]string, len(codes))
	for i, c := range codes {
		normalized[i] = domain.NormalizeCode(c)
	}

	query := `SELECT DISTINCT ON (instrument_code) ` + ratePointColumns + `
		FROM rate_points
		WHERE instrument_code = ANY($1)
		ORDER BY instrument_code, effective_date DESC;`
	ms, err := r.collect(ctx, query, normalized)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		out[m.InstrumentCode] = mapping.ToDomainRatePoint(m)
	}
	return out, nil
}

// ListRatePointsInRange retrieves points in [start, end], oldest first.
func (r *PgxRatePointRepository) ListRatePointsInRange(ctx context.Context, code string, start, end time.Time) ([]domain.RatePoint, error) {
	query := `SELECT ` + ratePointColumns + `
		FROM rate_points
		WHERE instrument_code = $1 AND effective_date BETWEEN $2 AND $3
		ORDER BY effective_date ASC;`
	ms, err := r.collect(ctx, query, domain.NormalizeCode(code), domain.DateOf(start), domain.DateOf(end))
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainRatePointSlice(ms), nil
}

// ListRecentRatePoints retrieves the newest limit points, oldest first.
func (r *PgxRatePointRepository) ListRecentRatePoints(ctx context.Context, code string, limit int) ([]domain.RatePoint, error) {
	if limit <= 0 {
		return []domain.RatePoint{}, nil
	}
	query := `SELECT ` + ratePointColumns + ` FROM (
			SELECT ` + ratePointColumns + `
			FROM rate_points
			WHERE instrument_code = $1
			ORDER BY effective_date DESC
			LIMIT $2
		) recent
		ORDER BY effective_date ASC;`
	ms, err := r.collect(ctx, query, domain.NormalizeCode(code), limit)
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainRatePointSlice(ms), nil
}

func (r *PgxRatePointRepository) collect(ctx context.Context, query string, args ...any) ([]models.RatePoint, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query rate points", err)
	}
	ms, err := pgx.CollectRows(rows, scanRatePoint)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan rate points", err)
	}
	return ms, nil
}

func scanRatePoint(row pgx.CollectableRow) (models.RatePoint, error) {
	var m models.RatePoint
	err := row.Scan(
		&m.ID, &m.InstrumentCode, &m.Value, &m.Category,
		&m.EffectiveDate, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
