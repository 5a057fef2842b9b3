package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/SscSPs/rates_tracker_app/internal/platform/metrics"
	"github.com/sourcegraph/conc/iter"
)

// currentLookupConcurrency bounds parallel upstream revalidations in GetCurrentForInstruments.
const currentLookupConcurrency = 4

// marketDataService is the read-through cache in front of the upstream
// gateway. Every write for a key happens while holding that key's lock.
type marketDataService struct {
	BaseService
	rateRepo   portsrepo.RatePointRepositoryFacade
	gateway    gateways.RateGateway
	locker     locking.Locker
	lockPolicy locking.Policy
	now        func() time.Time
	location   *time.Location
}

// MarketDataOption is a functional option for configuring the market data service
type MarketDataOption func(*marketDataService)

// WithLockPolicy overrides locking.DefaultPolicy.
func WithLockPolicy(p locking.Policy) MarketDataOption {
	return func(s *marketDataService) {
		s.lockPolicy = p
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MarketDataOption {
	return func(s *marketDataService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone "today" is computed in.
func WithLocation(loc *time.Location) MarketDataOption {
	return func(s *marketDataService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewMarketDataService creates a new market data service with the provided options
func NewMarketDataService(
	repo portsrepo.RatePointRepositoryFacade,
	gateway gateways.RateGateway,
	locker locking.Locker,
	options ...MarketDataOption,
) portssvc.MarketDataSvcFacade {
	svc := &marketDataService{
		rateRepo:   repo,
		gateway:    gateway,
		locker:     locker,
		lockPolicy: locking.DefaultPolicy,
		now:        time.Now,
		location:   time.UTC,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

var _ portssvc.MarketDataSvcFacade = (*marketDataService)(nil)

func (s *marketDataService) today() time.Time {
	return domain.DateOf(s.now().In(s.location))
}

func dateKey(inst domain.Instrument, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", inst.Category, domain.NormalizeCode(inst.Code), domain.FormatDate(day))
}

func currentKey(inst domain.Instrument) string {
	return fmt.Sprintf("current:%s:%s", inst.Category, domain.NormalizeCode(inst.Code))
}

func rangeKey(inst domain.Instrument, r domain.DateRange) string {
	return fmt.Sprintf("range:%s:%s:%s:%s", inst.Category, domain.NormalizeCode(inst.Code),
		domain.FormatDate(r.Start), domain.FormatDate(r.End))
}

func recentKey(inst domain.Instrument, n int) string {
	return fmt.Sprintf("last:%s:%s:%d", inst.Category, domain.NormalizeCode(inst.Code), n)
}

func (s *marketDataService) step(ctx context.Context, key string, state domain.QueryState) {
	s.LogDebug(ctx, "Market data lookup", slog.String("key", key), slog.String("state", string(state)))
}

// finish records the terminal state of a lookup.
func (s *marketDataService) finish(ctx context.Context, query, key string, state domain.QueryState) {
	s.step(ctx, key, state)
	metrics.RecordCacheLookup(query, string(state))
}

// reconcile stamps a fetched point with the identity of the instrument it was requested for.
func reconcile(inst domain.Instrument, p domain.RatePoint) domain.RatePoint {
	p.InstrumentCode = domain.NormalizeCode(inst.Code)
	p.Category = inst.Category
	p.EffectiveDate = domain.DateOf(p.EffectiveDate)
	p.Value = domain.RoundValue(p.Value)
	return p
}

func (s *marketDataService) findPoint(ctx context.Context, code string, day time.Time) (*domain.RatePoint, error) {
	p, err := s.rateRepo.FindRatePoint(ctx, code, day)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *marketDataService) findLatest(ctx context.Context, code string) (*domain.RatePoint, error) {
	p, err := s.rateRepo.FindLatestRatePoint(ctx, code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// storeAndReload upserts a fetched point and reads it back under the date it carries.
func (s *marketDataService) storeAndReload(ctx context.Context, inst domain.Instrument, fetched domain.RatePoint) (*domain.RatePoint, error) {
	point := reconcile(inst, fetched)
	if err := s.rateRepo.UpsertRatePoint(ctx, point); err != nil {
		return nil, err
	}
	stored, err := s.findPoint(ctx, point.InstrumentCode, point.EffectiveDate)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("rate point %s@%s missing after upsert", point.InstrumentCode, domain.FormatDate(point.EffectiveDate))
	}
	stored.TableNo = fetched.TableNo
	return stored, nil
}

// GetOrFetchOnDate implements MarketDataReaderSvc.
func (s *marketDataService) GetOrFetchOnDate(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, error) {
	p, _, err := s.getOrFetchOnDate(ctx, inst, date)
	return p, err
}

// GetSingle implements MarketDataReaderSvc.
func (s *marketDataService) GetSingle(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.SingleValue, error) {
	p, fromCache, err := s.getOrFetchOnDate(ctx, inst, date)
	if err != nil {
		return nil, err
	}
	return &domain.SingleValue{
		InstrumentCode: p.InstrumentCode,
		Value:          p.Value,
		Date:           p.EffectiveDate,
		FromCache:      fromCache,
	}, nil
}

func (s *marketDataService) getOrFetchOnDate(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, bool, error) {
	code := domain.NormalizeCode(inst.Code)
	day := domain.DateOf(date)
	key := dateKey(inst, day)

	s.step(ctx, key, domain.StateChecking)
	p, err := s.findPoint(ctx, code, day)
	if err != nil {
		s.LogError(ctx, err, "Failed to read stored rate point", slog.String("key", key))
		return nil, false, fmt.Errorf("read rate point %s: %w", key, err)
	}
	if p != nil {
		s.finish(ctx, "date", key, domain.StateCached)
		return p, true, nil
	}

	var result *domain.RatePoint
	fromCache := false
	s.step(ctx, key, domain.StateLockWait)
	err = locking.WithLock(ctx, s.locker, key, s.lockPolicy, func(ctx context.Context) error {
		p, err := s.findPoint(ctx, code, day)
		if err != nil {
			return err
		}
		if p != nil {
			result, fromCache = p, true
			return nil
		}

		s.step(ctx, key, domain.StateFetching)
		fetched, err := s.gateway.FetchPoint(ctx, inst, day)
		if errors.Is(err, gateways.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		s.step(ctx, key, domain.StateReconciling)
		result, err = s.storeAndReload(ctx, inst, *fetched)
		return err
	})
	if err != nil {
		s.logLookupFailure(ctx, err, key)
		return nil, false, fmt.Errorf("get rate %s: %w", key, err)
	}
	if result == nil {
		s.finish(ctx, "date", key, domain.StateMissNoFallback)
		return nil, false, apperrors.NewNotFoundError(fmt.Sprintf("no rate available for %s on %s", code, domain.FormatDate(day)))
	}

	s.finish(ctx, "date", key, domain.StateCached)
	return result, fromCache, nil
}

func (s *marketDataService) logLookupFailure(ctx context.Context, err error, key string) {
	if errors.Is(err, apperrors.ErrLockTimeout) {
		s.LogWarn(ctx, "Timed out waiting for market data lock", slog.String("key", key))
		return
	}
	s.LogError(ctx, err, "Market data lookup failed", slog.String("key", key))
}

// GetCurrent implements MarketDataReaderSvc. The only error is a failed
// initial storage read; upstream and lock failures degrade to a flagged result.
func (s *marketDataService) GetCurrent(ctx context.Context, inst domain.Instrument) (*domain.CurrentValue, error) {
	key := currentKey(inst)
	s.step(ctx, key, domain.StateChecking)
	latest, err := s.findLatest(ctx, domain.NormalizeCode(inst.Code))
	if err != nil {
		s.LogError(ctx, err, "Failed to read latest rate point", slog.String("key", key))
		return nil, fmt.Errorf("read latest %s: %w", key, err)
	}
	cv := s.currentFrom(ctx, inst, latest)
	return &cv, nil
}

// GetCurrentForInstruments implements MarketDataReaderSvc. Results follow the order of insts.
func (s *marketDataService) GetCurrentForInstruments(ctx context.Context, insts []domain.Instrument) ([]domain.CurrentValue, error) {
	codes := make([]string, len(insts))
	for i, inst := range insts {
		codes[i] = domain.NormalizeCode(inst.Code)
	}
	latest, err := s.rateRepo.FindLatestRatePoints(ctx, codes)
	if err != nil {
		s.LogError(ctx, err, "Failed to read latest rate points", slog.Int("instruments", len(insts)))
		return nil, fmt.Errorf("read latest rate points: %w", err)
	}

	mapper := iter.Mapper[domain.Instrument, domain.CurrentValue]{MaxGoroutines: currentLookupConcurrency}
	return mapper.Map(insts, func(inst *domain.Instrument) domain.CurrentValue {
		var p *domain.RatePoint
		if l, ok := latest[domain.NormalizeCode(inst.Code)]; ok {
			p = &l
		}
		return s.currentFrom(ctx, *inst, p)
	}), nil
}

// currentFrom applies the today-freshness rule to an already read latest point.
func (s *marketDataService) currentFrom(ctx context.Context, inst domain.Instrument, latest *domain.RatePoint) domain.CurrentValue {
	code := domain.NormalizeCode(inst.Code)
	key := currentKey(inst)
	today := s.today()

	if latest != nil && latest.EffectiveDate.Equal(today) {
		s.finish(ctx, "current", key, domain.StateCached)
		return domain.CurrentFromPoint(*latest, true)
	}

	var fresh *domain.RatePoint
	fromCache := false
	s.step(ctx, key, domain.StateLockWait)
	err := locking.WithLock(ctx, s.locker, key, s.lockPolicy, func(ctx context.Context) error {
		l, err := s.findLatest(ctx, code)
		if err != nil {
			return err
		}
		if l != nil {
			latest = l
			if l.EffectiveDate.Equal(today) {
				fresh, fromCache = l, true
				return nil
			}
		}

		s.step(ctx, key, domain.StateFetching)
		fetched, err := s.gateway.FetchCurrent(ctx, inst)
		if errors.Is(err, gateways.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		s.step(ctx, key, domain.StateReconciling)
		fresh, err = s.storeAndReload(ctx, inst, *fetched)
		return err
	})
	if err != nil {
		s.logLookupFailure(ctx, err, key)
	}

	if fresh != nil && err == nil {
		s.finish(ctx, "current", key, domain.StateCached)
		return domain.CurrentFromPoint(*fresh, fromCache)
	}
	if latest != nil {
		s.finish(ctx, "current", key, domain.StateMissWithStaleFallback)
		cv := domain.CurrentFromPoint(*latest, true)
		cv.Error = true
		return cv
	}
	s.finish(ctx, "current", key, domain.StateMissNoFallback)
	return domain.CurrentValue{InstrumentCode: code, Error: true}
}

func (s *marketDataService) checkedRange(start, end time.Time) (domain.DateRange, error) {
	r, err := domain.NewDateRange(start, end)
	if err != nil {
		return domain.DateRange{}, err
	}
	if err := r.CheckSpan(); err != nil {
		return domain.DateRange{}, err
	}
	return r, nil
}

// GetTrend implements MarketDataReaderSvc.
func (s *marketDataService) GetTrend(ctx context.Context, inst domain.Instrument, start, end time.Time) (*domain.Trend, error) {
	r, err := s.checkedRange(start, end)
	if err != nil {
		return nil, err
	}
	code := domain.NormalizeCode(inst.Code)
	key := rangeKey(inst, r)

	s.step(ctx, key, domain.StateChecking)
	points, err := s.rateRepo.ListRatePointsInRange(ctx, code, r.Start, r.End)
	if err != nil {
		s.LogError(ctx, err, "Failed to read stored range", slog.String("key", key))
		return nil, fmt.Errorf("read range %s: %w", key, err)
	}
	if r.HasSufficientCoverage(len(points)) {
		s.finish(ctx, "range", key, domain.StateCached)
		return &domain.Trend{InstrumentCode: code, Points: points, FromCache: true}, nil
	}

	var trend *domain.Trend
	s.step(ctx, key, domain.StateLockWait)
	err = locking.WithLock(ctx, s.locker, key, s.lockPolicy, func(ctx context.Context) error {
		points, err := s.rateRepo.ListRatePointsInRange(ctx, code, r.Start, r.End)
		if err != nil {
			return err
		}
		if r.HasSufficientCoverage(len(points)) {
			trend = &domain.Trend{InstrumentCode: code, Points: points, FromCache: true}
			return nil
		}

		s.step(ctx, key, domain.StateFetching)
		fetched, err := s.gateway.FetchRange(ctx, inst, r.Start, r.End)
		if err != nil {
			return err
		}
		if len(fetched) == 0 {
			return nil
		}

		s.step(ctx, key, domain.StateReconciling)
		if err := s.upsertAll(ctx, inst, fetched); err != nil {
			return err
		}
		points, err = s.rateRepo.ListRatePointsInRange(ctx, code, r.Start, r.End)
		if err != nil {
			return err
		}
		trend = &domain.Trend{InstrumentCode: code, Points: points, FromCache: false}
		return nil
	})
	if err != nil {
		s.logLookupFailure(ctx, err, key)
		return nil, fmt.Errorf("get trend %s: %w", key, err)
	}
	if trend == nil {
		s.finish(ctx, "range", key, domain.StateMissNoFallback)
		return nil, fmt.Errorf("%w for %s between %s and %s", apperrors.ErrNoData, code,
			domain.FormatDate(r.Start), domain.FormatDate(r.End))
	}

	s.finish(ctx, "range", key, domain.StateCached)
	return trend, nil
}

func (s *marketDataService) upsertAll(ctx context.Context, inst domain.Instrument, fetched []domain.RatePoint) error {
	points := make([]domain.RatePoint, len(fetched))
	for i, p := range fetched {
		points[i] = reconcile(inst, p)
	}
	return s.rateRepo.UpsertRatePoints(ctx, points)
}

// HydrateRange implements MarketDataWriterSvc. Unlike GetTrend it has no
// sufficiency gate and takes no lock.
func (s *marketDataService) HydrateRange(ctx context.Context, inst domain.Instrument, start, end time.Time) (int, error) {
	r, err := s.checkedRange(start, end)
	if err != nil {
		return 0, err
	}
	fetched, err := s.gateway.FetchRange(ctx, inst, r.Start, r.End)
	if err != nil {
		return 0, err
	}
	if len(fetched) == 0 {
		return 0, nil
	}
	if err := s.upsertAll(ctx, inst, fetched); err != nil {
		s.LogError(ctx, err, "Failed to hydrate range", slog.String("key", rangeKey(inst, r)))
		return 0, fmt.Errorf("hydrate %s: %w", rangeKey(inst, r), err)
	}
	return len(fetched), nil
}

// GetRecent implements MarketDataReaderSvc. Stored points are returned as they
// are when the refresh can't run or upstream has nothing.
func (s *marketDataService) GetRecent(ctx context.Context, inst domain.Instrument, n int) ([]domain.RatePoint, error) {
	if n < 1 {
		return nil, apperrors.NewValidationError("recent count must be at least 1")
	}
	code := domain.NormalizeCode(inst.Code)
	key := recentKey(inst, n)

	s.step(ctx, key, domain.StateChecking)
	points, err := s.rateRepo.ListRecentRatePoints(ctx, code, n)
	if err != nil {
		s.LogError(ctx, err, "Failed to read recent points", slog.String("key", key))
		return nil, fmt.Errorf("read recent %s: %w", key, err)
	}
	if !s.recentIsStale(points, n) {
		s.finish(ctx, "recent", key, domain.StateCached)
		return points, nil
	}

	s.step(ctx, key, domain.StateLockWait)
	err = locking.WithLock(ctx, s.locker, key, s.lockPolicy, func(ctx context.Context) error {
		current, err := s.rateRepo.ListRecentRatePoints(ctx, code, n)
		if err != nil {
			return err
		}
		points = current
		if !s.recentIsStale(points, n) {
			return nil
		}

		s.step(ctx, key, domain.StateFetching)
		fetched, err := s.gateway.FetchRecent(ctx, inst, n)
		if err != nil {
			return err
		}
		if len(fetched) == 0 {
			return nil
		}

		s.step(ctx, key, domain.StateReconciling)
		if err := s.upsertAll(ctx, inst, fetched); err != nil {
			return err
		}
		points, err = s.rateRepo.ListRecentRatePoints(ctx, code, n)
		return err
	})
	if errors.Is(err, apperrors.ErrLockTimeout) {
		s.logLookupFailure(ctx, err, key)
		s.finish(ctx, "recent", key, domain.StateMissWithStaleFallback)
		return points, nil
	}
	if err != nil {
		s.logLookupFailure(ctx, err, key)
		return nil, fmt.Errorf("get recent %s: %w", key, err)
	}

	s.finish(ctx, "recent", key, domain.StateCached)
	return points, nil
}

// recentIsStale reports whether a recent window needs refreshing: fewer
// than n points, or the newest is from before yesterday.
func (s *marketDataService) recentIsStale(points []domain.RatePoint, n int) bool {
	if len(points) < n {
		return true
	}
	yesterday := s.today().AddDate(0, 0, -1)
	return points[len(points)-1].EffectiveDate.Before(yesterday)
}
