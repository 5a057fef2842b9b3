package services_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- In-memory RatePointRepository ---

type memoryRateStore struct {
	mu      sync.Mutex
	points  map[string]domain.RatePoint
	upserts int
}

var _ portsrepo.RatePointRepositoryFacade = (*memoryRateStore)(nil)

func newMemoryRateStore() *memoryRateStore {
	return &memoryRateStore{points: make(map[string]domain.RatePoint)}
}

func storeKey(code string, d time.Time) string {
	return domain.NormalizeCode(code) + "|" + domain.FormatDate(d)
}

func (m *memoryRateStore) put(code string, date time.Time, value string) {
	_ = m.UpsertRatePoint(context.Background(), domain.RatePoint{
		InstrumentCode: code,
		EffectiveDate:  date,
		Value:          decimal.RequireFromString(value),
		Category:       domain.CategoryTableA,
	})
}

func (m *memoryRateStore) count(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.points {
		if p.InstrumentCode == domain.NormalizeCode(code) {
			n++
		}
	}
	return n
}

func (m *memoryRateStore) sorted(code string) []domain.RatePoint {
	var out []domain.RatePoint
	for _, p := range m.points {
		if p.InstrumentCode == domain.NormalizeCode(code) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EffectiveDate.Before(out[j].EffectiveDate) })
	return out
}

func (m *memoryRateStore) FindRatePoint(_ context.Context, code string, date time.Time) (*domain.RatePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.points[storeKey(code, domain.DateOf(date))]
	if !ok {
		return nil, apperrors.NewNotFoundError("rate point not found")
	}
	return &p, nil
}

func (m *memoryRateStore) FindLatestRatePoint(_ context.Context, code string) (*domain.RatePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(code)
	if len(all) == 0 {
		return nil, apperrors.NewNotFoundError("rate point not found")
	}
	p := all[len(all)-1]
	return &p, nil
}

func (m *memoryRateStore) FindLatestRatePoints(_ context.Context, codes []string) (map[string]domain.RatePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.RatePoint)
	for _, c := range codes {
		if all := m.sorted(c); len(all) > 0 {
			out[domain.NormalizeCode(c)] = all[len(all)-1]
		}
	}
	return out, nil
}

func (m *memoryRateStore) ListRatePointsInRange(_ context.Context, code string, start, end time.Time) ([]domain.RatePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.RatePoint{}
	for _, p := range m.sorted(code) {
		if !p.EffectiveDate.Before(domain.DateOf(start)) && !p.EffectiveDate.After(domain.DateOf(end)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRateStore) ListRecentRatePoints(_ context.Context, code string, limit int) ([]domain.RatePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(code)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	if all == nil {
		all = []domain.RatePoint{}
	}
	return all, nil
}

func (m *memoryRateStore) UpsertRatePoint(_ context.Context, p domain.RatePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	p.InstrumentCode = domain.NormalizeCode(p.InstrumentCode)
	p.EffectiveDate = domain.DateOf(p.EffectiveDate)
	p.Value = domain.RoundValue(p.Value)
	p.TableNo = ""
	k := storeKey(p.InstrumentCode, p.EffectiveDate)
	now := time.Now()
	if existing, ok := m.points[k]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.points[k] = p
	return nil
}

func (m *memoryRateStore) UpsertRatePoints(ctx context.Context, points []domain.RatePoint) error {
	for _, p := range points {
		if err := m.UpsertRatePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// --- Mock RateGateway ---

type MockRateGateway struct {
	mock.Mock
}

var _ gateways.MarketDataGateway = (*MockRateGateway)(nil)

func (m *MockRateGateway) FetchPoint(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, error) {
	args := m.Called(ctx, inst, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatePoint), args.Error(1)
}

func (m *MockRateGateway) FetchRange(ctx context.Context, inst domain.Instrument, start, end time.Time) ([]domain.RatePoint, error) {
	args := m.Called(ctx, inst, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RatePoint), args.Error(1)
}

func (m *MockRateGateway) FetchCurrent(ctx context.Context, inst domain.Instrument) (*domain.RatePoint, error) {
	args := m.Called(ctx, inst)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatePoint), args.Error(1)
}

func (m *MockRateGateway) FetchRecent(ctx context.Context, inst domain.Instrument, n int) ([]domain.RatePoint, error) {
	args := m.Called(ctx, inst, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RatePoint), args.Error(1)
}

func (m *MockRateGateway) ListInstruments(ctx context.Context, category string) ([]domain.Instrument, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Instrument), args.Error(1)
}

// --- Counting gateway for concurrency checks ---

// slowPointGateway answers FetchPoint after a delay and counts calls.
type slowPointGateway struct {
	MockRateGateway
	calls int32
	delay time.Duration
	value decimal.Decimal
}

func (g *slowPointGateway) FetchPoint(_ context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, error) {
	atomic.AddInt32(&g.calls, 1)
	time.Sleep(g.delay)
	return &domain.RatePoint{InstrumentCode: inst.Code, EffectiveDate: date, Value: g.value, Category: inst.Category}, nil
}

// --- Mock InstrumentRepository ---

type MockInstrumentRepository struct {
	mock.Mock
}

var _ portsrepo.InstrumentRepositoryFacade = (*MockInstrumentRepository)(nil)

func (m *MockInstrumentRepository) FindInstrumentByCode(ctx context.Context, code string) (*domain.Instrument, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Instrument), args.Error(1)
}

func (m *MockInstrumentRepository) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Instrument), args.Error(1)
}

func (m *MockInstrumentRepository) CountInstruments(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockInstrumentRepository) SaveInstrument(ctx context.Context, instrument domain.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

// --- Mock WatchlistRepository ---

type MockWatchlistRepository struct {
	mock.Mock
}

var _ portsrepo.WatchlistRepositoryFacade = (*MockWatchlistRepository)(nil)

func (m *MockWatchlistRepository) ListFollowedInstruments(ctx context.Context, userID string) ([]domain.Instrument, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Instrument), args.Error(1)
}

func (m *MockWatchlistRepository) AddEntry(ctx context.Context, entry domain.WatchlistEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWatchlistRepository) RemoveEntry(ctx context.Context, userID, code string) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}

// --- helpers ---

var (
	testZone = time.FixedZone("CET", 3600)
	usd      = domain.Instrument{Code: "USD", Name: "dolar amerykański", Category: domain.CategoryTableA}
	eur      = domain.Instrument{Code: "EUR", Name: "euro", Category: domain.CategoryTableA}
	gold     = domain.GoldInstrument()
)

func mustDay(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func point(code, date, value string) domain.RatePoint {
	return domain.RatePoint{
		InstrumentCode: code,
		EffectiveDate:  mustDay(date),
		Value:          decimal.RequireFromString(value),
		Category:       domain.CategoryTableA,
	}
}

// weekdays returns up to n weekday dates counting forward from start.
func weekdays(start time.Time, n int) []time.Time {
	var out []time.Time
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}
