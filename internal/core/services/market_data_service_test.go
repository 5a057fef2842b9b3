package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/adapters/lock"
	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/SscSPs/rates_tracker_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// 2024-01-10 is a Wednesday.
var fixedNow = time.Date(2024, 1, 10, 12, 0, 0, 0, testZone)

var testLockPolicy = locking.Policy{Wait: 100 * time.Millisecond, Lease: 2 * time.Second}

// --- Test Suite ---
type MarketDataServiceTestSuite struct {
	suite.Suite
	store   *memoryRateStore
	gateway *MockRateGateway
	locker  *lock.MemoryLocker
	service portssvc.MarketDataSvcFacade
}

func (suite *MarketDataServiceTestSuite) SetupTest() {
	suite.store = newMemoryRateStore()
	suite.gateway = new(MockRateGateway)
	suite.locker = lock.NewMemoryLocker()
	suite.service = services.NewMarketDataService(suite.store, suite.gateway, suite.locker,
		services.WithLockPolicy(testLockPolicy),
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithLocation(testZone),
	)
}

func TestMarketDataServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MarketDataServiceTestSuite))
}

// --- single date ---

func (suite *MarketDataServiceTestSuite) TestGetOrFetchOnDate_EmptyStoreFetchesAndStores() {
	ctx := context.Background()
	fetched := point("USD", "2024-01-10", "4.05")
	suite.gateway.On("FetchPoint", mock.Anything, usd, mustDay("2024-01-10")).Return(&fetched, nil).Once()

	p, err := suite.service.GetOrFetchOnDate(ctx, usd, mustDay("2024-01-10"))
	suite.Require().NoError(err)
	suite.True(decimal.RequireFromString("4.05").Equal(p.Value))

	stored, err := suite.store.FindRatePoint(ctx, "USD", mustDay("2024-01-10"))
	suite.Require().NoError(err)
	suite.Equal("4.0500", stored.Value.StringFixed(4))
	suite.Equal(domain.CategoryTableA, stored.Category)
	suite.False(suite.locker.Held("A:USD:2024-01-10"))
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *MarketDataServiceTestSuite) TestGetOrFetchOnDate_StoredSkipsGateway() {
	suite.store.put("USD", mustDay("2024-01-09"), "4.01")

	single, err := suite.service.GetSingle(context.Background(), usd, mustDay("2024-01-09"))
	suite.Require().NoError(err)
	suite.True(single.FromCache)
	suite.Equal("USD", single.InstrumentCode)
	suite.True(decimal.RequireFromString("4.01").Equal(single.Value))
	suite.gateway.AssertNotCalled(suite.T(), "FetchPoint", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MarketDataServiceTestSuite) TestGetOrFetchOnDate_NotFound() {
	suite.gateway.On("FetchPoint", mock.Anything, usd, mustDay("2001-01-02")).Return(nil, gateways.ErrNotFound).Once()

	p, err := suite.service.GetOrFetchOnDate(context.Background(), usd, mustDay("2001-01-02"))
	suite.Nil(p)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Equal(0, suite.store.count("USD"))
	suite.False(suite.locker.Held("A:USD:2001-01-02"), "lock must be released on miss")
}

func (suite *MarketDataServiceTestSuite) TestGetOrFetchOnDate_StoresUnderResponseDate() {
	saturday := mustDay("2024-01-06")
	friday := point("USD", "2024-01-05", "3.99")
	suite.gateway.On("FetchPoint", mock.Anything, usd, saturday).Return(&friday, nil).Twice()

	single, err := suite.service.GetSingle(context.Background(), usd, saturday)
	suite.Require().NoError(err)
	suite.False(single.FromCache)
	suite.Equal("2024-01-05", domain.FormatDate(single.Date))

	_, err = suite.store.FindRatePoint(context.Background(), "USD", saturday)
	suite.ErrorIs(err, apperrors.ErrNotFound, "nothing is stored under the requested date")

	// the non-trading day is not cached, so it is derived again
	again, err := suite.service.GetSingle(context.Background(), usd, saturday)
	suite.Require().NoError(err)
	suite.Equal("2024-01-05", domain.FormatDate(again.Date))
	suite.Equal(1, suite.store.count("USD"))
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *MarketDataServiceTestSuite) TestGetOrFetchOnDate_LockTimeout() {
	_, err := suite.locker.Acquire(context.Background(), "A:USD:2024-01-08", 0, time.Minute)
	suite.Require().NoError(err)

	_, err = suite.service.GetOrFetchOnDate(context.Background(), usd, mustDay("2024-01-08"))
	suite.ErrorIs(err, apperrors.ErrLockTimeout)
	suite.gateway.AssertNotCalled(suite.T(), "FetchPoint", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MarketDataServiceTestSuite) TestGetOrFetchOnDate_ValidationPropagates() {
	bad := domain.Instrument{Code: "USD", Category: "Z"}
	suite.gateway.On("FetchPoint", mock.Anything, bad, mock.Anything).Return(nil, apperrors.NewValidationError("bad category")).Once()

	_, err := suite.service.GetOrFetchOnDate(context.Background(), bad, mustDay("2024-01-08"))
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- current ---

func (suite *MarketDataServiceTestSuite) TestGetCurrent_TodayNeverCallsGateway() {
	suite.store.put("USD", mustDay("2024-01-10"), "4.02")

	cv, err := suite.service.GetCurrent(context.Background(), usd)
	suite.Require().NoError(err)
	suite.False(cv.Error)
	suite.True(cv.FromCache)
	suite.True(decimal.RequireFromString("4.02").Equal(*cv.Value))
	suite.gateway.AssertNotCalled(suite.T(), "FetchCurrent", mock.Anything, mock.Anything)
}

func (suite *MarketDataServiceTestSuite) TestGetCurrent_StaleFallback() {
	suite.store.put("USD", mustDay("2024-01-09"), "4.01")
	suite.gateway.On("FetchCurrent", mock.Anything, usd).Return(nil, gateways.ErrNotFound).Once()

	cv, err := suite.service.GetCurrent(context.Background(), usd)
	suite.Require().NoError(err)
	suite.True(cv.Error)
	suite.Require().NotNil(cv.Value)
	suite.True(decimal.RequireFromString("4.01").Equal(*cv.Value))
	suite.Equal("2024-01-09", domain.FormatDate(*cv.EffectiveDate))
}

func (suite *MarketDataServiceTestSuite) TestGetCurrent_MissNoFallback() {
	suite.gateway.On("FetchCurrent", mock.Anything, usd).Return(nil, gateways.ErrNotFound).Once()

	cv, err := suite.service.GetCurrent(context.Background(), usd)
	suite.Require().NoError(err)
	suite.True(cv.Error)
	suite.Nil(cv.Value)
	suite.Nil(cv.EffectiveDate)
}

func (suite *MarketDataServiceTestSuite) TestGetCurrent_RevalidatesYesterday() {
	suite.store.put("USD", mustDay("2024-01-09"), "4.01")
	fresh := point("USD", "2024-01-10", "4.0333")
	suite.gateway.On("FetchCurrent", mock.Anything, usd).Return(&fresh, nil).Once()

	cv, err := suite.service.GetCurrent(context.Background(), usd)
	suite.Require().NoError(err)
	suite.False(cv.Error)
	suite.False(cv.FromCache)
	suite.Equal("2024-01-10", domain.FormatDate(*cv.EffectiveDate))
	suite.Equal(2, suite.store.count("USD"))

	// now fresh: no second upstream call
	cv, err = suite.service.GetCurrent(context.Background(), usd)
	suite.Require().NoError(err)
	suite.True(cv.FromCache)
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *MarketDataServiceTestSuite) TestGetCurrent_LockTimeoutFallsBack() {
	suite.store.put("USD", mustDay("2024-01-09"), "4.01")
	_, err := suite.locker.Acquire(context.Background(), "current:A:USD", 0, time.Minute)
	suite.Require().NoError(err)

	cv, err := suite.service.GetCurrent(context.Background(), usd)
	suite.Require().NoError(err)
	suite.True(cv.Error)
	suite.True(decimal.RequireFromString("4.01").Equal(*cv.Value))
	suite.gateway.AssertNotCalled(suite.T(), "FetchCurrent", mock.Anything, mock.Anything)
}

func (suite *MarketDataServiceTestSuite) TestGetCurrentForInstruments_KeepsOrder() {
	suite.store.put("USD", mustDay("2024-01-10"), "4.02")
	suite.gateway.On("FetchCurrent", mock.Anything, eur).Return(nil, gateways.ErrNotFound).Once()

	out, err := suite.service.GetCurrentForInstruments(context.Background(), []domain.Instrument{eur, usd})
	suite.Require().NoError(err)
	suite.Require().Len(out, 2)
	suite.Equal("EUR", out[0].InstrumentCode)
	suite.True(out[0].Error)
	suite.Equal("USD", out[1].InstrumentCode)
	suite.False(out[1].Error)
}

// --- range ---

func (suite *MarketDataServiceTestSuite) fill(code string, start time.Time, n int) {
	for i, d := range weekdays(start, n) {
		suite.store.put(code, d, decimal.NewFromFloat(4).Add(decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(1000))).String())
	}
}

// 2023-10-12 .. 2024-01-09 is 90 calendar days: E = 65, threshold 46.
var ninetyStart, ninetyEnd = mustDay("2023-10-12"), mustDay("2024-01-09")

func (suite *MarketDataServiceTestSuite) TestGetTrend_SufficientCoverageFromCache() {
	suite.fill("USD", ninetyStart, 60)

	trend, err := suite.service.GetTrend(context.Background(), usd, ninetyStart, ninetyEnd)
	suite.Require().NoError(err)
	suite.True(trend.FromCache)
	suite.Len(trend.Points, 60)
	suite.gateway.AssertNotCalled(suite.T(), "FetchRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MarketDataServiceTestSuite) TestGetTrend_InsufficientCoverageFetches() {
	suite.fill("USD", ninetyStart, 20)
	var fetched []domain.RatePoint
	for _, d := range weekdays(mustDay("2023-11-09"), 40) {
		fetched = append(fetched, domain.RatePoint{InstrumentCode: "USD", EffectiveDate: d, Value: decimal.RequireFromString("4.1"), Category: domain.CategoryTableA})
	}
	suite.gateway.On("FetchRange", mock.Anything, usd, ninetyStart, ninetyEnd).Return(fetched, nil).Once()

	trend, err := suite.service.GetTrend(context.Background(), usd, ninetyStart, ninetyEnd)
	suite.Require().NoError(err)
	suite.False(trend.FromCache)
	suite.GreaterOrEqual(len(trend.Points), 40)
	for i := 1; i < len(trend.Points); i++ {
		suite.True(trend.Points[i-1].EffectiveDate.Before(trend.Points[i].EffectiveDate))
	}
	suite.False(suite.locker.Held("range:A:USD:2023-10-12:2024-01-09"))
}

func (suite *MarketDataServiceTestSuite) TestGetTrend_ThresholdBoundary() {
	suite.fill("USD", ninetyStart, 45)
	suite.gateway.On("FetchRange", mock.Anything, usd, ninetyStart, ninetyEnd).Return([]domain.RatePoint{}, nil).Once()

	_, err := suite.service.GetTrend(context.Background(), usd, ninetyStart, ninetyEnd)
	suite.ErrorIs(err, apperrors.ErrNoData, "45 of 65 is under the threshold and upstream is empty")

	suite.fill("USD", ninetyStart, 46)
	trend, err := suite.service.GetTrend(context.Background(), usd, ninetyStart, ninetyEnd)
	suite.Require().NoError(err)
	suite.True(trend.FromCache)
	suite.gateway.AssertNumberOfCalls(suite.T(), "FetchRange", 1)
}

func (suite *MarketDataServiceTestSuite) TestGetTrend_SingleDayRange() {
	day := mustDay("2024-01-09")
	p := point("USD", "2024-01-09", "4.01")
	suite.gateway.On("FetchRange", mock.Anything, usd, day, day).Return([]domain.RatePoint{p}, nil).Once()

	trend, err := suite.service.GetTrend(context.Background(), usd, day, day)
	suite.Require().NoError(err)
	suite.False(trend.FromCache)
	suite.Len(trend.Points, 1)

	trend, err = suite.service.GetTrend(context.Background(), usd, day, day)
	suite.Require().NoError(err)
	suite.True(trend.FromCache)
}

func (suite *MarketDataServiceTestSuite) TestGetTrend_RejectsBadRanges() {
	_, err := suite.service.GetTrend(context.Background(), usd, mustDay("2024-01-09"), mustDay("2024-01-01"))
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.service.GetTrend(context.Background(), usd, mustDay("2023-01-01"), mustDay("2024-01-01"))
	suite.ErrorIs(err, apperrors.ErrRangeTooLarge)
	suite.gateway.AssertNotCalled(suite.T(), "FetchRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- hydrate / upsert ---

func (suite *MarketDataServiceTestSuite) TestHydrateRange_IdempotentUpsert() {
	start, end := mustDay("2024-01-02"), mustDay("2024-01-05")
	first := []domain.RatePoint{point("USD", "2024-01-02", "3.95"), point("USD", "2024-01-03", "3.96")}
	second := []domain.RatePoint{point("USD", "2024-01-02", "3.95"), point("USD", "2024-01-03", "3.97")}
	suite.gateway.On("FetchRange", mock.Anything, usd, start, end).Return(first, nil).Once()
	suite.gateway.On("FetchRange", mock.Anything, usd, start, end).Return(second, nil).Once()

	n, err := suite.service.HydrateRange(context.Background(), usd, start, end)
	suite.Require().NoError(err)
	suite.Equal(2, n)
	n, err = suite.service.HydrateRange(context.Background(), usd, start, end)
	suite.Require().NoError(err)
	suite.Equal(2, n)

	suite.Equal(2, suite.store.count("USD"), "no duplicate rows")
	p, err := suite.store.FindRatePoint(context.Background(), "USD", mustDay("2024-01-03"))
	suite.Require().NoError(err)
	suite.Equal("3.9700", p.Value.StringFixed(4))
}

func (suite *MarketDataServiceTestSuite) TestHydrateRange_EmptyUpstream() {
	start, end := mustDay("2024-01-02"), mustDay("2024-01-05")
	suite.gateway.On("FetchRange", mock.Anything, usd, start, end).Return([]domain.RatePoint{}, nil).Once()

	n, err := suite.service.HydrateRange(context.Background(), usd, start, end)
	suite.NoError(err)
	suite.Zero(n)
}

// --- recent ---

func (suite *MarketDataServiceTestSuite) TestGetRecent_FreshWindowFromCache() {
	for _, d := range []string{"2024-01-05", "2024-01-08", "2024-01-09"} {
		suite.store.put(domain.GoldCode, mustDay(d), "250")
	}

	points, err := suite.service.GetRecent(context.Background(), gold, 3)
	suite.Require().NoError(err)
	suite.Len(points, 3)
	suite.gateway.AssertNotCalled(suite.T(), "FetchRecent", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *MarketDataServiceTestSuite) TestGetRecent_StaleWindowRefreshes() {
	suite.store.put(domain.GoldCode, mustDay("2024-01-03"), "249")
	fetched := []domain.RatePoint{
		{InstrumentCode: domain.GoldCode, EffectiveDate: mustDay("2024-01-09"), Value: decimal.RequireFromString("251")},
		{InstrumentCode: domain.GoldCode, EffectiveDate: mustDay("2024-01-10"), Value: decimal.RequireFromString("252")},
	}
	suite.gateway.On("FetchRecent", mock.Anything, gold, 2).Return(fetched, nil).Once()

	points, err := suite.service.GetRecent(context.Background(), gold, 2)
	suite.Require().NoError(err)
	suite.Require().Len(points, 2)
	suite.Equal("2024-01-10", domain.FormatDate(points[1].EffectiveDate))
	suite.Equal(domain.CategoryGold, points[1].Category)
}

func (suite *MarketDataServiceTestSuite) TestGetRecent_EmptyUpstreamKeepsCache() {
	suite.store.put(domain.GoldCode, mustDay("2024-01-03"), "249")
	suite.gateway.On("FetchRecent", mock.Anything, gold, 10).Return([]domain.RatePoint{}, nil).Once()

	points, err := suite.service.GetRecent(context.Background(), gold, 10)
	suite.Require().NoError(err)
	suite.Len(points, 1)

	_, err = suite.service.GetRecent(context.Background(), gold, 0)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- concurrency ---

func TestGetOrFetchOnDate_AtMostOneFetch(t *testing.T) {
	store := newMemoryRateStore()
	gw := &slowPointGateway{delay: 50 * time.Millisecond, value: decimal.RequireFromString("4.05")}
	svc := services.NewMarketDataService(store, gw, lock.NewMemoryLocker(),
		services.WithLockPolicy(locking.Policy{Wait: 5 * time.Second, Lease: 5 * time.Second}),
		services.WithClock(func() time.Time { return fixedNow }),
	)

	const callers = 16
	results := make([]*domain.RatePoint, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrFetchOnDate(context.Background(), usd, mustDay("2024-01-10"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), gw.calls)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, decimal.RequireFromString("4.05").Equal(results[i].Value))
	}
	assert.Equal(t, 1, store.count("USD"))
}
