package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/iter"
)

const (
	// SparklineDays is the trailing window of a watchlist card, in calendar days.
	SparklineDays = 14
	// SparklineDateLayout labels sparkline points, e.g. "Jan 5".
	SparklineDateLayout = "Jan 2"

	cardConcurrency = 4
	minSparkline    = 2
)

type watchlistService struct {
	BaseService
	watchlistRepo portsrepo.WatchlistRepositoryFacade
	instrumentSvc portssvc.InstrumentReaderSvc
	rateRepo      portsrepo.RatePointReader
	marketData    portssvc.MarketDataSvcFacade
	now           func() time.Time
	location      *time.Location
}

// WatchlistOption is a functional option for configuring the watchlist service
type WatchlistOption func(*watchlistService)

// WithWatchlistClock replaces time.Now.
func WithWatchlistClock(now func() time.Time) WatchlistOption {
	return func(s *watchlistService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWatchlistLocation sets the time zone the sparkline window is computed in.
func WithWatchlistLocation(loc *time.Location) WatchlistOption {
	return func(s *watchlistService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewWatchlistService creates a new watchlist service
func NewWatchlistService(
	watchlistRepo portsrepo.WatchlistRepositoryFacade,
	instrumentSvc portssvc.InstrumentReaderSvc,
	rateRepo portsrepo.RatePointReader,
	marketData portssvc.MarketDataSvcFacade,
	options ...WatchlistOption,
) portssvc.WatchlistSvcFacade {
	svc := &watchlistService{
		watchlistRepo: watchlistRepo,
		instrumentSvc: instrumentSvc,
		rateRepo:      rateRepo,
		marketData:    marketData,
		now:           time.Now,
		location:      time.UTC,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.WatchlistSvcFacade = (*watchlistService)(nil)

// ListFollowed implements WatchlistReaderSvc.
func (s *watchlistService) ListFollowed(ctx context.Context, userID string) ([]domain.Instrument, error) {
	insts, err := s.watchlistRepo.ListFollowedInstruments(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list followed instruments", slog.String("user_id", userID))
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return insts, nil
}

// Follow implements WatchlistWriterSvc.
func (s *watchlistService) Follow(ctx context.Context, userID, code string) (*domain.Instrument, error) {
	inst, err := s.instrumentSvc.GetInstrument(ctx, code)
	if err != nil {
		return nil, err
	}
	entry := domain.WatchlistEntry{UserID: userID, InstrumentCode: inst.Code, CreatedAt: s.now().UTC()}
	if err := s.watchlistRepo.AddEntry(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to follow instrument", slog.String("user_id", userID), slog.String("code", inst.Code))
		return nil, fmt.Errorf("follow %s: %w", inst.Code, err)
	}
	s.LogInfo(ctx, "Instrument followed", slog.String("user_id", userID), slog.String("code", inst.Code))
	return inst, nil
}

// Unfollow implements WatchlistWriterSvc.
func (s *watchlistService) Unfollow(ctx context.Context, userID, code string) error {
	code = domain.NormalizeCode(code)
	if err := s.watchlistRepo.RemoveEntry(ctx, userID, code); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to unfollow instrument", slog.String("user_id", userID), slog.String("code", code))
		}
		return err
	}
	return nil
}

// GetWatchlistCards implements WatchlistReaderSvc. A card whose lookups fail
// is returned with Error set; only failing to load the watchlist itself is an error.
func (s *watchlistService) GetWatchlistCards(ctx context.Context, userID string) ([]domain.WatchlistCard, error) {
	insts, err := s.ListFollowed(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(insts) == 0 {
		return []domain.WatchlistCard{}, nil
	}

	currents, err := s.marketData.GetCurrentForInstruments(ctx, insts)
	if err != nil {
		s.LogError(ctx, err, "Failed to read current values, marking all cards", slog.String("user_id", userID))
		currents = make([]domain.CurrentValue, len(insts))
		for i := range currents {
			currents[i] = domain.CurrentValue{InstrumentCode: insts[i].Code, Error: true}
		}
	}

	today := domain.DateOf(s.now().In(s.location))
	window := domain.DateRange{Start: today.AddDate(0, 0, -SparklineDays), End: today}

	idx := make([]int, len(insts))
	for i := range idx {
		idx[i] = i
	}
	mapper := iter.Mapper[int, domain.WatchlistCard]{MaxGoroutines: cardConcurrency}
	return mapper.Map(idx, func(i *int) domain.WatchlistCard {
		return s.buildCard(ctx, insts[*i], currents[*i], window)
	}), nil
}

func (s *watchlistService) buildCard(ctx context.Context, inst domain.Instrument, current domain.CurrentValue, window domain.DateRange) domain.WatchlistCard {
	card := domain.WatchlistCard{
		Code:          inst.Code,
		Name:          inst.Name,
		Value:         current.Value,
		EffectiveDate: current.EffectiveDate,
		Change:        decimal.Zero,
		Sparkline:     []domain.SparklinePoint{},
		Error:         current.Error,
	}

	points, err := s.sparklinePoints(ctx, inst, window)
	if err != nil {
		s.LogError(ctx, err, "Failed to build sparkline", slog.String("code", inst.Code))
		card.Error = true
		return card
	}

	card.Change = domain.PercentChange(points)
	for _, p := range points {
		card.Sparkline = append(card.Sparkline, domain.SparklinePoint{
			Date:  p.EffectiveDate.Format(SparklineDateLayout),
			Value: p.Value,
		})
	}
	return card
}

// sparklinePoints reads the window, hydrating it from upstream when fewer than two points are stored.
func (s *watchlistService) sparklinePoints(ctx context.Context, inst domain.Instrument, window domain.DateRange) ([]domain.RatePoint, error) {
	points, err := s.rateRepo.ListRatePointsInRange(ctx, inst.Code, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	if len(points) >= minSparkline {
		return points, nil
	}

	n, err := s.marketData.HydrateRange(ctx, inst, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return points, nil
	}
	return s.rateRepo.ListRatePointsInRange(ctx, inst.Code, window.Start, window.End)
}
