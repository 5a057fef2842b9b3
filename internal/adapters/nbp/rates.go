package nbp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
)

func validateInstrument(inst domain.Instrument) error {
	if inst.Code == "" {
		return fmt.Errorf("%w: instrument code is required", apperrors.ErrValidation)
	}
	if !inst.IsGold() && !domain.IsCurrencyCategory(inst.Category) {
		return fmt.Errorf("%w: instrument %s has unsupported category %q", apperrors.ErrValidation, inst.Code, inst.Category)
	}
	return nil
}

// seriesPath builds the lower-cased path of an instrument query; suffix is
// "", "/{date}", "/{start}/{end}" or "/last/{n}".
func seriesPath(inst domain.Instrument, suffix string) (endpoint, path string) {
	if inst.IsGold() {
		return "gold", "/cenyzlota" + suffix
	}
	return "rates", fmt.Sprintf("/exchangerates/rates/%s/%s%s", strings.ToLower(inst.Category), strings.ToLower(strings.TrimSpace(inst.Code)), suffix)
}

func (c *Client) fetchSeries(ctx context.Context, inst domain.Instrument, suffix string, attrs ...any) series {
	endpoint, path := seriesPath(inst, suffix)
	attrs = append(attrs, "instrument", inst.Code, "category", inst.Category)

	body, err := c.get(ctx, endpoint, path)
	if err != nil {
		c.logFailure(ctx, "NBP API error fetching series", err, attrs...)
		return emptySeries()
	}

	var s series
	if inst.IsGold() {
		s = parseGoldSeries(body)
	} else {
		s = parseRateSeries(body, inst)
	}
	if s.kind != seriesValid {
		c.logger.WarnContext(ctx, "NBP API returned unexpected payload", attrs...)
	}
	return s
}

// FetchPoint implements gateways.RateGateway.
func (c *Client) FetchPoint(ctx context.Context, inst domain.Instrument, date time.Time) (*domain.RatePoint, error) {
	if err := validateInstrument(inst); err != nil {
		return nil, err
	}
	day := domain.FormatDate(date)
	p, ok := c.fetchSeries(ctx, inst, "/"+day, "date", day).first()
	if !ok {
		return nil, gateways.ErrNotFound
	}
	return p, nil
}

// FetchCurrent implements gateways.RateGateway.
func (c *Client) FetchCurrent(ctx context.Context, inst domain.Instrument) (*domain.RatePoint, error) {
	if err := validateInstrument(inst); err != nil {
		return nil, err
	}
	p, ok := c.fetchSeries(ctx, inst, "").last()
	if !ok {
		return nil, gateways.ErrNotFound
	}
	return p, nil
}

// FetchRange implements gateways.RateGateway.
func (c *Client) FetchRange(ctx context.Context, inst domain.Instrument, start, end time.Time) ([]domain.RatePoint, error) {
	if err := validateInstrument(inst); err != nil {
		return nil, err
	}
	r, err := domain.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	if err := r.CheckSpan(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	from, to := domain.FormatDate(r.Start), domain.FormatDate(r.End)
	s := c.fetchSeries(ctx, inst, "/"+from+"/"+to, "start", from, "end", to)
	return rangeOnly(s.points, r), nil
}

// FetchRecent implements gateways.RateGateway.
func (c *Client) FetchRecent(ctx context.Context, inst domain.Instrument, n int) ([]domain.RatePoint, error) {
	if err := validateInstrument(inst); err != nil {
		return nil, err
	}
	if n < 1 || n > MaxRecent {
		return nil, fmt.Errorf("%w: recent count must be between 1 and %d, got %d", apperrors.ErrValidation, MaxRecent, n)
	}
	s := c.fetchSeries(ctx, inst, fmt.Sprintf("/last/%d", n), "n", n)
	if s.points == nil {
		return []domain.RatePoint{}, nil
	}
	return s.points, nil
}

// ListInstruments implements gateways.CatalogGateway.
func (c *Client) ListInstruments(ctx context.Context, category string) ([]domain.Instrument, error) {
	if !domain.IsCurrencyCategory(category) {
		return nil, fmt.Errorf("%w: unsupported table %q", apperrors.ErrValidation, category)
	}
	body, err := c.get(ctx, "tables", "/exchangerates/tables/"+strings.ToLower(category))
	if err != nil {
		c.logFailure(ctx, "NBP API error fetching table", err, "table", category)
		return []domain.Instrument{}, nil
	}
	insts := parseTable(body, category)
	if insts == nil {
		c.logger.WarnContext(ctx, "NBP API returned unexpected table payload", "table", category)
		return []domain.Instrument{}, nil
	}
	return insts, nil
}

// rangeOnly drops points upstream returned outside the requested range.
func rangeOnly(points []domain.RatePoint, r domain.DateRange) []domain.RatePoint {
	out := make([]domain.RatePoint, 0, len(points))
	for _, p := range points {
		if p.EffectiveDate.Before(r.Start) || p.EffectiveDate.After(r.End) {
			continue
		}
		out = append(out, p)
	}
	return out
}
