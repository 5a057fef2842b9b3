package dto

import (
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SingleRateQuery selects a currency's fixing on one date.
type SingleRateQuery struct {
	Currency string `form:"currency" binding:"required,len=3,alpha"`
	Date     string `form:"date" binding:"required,nbpdate"`
}

// RateTrendQuery selects a currency's fixings over an inclusive date range.
type RateTrendQuery struct {
	Currency string `form:"currency" binding:"required,len=3,alpha"`
	From     string `form:"from" binding:"required,nbpdate"`
	To       string `form:"to" binding:"required,nbpdate"`
}

// GoldPriceQuery selects the gold price on one date.
type GoldPriceQuery struct {
	Date string `form:"date" binding:"required,nbpdate"`
}

// GoldTrendQuery selects gold prices over an inclusive date range.
type GoldTrendQuery struct {
	From string `form:"from" binding:"required,nbpdate"`
	To   string `form:"to" binding:"required,nbpdate"`
}

// RecentQuery bounds a recent-window request.
type RecentQuery struct {
	Days int `form:"days,default=10" binding:"min=1,max=255"`
}

// SingleValueResponse is the JSON body of a one-date lookup.
type SingleValueResponse struct {
	Value     decimal.Decimal `json:"value"`
	Date      string          `json:"date"`
	Currency  string          `json:"currency,omitempty"`
	TableNo   *string         `json:"tableNo"`
	FromCache bool            `json:"fromCache"`
}

// TrendPoint is one sample of a trend response.
type TrendPoint struct {
	Date    string          `json:"date"`
	Value   decimal.Decimal `json:"value"`
	TableNo *string         `json:"tableNo"`
}

// TrendResponse is the JSON body of a range lookup.
type TrendResponse struct {
	Data      []TrendPoint `json:"data"`
	Currency  string       `json:"currency,omitempty"`
	FromCache bool         `json:"fromCache"`
}

// GoldChartPoint is one sample of the dashboard gold chart.
type GoldChartPoint struct {
	Price decimal.Decimal `json:"price"`
	Date  string          `json:"date"`
}

// CurrentValueResponse is the JSON body of a current-value lookup.
type CurrentValueResponse struct {
	Code          string           `json:"code"`
	Name          string           `json:"name,omitempty"`
	Rate          *decimal.Decimal `json:"rate"`
	EffectiveDate *string          `json:"effectiveDate"`
	FromCache     bool             `json:"fromCache"`
	Error         bool             `json:"error"`
}

func tableNo(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := domain.FormatDate(*t)
	return &s
}

// ToSingleValueResponse converts a one-date lookup result. Currency is empty for gold.
func ToSingleValueResponse(v *domain.SingleValue, currency string) SingleValueResponse {
	return SingleValueResponse{
		Value:     v.Value,
		Date:      domain.FormatDate(v.Date),
		Currency:  currency,
		FromCache: v.FromCache,
	}
}

// ToTrendResponse converts a range lookup result. Currency is empty for gold.
func ToTrendResponse(t *domain.Trend, currency string) TrendResponse {
	data := make([]TrendPoint, len(t.Points))
	for i, p := range t.Points {
		data[i] = TrendPoint{
			Date:    domain.FormatDate(p.EffectiveDate),
			Value:   p.Value,
			TableNo: tableNo(p.TableNo),
		}
	}
	return TrendResponse{Data: data, Currency: currency, FromCache: t.FromCache}
}

// ToGoldChart converts a recent window into chart points, oldest first.
func ToGoldChart(points []domain.RatePoint) []GoldChartPoint {
	chart := make([]GoldChartPoint, len(points))
	for i, p := range points {
		chart[i] = GoldChartPoint{Price: p.Value, Date: domain.FormatDate(p.EffectiveDate)}
	}
	return chart
}

// ToCurrentValueResponse converts a current-value result.
func ToCurrentValueResponse(inst domain.Instrument, cv domain.CurrentValue) CurrentValueResponse {
	return CurrentValueResponse{
		Code:          inst.Code,
		Name:          inst.Name,
		Rate:          cv.Value,
		EffectiveDate: datePtr(cv.EffectiveDate),
		FromCache:     cv.FromCache,
		Error:         cv.Error,
	}
}
