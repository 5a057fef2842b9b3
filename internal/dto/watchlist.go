package dto

import (
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FollowInstrumentRequest adds an instrument to the caller's watchlist.
type FollowInstrumentRequest struct {
	InstrumentCode string `json:"instrumentCode" binding:"required,min=3,max=3,alpha"`
}

// SparklinePointResponse is one sample of a card sparkline.
type SparklinePointResponse struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// WatchlistCardResponse is the JSON body of one dashboard card.
type WatchlistCardResponse struct {
	Code          string                   `json:"code"`
	Name          string                   `json:"name"`
	Rate          *decimal.Decimal         `json:"rate"`
	EffectiveDate *string                  `json:"effectiveDate"`
	Change        decimal.Decimal          `json:"change"`
	SparklineData []SparklinePointResponse `json:"sparklineData"`
	Error         bool                     `json:"error"`
}

// DashboardResponse bundles the gold chart and the caller's watchlist cards.
type DashboardResponse struct {
	GoldPrices []GoldChartPoint        `json:"goldPrices"`
	Watchlist  []WatchlistCardResponse `json:"watchlist"`
}

// ToWatchlistCardResponse converts a domain.WatchlistCard.
func ToWatchlistCardResponse(card domain.WatchlistCard) WatchlistCardResponse {
	spark := make([]SparklinePointResponse, len(card.Sparkline))
	for i, p := range card.Sparkline {
		spark[i] = SparklinePointResponse{Date: p.Date, Value: p.Value}
	}
	return WatchlistCardResponse{
		Code:          card.Code,
		Name:          card.Name,
		Rate:          card.Value,
		EffectiveDate: datePtr(card.EffectiveDate),
		Change:        card.Change,
		SparklineData: spark,
		Error:         card.Error,
	}
}

// ToListWatchlistCardResponse converts a slice of domain.WatchlistCard.
func ToListWatchlistCardResponse(cards []domain.WatchlistCard) []WatchlistCardResponse {
	res := make([]WatchlistCardResponse, len(cards))
	for i, card := range cards {
		res[i] = ToWatchlistCardResponse(card)
	}
	return res
}
