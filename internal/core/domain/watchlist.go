package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistEntry marks an instrument as followed by a user.
type WatchlistEntry struct {
	UserID         string    `json:"userID"`
	InstrumentCode string    `json:"instrumentCode"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SparklinePoint is one (label, value) sample of a card's sparkline.
type SparklinePoint struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// WatchlistCard is the dashboard summary of one followed instrument.
type WatchlistCard struct {
	Code          string
	Name          string
	Value         *decimal.Decimal
	EffectiveDate *time.Time
	Change        decimal.Decimal // percent over the sparkline window, 2 dp
	Sparkline     []SparklinePoint
	Error         bool
}

// PercentChange returns (last-first)/first*100 rounded to 2 places, or zero
// when there are fewer than two points or the first value is not positive.
func PercentChange(points []RatePoint) decimal.Decimal {
	if len(points) < 2 {
		return decimal.Zero
	}
	first := points[0].Value
	last := points[len(points)-1].Value
	if !first.IsPositive() {
		return decimal.Zero
	}
	return last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2)
}
