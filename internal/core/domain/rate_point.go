package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ValuePrecision is the number of decimal places a stored value keeps.
const ValuePrecision = 4

// RatePoint is the value an instrument is fixed at on one effective date.
// At most one RatePoint exists per (InstrumentCode, EffectiveDate).
type RatePoint struct {
	InstrumentCode string          `json:"instrumentCode"`
	EffectiveDate  time.Time       `json:"effectiveDate"` // calendar date, midnight UTC
	Value          decimal.Decimal `json:"value"`
	Category       string          `json:"category"`
	TableNo        string          `json:"tableNo,omitempty"` // NBP table number, not persisted
	AuditFields
}

// RoundValue rounds a value to the stored precision.
func RoundValue(v decimal.Decimal) decimal.Decimal {
	return v.Round(ValuePrecision)
}

// SortRatePoints orders points by effective date, oldest first.
func SortRatePoints(points []RatePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].EffectiveDate.Before(points[j].EffectiveDate)
	})
}
