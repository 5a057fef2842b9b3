package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QueryState names a step of a cache lookup for one query key.
type QueryState string

const (
	StateNotCached             QueryState = "NOT_CACHED"
	StateChecking              QueryState = "CHECKING"
	StateLockWait              QueryState = "LOCK_WAIT"
	StateFetching              QueryState = "FETCHING"
	StateReconciling           QueryState = "RECONCILING"
	StateCached                QueryState = "CACHED"
	StateMissNoFallback        QueryState = "MISS_NO_FALLBACK"
	StateMissWithStaleFallback QueryState = "MISS_WITH_STALE_FALLBACK"
)

// SingleValue is the answer to a one-date lookup.
type SingleValue struct {
	InstrumentCode string
	Value          decimal.Decimal
	Date           time.Time
	FromCache      bool
}

// CurrentValue is the answer to a current-value lookup. Value and
// EffectiveDate are nil when nothing is known; Error is set when the value
// could not be revalidated (it may then be stale).
type CurrentValue struct {
	InstrumentCode string
	Value          *decimal.Decimal
	EffectiveDate  *time.Time
	FromCache      bool
	Error          bool
}

// CurrentFromPoint builds a successful CurrentValue from a stored point.
func CurrentFromPoint(p RatePoint, fromCache bool) CurrentValue {
	value := p.Value
	date := p.EffectiveDate
	return CurrentValue{
		InstrumentCode: p.InstrumentCode,
		Value:          &value,
		EffectiveDate:  &date,
		FromCache:      fromCache,
	}
}

// Trend is the answer to a range lookup, points sorted oldest first.
type Trend struct {
	InstrumentCode string
	Points         []RatePoint
	FromCache      bool
}
