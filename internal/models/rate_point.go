package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatePoint is a row of the rate_points table.
// Value is numeric(10,4); EffectiveDate is a date column.
type RatePoint struct {
	ID             int64           `db:"id"`
	InstrumentCode string          `db:"instrument_code"` // FK -> instruments.code
	Value          decimal.Decimal `db:"value"`
	Category       string          `db:"category"`
	EffectiveDate  time.Time       `db:"effective_date"`
	AuditFields
}
