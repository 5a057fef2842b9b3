package models

// Instrument is a row of the instruments table.
type Instrument struct {
	Code     string `db:"code"` // Primary Key (e.g., "USD")
	Name     string `db:"name"`
	Category string `db:"category"`
	AuditFields
}
