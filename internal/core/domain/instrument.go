package domain

import "strings"

// Source categories. Currencies are published in NBP fixing tables A and B;
// gold has its own price list.
const (
	CategoryTableA = "A"
	CategoryTableB = "B"
	CategoryGold   = "GOLD"
)

// GoldCode is the code of the gold-price pseudo-instrument.
const GoldCode = "XAU"

// Instrument is a tracked item: a currency or the gold price.
type Instrument struct {
	Code     string `json:"code"`     // Primary Key (e.g., "USD", "XAU")
	Name     string `json:"name"`     // e.g., "dolar amerykański"
	Category string `json:"category"` // "A", "B" or "GOLD"
	AuditFields
}

// IsGold reports whether the instrument is the gold-price pseudo-instrument.
func (i Instrument) IsGold() bool {
	return i.Category == CategoryGold || strings.EqualFold(i.Code, GoldCode)
}

// NormalizeCode upper-cases and trims an instrument code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsCurrencyCategory reports whether category names an NBP currency table.
func IsCurrencyCategory(category string) bool {
	return category == CategoryTableA || category == CategoryTableB
}

// GoldInstrument returns the gold pseudo-instrument as seeded in the catalog.
func GoldInstrument() Instrument {
	return Instrument{Code: GoldCode, Name: "Gold (1g, NBP fixing)", Category: CategoryGold}
}
