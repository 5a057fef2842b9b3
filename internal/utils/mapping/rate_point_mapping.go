package mapping

import (
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/models"
)

// ToModelRatePoint converts a domain RatePoint to a model RatePoint.
// The value is rounded to the column precision and the date stripped of its clock.
func ToModelRatePoint(d domain.RatePoint) models.RatePoint {
	return models.RatePoint{
		InstrumentCode: domain.NormalizeCode(d.InstrumentCode),
		Value:          domain.RoundValue(d.Value),
		Category:       d.Category,
		EffectiveDate:  domain.DateOf(d.EffectiveDate),
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainRatePoint converts a model RatePoint to a domain RatePoint
func ToDomainRatePoint(m models.RatePoint) domain.RatePoint {
	return domain.RatePoint{
		InstrumentCode: m.InstrumentCode,
		EffectiveDate:  domain.DateOf(m.EffectiveDate),
		Value:          m.Value,
		Category:       m.Category,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainRatePointSlice converts a slice of model RatePoints to a slice of domain RatePoints
func ToDomainRatePointSlice(ms []models.RatePoint) []domain.RatePoint {
	ds := make([]domain.RatePoint, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainRatePoint(m)
	}
	return ds
}
