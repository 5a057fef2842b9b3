package mapping

import (
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/models"
)

// ToModelInstrument converts a domain Instrument to a model Instrument
func ToModelInstrument(d domain.Instrument) models.Instrument {
	return models.Instrument{
		Code:        domain.NormalizeCode(d.Code),
		Name:        d.Name,
		Category:    d.Category,
		AuditFields: ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainInstrument converts a model Instrument to a domain Instrument
func ToDomainInstrument(m models.Instrument) domain.Instrument {
	return domain.Instrument{
		Code:        m.Code,
		Name:        m.Name,
		Category:    m.Category,
		AuditFields: ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainInstrumentSlice converts a slice of model Instruments to a slice of domain Instruments
func ToDomainInstrumentSlice(ms []models.Instrument) []domain.Instrument {
	ds := make([]domain.Instrument, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainInstrument(m)
	}
	return ds
}
