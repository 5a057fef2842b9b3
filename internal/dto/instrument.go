package dto

import (
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
)

// InstrumentResponse defines the data returned for a catalog instrument.
type InstrumentResponse struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToInstrumentResponse converts a domain.Instrument to InstrumentResponse DTO
func ToInstrumentResponse(inst *domain.Instrument) InstrumentResponse {
	return InstrumentResponse{
		Code:      inst.Code,
		Name:      inst.Name,
		Category:  inst.Category,
		CreatedAt: inst.CreatedAt,
		UpdatedAt: inst.UpdatedAt,
	}
}

// ToListInstrumentResponse converts a slice of domain.Instrument to a slice of InstrumentResponse DTOs
func ToListInstrumentResponse(insts []domain.Instrument) []InstrumentResponse {
	res := make([]InstrumentResponse, len(insts))
	for i := range insts {
		res[i] = ToInstrumentResponse(&insts[i])
	}
	return res
}
