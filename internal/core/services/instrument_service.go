package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/domain"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
)

type instrumentService struct {
	BaseService
	instrumentRepo portsrepo.InstrumentRepositoryFacade
	catalog        gateways.CatalogGateway
	marketData     portssvc.MarketDataReaderSvc
}

// NewInstrumentService creates a new instrument catalog service
func NewInstrumentService(
	repo portsrepo.InstrumentRepositoryFacade,
	catalog gateways.CatalogGateway,
	marketData portssvc.MarketDataReaderSvc,
) portssvc.InstrumentSvcFacade {
	return &instrumentService{
		instrumentRepo: repo,
		catalog:        catalog,
		marketData:     marketData,
	}
}

var _ portssvc.InstrumentSvcFacade = (*instrumentService)(nil)

// GetInstrument implements InstrumentReaderSvc.
func (s *instrumentService) GetInstrument(ctx context.Context, code string) (*domain.Instrument, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, apperrors.NewValidationError("instrument code is required")
	}
	inst, err := s.instrumentRepo.FindInstrumentByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("instrument " + code + " not found")
		}
		s.LogError(ctx, err, "Failed to get instrument", slog.String("code", code))
		return nil, fmt.Errorf("get instrument %s: %w", code, err)
	}
	return inst, nil
}

// ListInstruments implements InstrumentReaderSvc.
func (s *instrumentService) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	insts, err := s.instrumentRepo.ListInstruments(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to list instruments")
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	return insts, nil
}

// SyncCatalog implements InstrumentWriterSvc. An empty upstream table is
// reported as a failed category; existing instruments are never removed.
func (s *instrumentService) SyncCatalog(ctx context.Context, categories []string) (portssvc.SyncReport, error) {
	var report portssvc.SyncReport
	for _, category := range categories {
		if !domain.IsCurrencyCategory(category) {
			return report, apperrors.NewValidationError(fmt.Sprintf("unsupported table %q", category))
		}
		insts, err := s.catalog.ListInstruments(ctx, category)
		if err != nil {
			return report, err
		}
		if len(insts) == 0 {
			s.LogWarn(ctx, "No instruments returned for table", slog.String("table", category))
			report.Failed = append(report.Failed, category)
			continue
		}
		for _, inst := range insts {
			if err := s.instrumentRepo.SaveInstrument(ctx, inst); err != nil {
				s.LogError(ctx, err, "Failed to save instrument", slog.String("code", inst.Code))
				report.Failed = append(report.Failed, inst.Code)
				continue
			}
			report.Processed++
		}
		s.LogInfo(ctx, "Synced instrument table", slog.String("table", category), slog.Int("instruments", len(insts)))
	}
	return report, nil
}

// SeedCatalogIfEmpty implements InstrumentWriterSvc.
func (s *instrumentService) SeedCatalogIfEmpty(ctx context.Context) (bool, error) {
	n, err := s.instrumentRepo.CountInstruments(ctx)
	if err != nil {
		return false, fmt.Errorf("count instruments: %w", err)
	}
	// gold is seeded with the schema
	if n > 1 {
		return false, nil
	}
	report, err := s.SyncCatalog(ctx, []string{domain.CategoryTableA})
	if err != nil {
		return false, err
	}
	return report.Processed > 0, nil
}

// CacheCurrentRates implements InstrumentWriterSvc.
func (s *instrumentService) CacheCurrentRates(ctx context.Context, code string) (portssvc.SyncReport, error) {
	var insts []domain.Instrument
	if code != "" {
		inst, err := s.GetInstrument(ctx, code)
		if err != nil {
			return portssvc.SyncReport{}, err
		}
		insts = []domain.Instrument{*inst}
	} else {
		all, err := s.ListInstruments(ctx)
		if err != nil {
			return portssvc.SyncReport{}, err
		}
		for _, inst := range all {
			if domain.IsCurrencyCategory(inst.Category) {
				insts = append(insts, inst)
			}
		}
	}

	currents, err := s.marketData.GetCurrentForInstruments(ctx, insts)
	if err != nil {
		return portssvc.SyncReport{}, err
	}
	var report portssvc.SyncReport
	for _, cv := range currents {
		if cv.Error {
			report.Failed = append(report.Failed, cv.InstrumentCode)
			continue
		}
		report.Processed++
	}
	s.LogInfo(ctx, "Cached current rates", slog.Int("processed", report.Processed), slog.Int("failed", len(report.Failed)))
	return report, nil
}
