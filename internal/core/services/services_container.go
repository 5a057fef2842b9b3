package services

import (
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/rates_tracker_app/internal/core/ports/services"
	"github.com/SscSPs/rates_tracker_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	gateway gateways.MarketDataGateway,
	locker locking.Locker,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	container.MarketData = NewMarketDataService(
		repos.RatePointRepo,
		gateway,
		locker,
		WithLockPolicy(locking.Policy{Wait: cfg.LockWait, Lease: cfg.LockLease}),
		WithLocation(loc),
	)
	container.Instrument = NewInstrumentService(repos.InstrumentRepo, gateway, container.MarketData)
	container.Watchlist = NewWatchlistService(
		repos.WatchlistRepo,
		container.Instrument,
		repos.RatePointRepo,
		container.MarketData,
		WithWatchlistLocation(loc),
	)

	return container
}
