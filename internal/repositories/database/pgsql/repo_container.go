package pgsql

import (
	portsrepo "github.com/SscSPs/rates_tracker_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		InstrumentRepo: newPgxInstrumentRepository(dbPool),
		RatePointRepo:  newPgxRatePointRepository(dbPool),
		WatchlistRepo:  newPgxWatchlistRepository(dbPool),
	}
}
