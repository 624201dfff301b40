package contracts

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across the engine and its collaborators
var (
	// ErrRateUnavailable means no FX rate could be obtained for a pair.
	// Callers must handle it explicitly; a rate of 1.0 is never substituted.
	ErrRateUnavailable = errors.New("fx rate unavailable")

	// ErrNoHoldings is the one hard precondition failure: a portfolio with
	// no replayable holdings at all.
	ErrNoHoldings = errors.New("portfolio has no holdings")

	// ErrPriceUnavailable means no price is known for a symbol
	ErrPriceUnavailable = errors.New("price unavailable")
)

// LedgerSource lists replayable events. Ordering is guaranteed as
// (event date, insertion order) since replay is order-sensitive.
type LedgerSource interface {
	ListEvents(ctx context.Context, portfolioID string, asOf *time.Time) ([]LedgerEvent, error)
}

// PriceSource provides current and historical prices.
// GetPriceHistory returns an ascending series. EnsurePriceHistory triggers
// a provider backfill and reports how many points were fetched.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (*Quote, error)
	GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]PricePoint, error)
	EnsurePriceHistory(ctx context.Context, symbol string, start, end time.Time) (int, error)
}

// CurrencySource provides FX rates. Both methods return
// ErrRateUnavailable when no rate can be obtained.
type CurrencySource interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
	GetHistoricalRate(ctx context.Context, from, to string, date time.Time) (float64, error)
}

// Cache is the injected read-through cache abstraction. Implementations
// may drop everything; correctness never depends on a hit.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
