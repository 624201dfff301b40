package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// RateStore is the FX persistence surface the currency service needs
type RateStore interface {
	GetLatest(ctx context.Context, from, to string) (float64, error)
	GetNearest(ctx context.Context, from, to string, date time.Time) (float64, error)
	Save(ctx context.Context, from, to string, date time.Time, rate float64) error
}

// RateProvider fetches a current rate from an external source
type RateProvider interface {
	FetchRate(ctx context.Context, from, to string) (float64, time.Time, error)
}

// CurrencyService implements contracts.CurrencySource. Current rates
// fall through to the provider when the store has nothing; historical
// rates are store-only since providers serve only the present.
type CurrencyService struct {
	store    RateStore
	provider RateProvider
	logger   *logger.Logger
}

// NewCurrencyService creates a currency service. provider may be nil.
func NewCurrencyService(store RateStore, provider RateProvider, log *logger.Logger) *CurrencyService {
	return &CurrencyService{
		store:    store,
		provider: provider,
		logger:   log.WithComponent("currency"),
	}
}

// GetRate returns the current rate for a pair
func (s *CurrencyService) GetRate(ctx context.Context, from, to string) (float64, error) {
	rate, err := s.store.GetLatest(ctx, from, to)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, contracts.ErrRateUnavailable) {
		return 0, err
	}

	if s.provider == nil {
		return 0, err
	}

	rate, asOf, err := s.provider.FetchRate(ctx, from, to)
	if err != nil {
		return 0, err
	}

	if saveErr := s.store.Save(ctx, from, to, asOf, rate); saveErr != nil {
		s.logger.WithError(saveErr).Warn("FX rate save failed")
	}
	return rate, nil
}

// GetHistoricalRate returns the stored rate nearest to a date
func (s *CurrencyService) GetHistoricalRate(ctx context.Context, from, to string, date time.Time) (float64, error) {
	return s.store.GetNearest(ctx, from, to, date)
}

// RefreshRates fetches and stores current rates for a set of pairs.
// Used by the scheduler; each pair fails independently.
func (s *CurrencyService) RefreshRates(ctx context.Context, pairs [][2]string) int {
	if s.provider == nil {
		return 0
	}

	refreshed := 0
	for _, pair := range pairs {
		rate, asOf, err := s.provider.FetchRate(ctx, pair[0], pair[1])
		if err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"from": pair[0],
				"to":   pair[1],
			}).Warn("FX rate refresh failed")
			continue
		}
		if err := s.store.Save(ctx, pair[0], pair[1], asOf, rate); err != nil {
			s.logger.WithError(err).Warn("FX rate save failed")
			continue
		}
		refreshed++
	}
	return refreshed
}
