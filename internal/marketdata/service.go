package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
)

// PriceStore is the persistence surface the service needs
type PriceStore interface {
	GetRange(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PricePoint, error)
	GetLatest(ctx context.Context, symbol string) (*contracts.PricePoint, error)
	LatestTimestamp(ctx context.Context, symbol string) (time.Time, error)
	SaveBatch(ctx context.Context, points []contracts.PricePoint) error
}

// HistoryProvider fetches a daily price series from an external source
type HistoryProvider interface {
	FetchDailyPrices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error)
}

// QuoteProvider fetches the latest price from an external source
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (*contracts.Quote, error)
}

// Service implements contracts.PriceSource on top of the price store,
// with external providers filling gaps. History providers are tried in
// order; the first one that returns data wins.
type Service struct {
	store     PriceStore
	providers []HistoryProvider
	quotes    QuoteProvider
	cache     contracts.Cache
	logger    *logger.Logger
}

// NewService creates a market data service. quotes and cache may be nil.
func NewService(store PriceStore, providers []HistoryProvider, quotes QuoteProvider, cache contracts.Cache, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		providers: providers,
		quotes:    quotes,
		cache:     cache,
		logger:    log.WithComponent("marketdata"),
	}
}

// GetPrice returns the latest known price for a symbol. A live quote is
// preferred; the newest stored observation is the fallback.
func (s *Service) GetPrice(ctx context.Context, symbol string) (*contracts.Quote, error) {
	key := redis.QuoteKey(symbol)
	if s.cache != nil {
		var cached contracts.Quote
		if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	if s.quotes != nil {
		quote, err := s.quotes.FetchQuote(ctx, symbol)
		if err == nil {
			s.cacheQuote(ctx, key, quote)
			return quote, nil
		}
		s.logger.WithError(err).WithField("symbol", symbol).Debug("Live quote failed, falling back to store")
	}

	latest, err := s.store.GetLatest(ctx, symbol)
	if err != nil {
		return nil, err
	}

	quote := &contracts.Quote{
		Symbol:   latest.Symbol,
		Price:    latest.Price,
		Currency: latest.Currency,
		AsOf:     latest.Timestamp,
	}
	s.cacheQuote(ctx, key, quote)
	return quote, nil
}

// GetPriceHistory returns the stored ascending series for a range
func (s *Service) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PricePoint, error) {
	return s.store.GetRange(ctx, symbol, start, end)
}

// EnsurePriceHistory backfills the store from external providers when the
// stored series does not reach the end of the requested range. Returns
// the number of points fetched.
func (s *Service) EnsurePriceHistory(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	latest, err := s.store.LatestTimestamp(ctx, symbol)
	if err != nil {
		return 0, err
	}

	fetchFrom := start
	if !latest.IsZero() {
		if !latest.Before(end) {
			return 0, nil // already covered
		}
		next := latest.AddDate(0, 0, 1)
		if next.After(fetchFrom) {
			fetchFrom = next
		}
	}

	var lastErr error
	for _, provider := range s.providers {
		points, err := provider.FetchDailyPrices(ctx, symbol, fetchFrom, end)
		if err != nil {
			lastErr = err
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Provider fetch failed, trying next")
			continue
		}
		if len(points) == 0 {
			continue
		}

		if err := s.store.SaveBatch(ctx, points); err != nil {
			return 0, fmt.Errorf("save fetched prices: %w", err)
		}

		s.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"count":  len(points),
			"from":   fetchFrom.Format("2006-01-02"),
			"to":     end.Format("2006-01-02"),
		}).Info("Backfilled price history")
		return len(points), nil
	}

	return 0, lastErr
}

// Backfill ensures history for many symbols concurrently. Each symbol
// fails independently; the error map holds only the failures.
func (s *Service) Backfill(ctx context.Context, symbols []string, start, end time.Time) (int, map[string]error) {
	const maxConcurrent = 4

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		total    int
		failures = make(map[string]error)
	)
	sem := make(chan struct{}, maxConcurrent)

	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			count, err := s.EnsurePriceHistory(ctx, symbol, start, end)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[symbol] = err
				return
			}
			total += count
		}(symbol)
	}
	wg.Wait()

	if len(failures) > 0 {
		s.logger.WithField("failed", len(failures)).Warn("Backfill completed with failures")
	}
	return total, failures
}

func (s *Service) cacheQuote(ctx context.Context, key string, quote *contracts.Quote) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, quote, redis.TTLShort); err != nil {
		s.logger.WithError(err).Debug("Quote cache write failed")
	}
}
