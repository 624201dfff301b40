package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
)

// Normalizer converts amounts between currencies. Lookups go direct
// first, then fall back to inverting the reverse pair. When neither is
// available the caller gets contracts.ErrRateUnavailable; a rate of 1.0
// is never silently substituted.
//
// Resolved rates are cached per (pair, date) for a bounded duration
// through the injected cache; correctness never depends on a hit.
type Normalizer struct {
	source contracts.CurrencySource
	cache  contracts.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewNormalizer creates a currency normalizer. cache may be nil.
func NewNormalizer(source contracts.CurrencySource, cache contracts.Cache, ttl time.Duration, log *logger.Logger) *Normalizer {
	return &Normalizer{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithComponent("fx"),
	}
}

// Rate resolves the current conversion rate for a pair
func (n *Normalizer) Rate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}

	key := rateKey(from, to, nil)
	if rate, ok := n.cached(ctx, key); ok {
		return rate, nil
	}

	rate, err := n.resolve(ctx, from, to, func(a, b string) (float64, error) {
		return n.source.GetRate(ctx, a, b)
	})
	if err != nil {
		return 0, err
	}

	n.store(ctx, key, rate)
	return rate, nil
}

// RateAt resolves the conversion rate nearest to a historical date
func (n *Normalizer) RateAt(ctx context.Context, from, to string, date time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}

	key := rateKey(from, to, &date)
	if rate, ok := n.cached(ctx, key); ok {
		return rate, nil
	}

	rate, err := n.resolve(ctx, from, to, func(a, b string) (float64, error) {
		return n.source.GetHistoricalRate(ctx, a, b, date)
	})
	if err != nil {
		return 0, err
	}

	n.store(ctx, key, rate)
	return rate, nil
}

// Convert converts an amount at the current rate
func (n *Normalizer) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rate, err := n.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// ConvertAt converts an amount at the rate nearest a historical date
func (n *Normalizer) ConvertAt(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error) {
	rate, err := n.RateAt(ctx, from, to, date)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// resolve tries the direct pair, then the inverted inverse pair
func (n *Normalizer) resolve(ctx context.Context, from, to string, lookup func(a, b string) (float64, error)) (float64, error) {
	rate, err := lookup(from, to)
	if err == nil && rate > 0 {
		return rate, nil
	}
	if err != nil && !errors.Is(err, contracts.ErrRateUnavailable) {
		return 0, err
	}

	inverse, err := lookup(to, from)
	if err == nil && inverse > 0 {
		return 1 / inverse, nil
	}
	if err != nil && !errors.Is(err, contracts.ErrRateUnavailable) {
		return 0, err
	}

	n.logger.WithFields(map[string]interface{}{
		"from": from,
		"to":   to,
	}).Debug("No FX rate in either direction")

	return 0, fmt.Errorf("%w: %s/%s", contracts.ErrRateUnavailable, from, to)
}

func (n *Normalizer) cached(ctx context.Context, key string) (float64, bool) {
	if n.cache == nil {
		return 0, false
	}
	var rate float64
	found, err := n.cache.Get(ctx, key, &rate)
	if err != nil || !found {
		return 0, false
	}
	return rate, true
}

func (n *Normalizer) store(ctx context.Context, key string, rate float64) {
	if n.cache == nil {
		return
	}
	if err := n.cache.Set(ctx, key, rate, n.ttl); err != nil {
		n.logger.WithError(err).Debug("FX rate cache write failed")
	}
}

func rateKey(from, to string, date *time.Time) string {
	if date == nil {
		return redis.FXRateKey(from, to, "latest")
	}
	return redis.FXRateKey(from, to, date.UTC().Format("2006-01-02"))
}
