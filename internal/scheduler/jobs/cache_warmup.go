package jobs

import (
	"context"
	"errors"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/engine"
	"github.com/wonny/folio/backend/pkg/logger"
)

// CacheWarmupJob precomputes the expensive analytics for every known
// portfolio so the morning's first dashboard load is a cache hit.
type CacheWarmupJob struct {
	ledger SymbolLister
	engine *engine.Service
	logger *logger.Logger
}

// NewCacheWarmupJob creates a new cache warmup job
func NewCacheWarmupJob(ledger SymbolLister, eng *engine.Service, log *logger.Logger) *CacheWarmupJob {
	return &CacheWarmupJob{
		ledger: ledger,
		engine: eng,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheWarmupJob) Name() string {
	return "cache_warmup"
}

// Schedule returns the cron schedule (nightly, after the price backfill)
func (j *CacheWarmupJob) Schedule() string {
	return "0 0 23 * * MON-FRI"
}

// Run warms performance and risk metrics per portfolio. Individual
// portfolios fail independently.
func (j *CacheWarmupJob) Run(ctx context.Context) error {
	ids, err := j.ledger.ListPortfolioIDs(ctx)
	if err != nil {
		return err
	}

	warmed := 0
	for _, id := range ids {
		if _, err := j.engine.Performance(ctx, id, engine.Period{}); err != nil {
			if !errors.Is(err, contracts.ErrNoHoldings) {
				j.logger.WithError(err).WithField("portfolio", id).Warn("Performance warmup failed")
			}
			continue
		}
		if _, err := j.engine.RiskReport(ctx, id, "", engine.Period{}); err != nil {
			j.logger.WithError(err).WithField("portfolio", id).Warn("Risk warmup failed")
			continue
		}
		warmed++
	}

	j.logger.WithFields(map[string]interface{}{
		"portfolios": len(ids),
		"warmed":     warmed,
	}).Info("Cache warmup completed")
	return nil
}
