package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/pkg/logger"
)

// SymbolLister enumerates what the ledger currently references
type SymbolLister interface {
	ListPortfolioIDs(ctx context.Context) ([]string, error)
	ListSymbols(ctx context.Context, portfolioID string) ([]string, error)
}

// PriceBackfillJob keeps the price store current for every symbol the
// ledger references. Fetches only the tail the store is missing.
type PriceBackfillJob struct {
	ledger SymbolLister
	prices *marketdata.Service
	logger *logger.Logger
}

// NewPriceBackfillJob creates a new price backfill job
func NewPriceBackfillJob(ledger SymbolLister, prices *marketdata.Service, log *logger.Logger) *PriceBackfillJob {
	return &PriceBackfillJob{
		ledger: ledger,
		prices: prices,
		logger: log,
	}
}

// Name returns the job name
func (j *PriceBackfillJob) Name() string {
	return "price_backfill"
}

// Schedule returns the cron schedule (nightly after US close)
func (j *PriceBackfillJob) Schedule() string {
	return "0 30 22 * * MON-FRI"
}

// Run backfills the trailing week for every referenced symbol
func (j *PriceBackfillJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled price backfill")

	symbols, err := j.collectSymbols(ctx)
	if err != nil {
		return fmt.Errorf("collect symbols: %w", err)
	}
	if len(symbols) == 0 {
		j.logger.Info("No symbols to backfill")
		return nil
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)

	total, failures := j.prices.Backfill(ctx, symbols, from, to)
	if len(failures) == len(symbols) {
		return fmt.Errorf("backfill failed for all %d symbols", len(symbols))
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"fetched": total,
		"failed":  len(failures),
	}).Info("Scheduled price backfill completed")
	return nil
}

// collectSymbols unions the symbols of every portfolio
func (j *PriceBackfillJob) collectSymbols(ctx context.Context) ([]string, error) {
	ids, err := j.ledger.ListPortfolioIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, id := range ids {
		list, err := j.ledger.ListSymbols(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				symbols = append(symbols, s)
			}
		}
	}
	return symbols, nil
}
