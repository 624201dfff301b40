package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Major pairs kept warm against the base currency. Anything else is
// fetched on demand.
var defaultPairs = [][2]string{
	{"EUR", "USD"},
	{"GBP", "USD"},
	{"JPY", "USD"},
	{"CHF", "USD"},
	{"KRW", "USD"},
}

// FXRefreshJob refreshes stored FX rates for the major pairs
type FXRefreshJob struct {
	currency *marketdata.CurrencyService
	pairs    [][2]string
	logger   *logger.Logger
}

// NewFXRefreshJob creates a new FX refresh job. An empty pair list
// falls back to the majors.
func NewFXRefreshJob(currency *marketdata.CurrencyService, pairs [][2]string, log *logger.Logger) *FXRefreshJob {
	if len(pairs) == 0 {
		pairs = defaultPairs
	}
	return &FXRefreshJob{
		currency: currency,
		pairs:    pairs,
		logger:   log,
	}
}

// Name returns the job name
func (j *FXRefreshJob) Name() string {
	return "fx_refresh"
}

// Schedule returns the cron schedule (every 6 hours)
func (j *FXRefreshJob) Schedule() string {
	return "0 0 */6 * * *"
}

// Run refreshes all configured pairs
func (j *FXRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled FX refresh")

	refreshed := j.currency.RefreshRates(ctx, j.pairs)
	if refreshed == 0 {
		return fmt.Errorf("no FX pairs refreshed out of %d", len(j.pairs))
	}

	j.logger.WithFields(map[string]interface{}{
		"refreshed": refreshed,
		"pairs":     len(j.pairs),
	}).Info("Scheduled FX refresh completed")
	return nil
}
