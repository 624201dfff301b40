package benchmark

import (
	"context"
	"time"

	"github.com/wonny/folio/backend/internal/analytics"
	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Comparator rebases a portfolio value series and a benchmark price series
// into comparable percentage-return space, anchored at the first date both
// have data. Dates missing on either side are excluded from both series;
// nothing is interpolated.
type Comparator struct {
	prices contracts.PriceSource
	logger *logger.Logger
}

// NewComparator creates a benchmark comparator
func NewComparator(prices contracts.PriceSource, log *logger.Logger) *Comparator {
	return &Comparator{
		prices: prices,
		logger: log.WithComponent("benchmark"),
	}
}

// Compare rebases both series against benchmarkSymbol over the history's
// date range
func (c *Comparator) Compare(ctx context.Context, history []contracts.PortfolioHistoryPoint, benchmarkSymbol string) (*contracts.BenchmarkComparison, error) {
	if len(history) == 0 {
		return &contracts.BenchmarkComparison{BenchmarkSymbol: benchmarkSymbol}, nil
	}

	start := history[0].Date
	end := history[len(history)-1].Date

	series, err := c.prices.GetPriceHistory(ctx, benchmarkSymbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		if _, err := c.prices.EnsurePriceHistory(ctx, benchmarkSymbol, start, end); err == nil {
			series, _ = c.prices.GetPriceHistory(ctx, benchmarkSymbol, start, end)
		}
	}

	benchByDate := make(map[time.Time]float64, len(series))
	for _, p := range series {
		benchByDate[dateKey(p.Timestamp)] = p.Price
	}

	comparison := &contracts.BenchmarkComparison{
		BenchmarkSymbol: benchmarkSymbol,
		EndDate:         end,
	}

	// Walk the portfolio series, pairing each date with a benchmark price.
	// The first paired date anchors both series at zero.
	var (
		anchored       bool
		anchorPerf     float64
		benchStart     float64
		portfolioPerfs []float64
		benchPerfs     []float64
	)

	for _, point := range history {
		price, ok := benchByDate[dateKey(point.Date)]
		if !ok || price <= 0 {
			continue // paired exclusion
		}
		if point.TotalInvested <= 0 {
			continue
		}

		perf := (point.TotalValue - point.TotalInvested) / point.TotalInvested * 100

		if !anchored {
			anchored = true
			anchorPerf = perf
			benchStart = price
			comparison.StartDate = point.Date
		}

		portfolioPct := perf - anchorPerf
		benchmarkPct := (price - benchStart) / benchStart * 100

		comparison.Portfolio = append(comparison.Portfolio, contracts.RebasedPoint{Date: point.Date, Pct: portfolioPct})
		comparison.Benchmark = append(comparison.Benchmark, contracts.RebasedPoint{Date: point.Date, Pct: benchmarkPct})

		portfolioPerfs = append(portfolioPerfs, portfolioPct)
		benchPerfs = append(benchPerfs, benchmarkPct)
	}

	if n := len(comparison.Portfolio); n > 0 {
		comparison.Alpha = comparison.Portfolio[n-1].Pct - comparison.Benchmark[n-1].Pct
	}

	// Pearson correlation of the paired series; nil below two points
	comparison.Correlation = analytics.Correlation(portfolioPerfs, benchPerfs)

	return comparison, nil
}

func dateKey(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
