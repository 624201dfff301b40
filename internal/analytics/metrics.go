package analytics

import (
	"math"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Calculator derives performance and risk metrics from a portfolio value
// series. Every metric degrades independently: insufficient history yields
// an explicit zero/empty result, never an error, and one metric's gap
// never blocks a sibling.
type Calculator struct {
	riskFreeRate   float64 // annual, decimal fraction
	minBetaSamples int
	logger         *logger.Logger
}

// NewCalculator creates a metrics calculator
func NewCalculator(riskFreeRate float64, minBetaSamples int, log *logger.Logger) *Calculator {
	if minBetaSamples < 2 {
		minBetaSamples = 2
	}
	return &Calculator{
		riskFreeRate:   riskFreeRate,
		minBetaSamples: minBetaSamples,
		logger:         log.WithComponent("analytics"),
	}
}

// Performance computes return metrics for the period covered by history
func (c *Calculator) Performance(history []contracts.PortfolioHistoryPoint) contracts.PerformanceMetrics {
	if len(history) == 0 {
		return contracts.PerformanceMetrics{}
	}

	first := history[0]
	last := history[len(history)-1]

	metrics := contracts.PerformanceMetrics{
		StartDate: first.Date,
		EndDate:   last.Date,
	}

	metrics.TotalReturn = last.TotalValue - last.TotalInvested
	if last.TotalInvested > 0 {
		metrics.TotalReturnPct = metrics.TotalReturn / last.TotalInvested * 100
	}

	metrics.AnnualizedReturn = annualizedReturn(metrics.TotalReturnPct, first.Date, last.Date)

	deltas := MarketDayDeltas(history)
	metrics.SampleDays = len(deltas)

	if len(deltas) > 0 {
		best := deltas[0]
		worst := deltas[0]
		wins := 0
		for _, d := range deltas {
			if d.Value > best.Value {
				best = d
			}
			if d.Value < worst.Value {
				worst = d
			}
			if d.Value > 0 {
				wins++
			}
		}
		metrics.BestDayPct = best.Value
		metrics.BestDayDate = best.Date
		metrics.WorstDayPct = worst.Value
		metrics.WorstDayDate = worst.Date
		metrics.WinRate = float64(wins) / float64(len(deltas)) * 100
	}

	return metrics
}

// Risk computes risk metrics for the period. benchmark may be nil; beta is
// then left nil. Metrics with insufficient history are zeroed while the
// rest still compute.
func (c *Calculator) Risk(history []contracts.PortfolioHistoryPoint, benchmark []contracts.PricePoint, benchmarkSymbol string) contracts.RiskMetrics {
	metrics := contracts.RiskMetrics{}

	returns := SimpleReturns(history)
	values := Values(returns)
	metrics.SampleDays = len(values)

	if len(values) >= 2 {
		daily := StdDev(values)
		metrics.Volatility = AnnualizeVolatility(daily)
		metrics.Sharpe = c.sharpe(values, daily)
		metrics.DownsideDeviation = downsideDeviation(values)
		metrics.ValueAtRisk95 = valueAtRisk95(values)
	}

	if dd, date, ok := maxDrawdown(history); ok {
		metrics.MaxDrawdown = dd
		metrics.MaxDrawdownDate = date
	}

	if beta := c.beta(returns, benchmark); beta != nil {
		metrics.Beta = beta
		metrics.BetaBenchmark = benchmarkSymbol
	}

	return metrics
}

// sharpe computes the annualized Sharpe ratio against the fixed risk-free
// assumption
func (c *Calculator) sharpe(dailyReturns []float64, dailyStdDev float64) float64 {
	if dailyStdDev == 0 {
		return 0
	}
	dailyRiskFree := c.riskFreeRate / TradingDaysPerYear

	excess := make([]float64, len(dailyReturns))
	for i, r := range dailyReturns {
		excess[i] = r - dailyRiskFree
	}

	return Mean(excess) / dailyStdDev * math.Sqrt(TradingDaysPerYear)
}

// beta estimates the portfolio's sensitivity to a benchmark by inner
// joining the two return series on date. Below the minimum sample size or
// with a flat benchmark the result is nil, never a misleading number.
func (c *Calculator) beta(portfolio []DatedReturn, benchmark []contracts.PricePoint) *float64 {
	if len(benchmark) < 2 {
		return nil
	}

	benchReturns := make(map[time.Time]float64)
	for i := 1; i < len(benchmark); i++ {
		prev := benchmark[i-1].Price
		if prev <= 0 {
			continue
		}
		benchReturns[dateKey(benchmark[i].Timestamp)] = benchmark[i].Price/prev - 1
	}

	var p, b []float64
	for _, r := range portfolio {
		if br, ok := benchReturns[dateKey(r.Date)]; ok {
			p = append(p, r.Value)
			b = append(b, br)
		}
	}

	if len(p) < c.minBetaSamples {
		return nil
	}

	benchVar := Variance(b)
	if benchVar == 0 {
		return nil
	}

	beta := Covariance(p, b) / benchVar
	return &beta
}

// maxDrawdown finds the largest percentage decline from a running peak
func maxDrawdown(history []contracts.PortfolioHistoryPoint) (float64, time.Time, bool) {
	if len(history) < 2 {
		return 0, time.Time{}, false
	}

	peak := history[0].TotalValue
	maxDD := 0.0
	var maxDate time.Time

	for _, p := range history {
		if p.TotalValue > peak {
			peak = p.TotalValue
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.TotalValue) / peak * 100
		if dd > maxDD {
			maxDD = dd
			maxDate = p.Date
		}
	}

	return maxDD, maxDate, true
}

// downsideDeviation annualizes the standard deviation of negative-only
// daily returns
func downsideDeviation(dailyReturns []float64) float64 {
	var negative []float64
	for _, r := range dailyReturns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) < 2 {
		return 0
	}
	return AnnualizeVolatility(StdDev(negative))
}

// valueAtRisk95 is the 5th percentile of the empirical daily return
// distribution, expressed as a positive loss percentage
func valueAtRisk95(dailyReturns []float64) float64 {
	p5 := PercentileOf(dailyReturns, 5)
	if p5 >= 0 {
		return 0
	}
	return -p5 * 100
}

// annualizedReturn converts a total percentage return over a period into
// an annual rate using 365.25-day years
func annualizedReturn(totalReturnPct float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return 0
	}
	years := days / 365.25

	multiplier := 1 + totalReturnPct/100
	if multiplier <= 0 {
		return -1
	}

	return math.Pow(multiplier, 1/years) - 1
}

func dateKey(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
