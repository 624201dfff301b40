package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func histPoint(n int, value, invested float64) contracts.PortfolioHistoryPoint {
	return contracts.PortfolioHistoryPoint{Date: day(n), TotalValue: value, TotalInvested: invested}
}

func newTestCalculator() *Calculator {
	return NewCalculator(0.02, 3, logger.NewNop())
}

func TestPerformanceEmptyHistory(t *testing.T) {
	m := newTestCalculator().Performance(nil)
	assert.Equal(t, contracts.PerformanceMetrics{}, m)
}

func TestPerformanceTotalReturn(t *testing.T) {
	history := []contracts.PortfolioHistoryPoint{
		histPoint(0, 10000, 10000),
		histPoint(365, 12000, 10000),
	}

	m := newTestCalculator().Performance(history)

	assert.Equal(t, 2000.0, m.TotalReturn)
	assert.InDelta(t, 20.0, m.TotalReturnPct, 1e-9)

	// One year elapsed: annualized ~ total
	assert.InDelta(t, 0.20, m.AnnualizedReturn, 0.01)
}

func TestPerformanceZeroInvested(t *testing.T) {
	history := []contracts.PortfolioHistoryPoint{
		histPoint(0, 0, 0),
		histPoint(10, 500, 0),
	}

	m := newTestCalculator().Performance(history)
	assert.Equal(t, 0.0, m.TotalReturnPct, "zero invested must not divide")
}

func TestPerformanceContributionDoesNotCountAsMarketMove(t *testing.T) {
	// Prior value 5000 fully invested. Next day the market moves +2% and
	// 1000 is contributed: value 6100, invested 6000. The market-driven
	// performance delta is 100/6000 in percent points, not the raw +1100.
	history := []contracts.PortfolioHistoryPoint{
		histPoint(0, 5000, 5000),
		histPoint(1, 6100, 6000),
	}

	m := newTestCalculator().Performance(history)

	require.Equal(t, 1, m.SampleDays)
	wantPct := 100.0 / 6000.0 * 100
	assert.InDelta(t, wantPct, m.BestDayPct, 1e-9)

	// The pct delta corresponds to a +100 market move on the new base
	assert.InDelta(t, 100.0, m.BestDayPct/100*6000, 1e-6)
}

func TestPerformanceBestWorstAndWinRate(t *testing.T) {
	history := []contracts.PortfolioHistoryPoint{
		histPoint(0, 10000, 10000), // perf 0
		histPoint(1, 10200, 10000), // +2
		histPoint(2, 10100, 10000), // -1
		histPoint(3, 10400, 10000), // +3
		histPoint(4, 10300, 10000), // -1
	}

	m := newTestCalculator().Performance(history)

	assert.InDelta(t, 3.0, m.BestDayPct, 1e-9)
	assert.Equal(t, day(3), m.BestDayDate)
	assert.InDelta(t, -1.0, m.WorstDayPct, 1e-9)
	assert.InDelta(t, 50.0, m.WinRate, 1e-9) // 2 of 4 days positive
}

func TestRiskInsufficientHistory(t *testing.T) {
	m := newTestCalculator().Risk([]contracts.PortfolioHistoryPoint{histPoint(0, 100, 100)}, nil, "")

	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.Sharpe)
	assert.Nil(t, m.Beta)
}

func TestRiskVolatilityAndSharpe(t *testing.T) {
	// Alternating +1%/-0.5% value moves
	history := []contracts.PortfolioHistoryPoint{histPoint(0, 10000, 10000)}
	value := 10000.0
	for i := 1; i <= 20; i++ {
		if i%2 == 0 {
			value *= 0.995
		} else {
			value *= 1.01
		}
		history = append(history, histPoint(i, value, 10000))
	}

	m := newTestCalculator().Risk(history, nil, "")

	returns := Values(SimpleReturns(history))
	wantVol := AnnualizeVolatility(StdDev(returns))
	assert.InDelta(t, wantVol, m.Volatility, 1e-9)
	assert.Greater(t, m.Sharpe, 0.0, "positive drift should give positive sharpe")
}

func TestRiskMaxDrawdown(t *testing.T) {
	history := []contracts.PortfolioHistoryPoint{
		histPoint(0, 10000, 10000),
		histPoint(1, 12000, 10000), // peak
		histPoint(2, 9000, 10000),  // -25% from peak
		histPoint(3, 11000, 10000),
	}

	m := newTestCalculator().Risk(history, nil, "")

	assert.InDelta(t, 25.0, m.MaxDrawdown, 1e-9)
	assert.Equal(t, day(2), m.MaxDrawdownDate)
}

func TestRiskValueAtRisk(t *testing.T) {
	// 19 small positive days and one -5% day: the 5th percentile sits in
	// the loss tail
	history := []contracts.PortfolioHistoryPoint{histPoint(0, 10000, 10000)}
	value := 10000.0
	for i := 1; i <= 19; i++ {
		value *= 1.001
		history = append(history, histPoint(i, value, 10000))
	}
	value *= 0.95
	history = append(history, histPoint(20, value, 10000))

	m := newTestCalculator().Risk(history, nil, "")

	assert.Greater(t, m.ValueAtRisk95, 0.0)
	assert.LessOrEqual(t, m.ValueAtRisk95, 5.0)
}

func TestRiskDownsideDeviationIgnoresGains(t *testing.T) {
	history := []contracts.PortfolioHistoryPoint{histPoint(0, 10000, 10000)}
	value := 10000.0
	moves := []float64{1.02, 0.99, 1.03, 0.98, 1.01, 0.97}
	for i, mv := range moves {
		value *= mv
		history = append(history, histPoint(i+1, value, 10000))
	}

	m := newTestCalculator().Risk(history, nil, "")

	returns := Values(SimpleReturns(history))
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	want := AnnualizeVolatility(StdDev(negative))
	assert.InDelta(t, want, m.DownsideDeviation, 1e-9)
}

func TestBetaAgainstProportionalBenchmark(t *testing.T) {
	// Portfolio moves exactly 2x the benchmark every day: beta = 2
	history := []contracts.PortfolioHistoryPoint{histPoint(0, 10000, 10000)}
	benchmark := []contracts.PricePoint{{Symbol: "SPY", Timestamp: day(0), Price: 100}}

	value := 10000.0
	price := 100.0
	moves := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02}
	for i, mv := range moves {
		price *= 1 + mv
		value *= 1 + 2*mv
		history = append(history, histPoint(i+1, value, 10000))
		benchmark = append(benchmark, contracts.PricePoint{Symbol: "SPY", Timestamp: day(i + 1), Price: price})
	}

	m := newTestCalculator().Risk(history, benchmark, "SPY")

	require.NotNil(t, m.Beta)
	assert.InDelta(t, 2.0, *m.Beta, 0.05)
	assert.Equal(t, "SPY", m.BetaBenchmark)
}

func TestBetaNilBelowMinimumSample(t *testing.T) {
	calc := NewCalculator(0.02, 10, logger.NewNop())

	history := []contracts.PortfolioHistoryPoint{
		histPoint(0, 10000, 10000),
		histPoint(1, 10100, 10000),
		histPoint(2, 10200, 10000),
	}
	benchmark := []contracts.PricePoint{
		{Symbol: "SPY", Timestamp: day(0), Price: 100},
		{Symbol: "SPY", Timestamp: day(1), Price: 101},
		{Symbol: "SPY", Timestamp: day(2), Price: 102},
	}

	m := calc.Risk(history, benchmark, "SPY")
	assert.Nil(t, m.Beta, "beta must be nil below the minimum sample size")
}

func TestBetaNilForFlatBenchmark(t *testing.T) {
	history := []contracts.PortfolioHistoryPoint{histPoint(0, 10000, 10000)}
	benchmark := []contracts.PricePoint{{Symbol: "SPY", Timestamp: day(0), Price: 100}}
	for i := 1; i <= 10; i++ {
		history = append(history, histPoint(i, 10000+float64(i)*10, 10000))
		benchmark = append(benchmark, contracts.PricePoint{Symbol: "SPY", Timestamp: day(i), Price: 100})
	}

	m := newTestCalculator().Risk(history, benchmark, "SPY")
	assert.Nil(t, m.Beta, "zero benchmark variance must yield nil beta")
}

func TestBetaAlignsByCommonDatesOnly(t *testing.T) {
	// Benchmark missing half the dates: only the overlap is used
	history := []contracts.PortfolioHistoryPoint{histPoint(0, 10000, 10000)}
	value := 10000.0
	for i := 1; i <= 12; i++ {
		value *= 1.01
		history = append(history, histPoint(i, value, 10000))
	}

	benchmark := []contracts.PricePoint{{Symbol: "SPY", Timestamp: day(0), Price: 100}}
	price := 100.0
	for i := 1; i <= 12; i += 2 {
		price *= 1.01
		benchmark = append(benchmark, contracts.PricePoint{Symbol: "SPY", Timestamp: day(i), Price: price})
	}

	// minBetaSamples 3; overlap has ~6 points so beta computes, and it
	// must not be NaN from misaligned series
	m := newTestCalculator().Risk(history, benchmark, "SPY")
	if m.Beta != nil {
		assert.False(t, math.IsNaN(*m.Beta))
	}
}

func TestAnnualizedReturn(t *testing.T) {
	// +21% over two years is ~10% annualized
	start := day(0)
	end := start.AddDate(2, 0, 0)

	got := annualizedReturn(21.0, start, end)
	assert.InDelta(t, 0.10, got, 0.005)

	assert.Equal(t, 0.0, annualizedReturn(10, start, start), "zero elapsed time")
	assert.Equal(t, -1.0, annualizedReturn(-150, start, end), "total loss floors at -100%")
}
