package analytics

import (
	"math"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
)

// DatedReturn is one dated observation of a return series
type DatedReturn struct {
	Date  time.Time
	Value float64
}

// SimpleReturns computes value-to-value simple daily returns from a
// history series. Buckets with a non-positive previous value are skipped.
func SimpleReturns(history []contracts.PortfolioHistoryPoint) []DatedReturn {
	var returns []DatedReturn
	for i := 1; i < len(history); i++ {
		prev := history[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, DatedReturn{
			Date:  history[i].Date,
			Value: history[i].TotalValue/prev - 1,
		})
	}
	return returns
}

// LogReturns computes daily log returns from a history series
func LogReturns(history []contracts.PortfolioHistoryPoint) []DatedReturn {
	var returns []DatedReturn
	for i := 1; i < len(history); i++ {
		prev := history[i-1].TotalValue
		cur := history[i].TotalValue
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, DatedReturn{
			Date:  history[i].Date,
			Value: math.Log(cur / prev),
		})
	}
	return returns
}

// PerformanceSeries maps the history to percentage performance per bucket:
// (value - invested) / invested * 100. Buckets without invested capital
// report zero.
func PerformanceSeries(history []contracts.PortfolioHistoryPoint) []DatedReturn {
	series := make([]DatedReturn, 0, len(history))
	for _, p := range history {
		pct := 0.0
		if p.TotalInvested > 0 {
			pct = (p.TotalValue - p.TotalInvested) / p.TotalInvested * 100
		}
		series = append(series, DatedReturn{Date: p.Date, Value: pct})
	}
	return series
}

// MarketDayDeltas computes the day-over-day delta of the performance
// series. Differencing performance instead of raw value isolates
// market-driven moves from contribution and withdrawal noise: a deposit
// raises value and invested together, leaving performance unchanged.
func MarketDayDeltas(history []contracts.PortfolioHistoryPoint) []DatedReturn {
	perf := PerformanceSeries(history)

	var deltas []DatedReturn
	for i := 1; i < len(perf); i++ {
		deltas = append(deltas, DatedReturn{
			Date:  perf[i].Date,
			Value: perf[i].Value - perf[i-1].Value,
		})
	}
	return deltas
}

// Values strips the dates off a dated series
func Values(series []DatedReturn) []float64 {
	out := make([]float64, len(series))
	for i, r := range series {
		out[i] = r.Value
	}
	return out
}
