package projection

import (
	"math"

	"github.com/wonny/folio/backend/internal/analytics"
	"github.com/wonny/folio/backend/internal/contracts"
)

// Parameter bounds for the GBM inputs. Historical estimates outside these
// ranges are clamped; thin histories fall back to fixed defaults.
const (
	DefaultAnnualReturn = 0.08
	DefaultVolatility   = 0.15

	MinAnnualReturn = -0.60
	MaxAnnualReturn = 0.40
	MinVolatility   = 0.05
	MaxVolatility   = 0.40

	// MinSampleDays is the minimum number of daily log returns needed to
	// trust the historical estimate
	MinSampleDays = 60
)

// Estimate holds the annualized drift and volatility used by the simulator
type Estimate struct {
	AnnualReturn float64
	Volatility   float64
	UsedFallback bool
	SampleDays   int
}

// EstimateFromHistory derives drift and volatility from the portfolio's
// own daily log returns over up to one year of history
func EstimateFromHistory(history []contracts.PortfolioHistoryPoint) Estimate {
	history = lastYear(history)

	logReturns := analytics.Values(analytics.LogReturns(history))
	if len(logReturns) < MinSampleDays {
		return Estimate{
			AnnualReturn: DefaultAnnualReturn,
			Volatility:   DefaultVolatility,
			UsedFallback: true,
			SampleDays:   len(logReturns),
		}
	}

	meanLog := analytics.Mean(logReturns)
	varLog := analytics.Variance(logReturns)

	annualReturn := math.Exp(meanLog*analytics.TradingDaysPerYear) - 1
	volatility := math.Sqrt(varLog * analytics.TradingDaysPerYear)

	return Estimate{
		AnnualReturn: clamp(annualReturn, MinAnnualReturn, MaxAnnualReturn),
		Volatility:   clamp(volatility, MinVolatility, MaxVolatility),
		SampleDays:   len(logReturns),
	}
}

// lastYear trims the history to the final year before its end date
func lastYear(history []contracts.PortfolioHistoryPoint) []contracts.PortfolioHistoryPoint {
	if len(history) == 0 {
		return history
	}
	cutoff := history[len(history)-1].Date.AddDate(-1, 0, 0)

	for i, p := range history {
		if !p.Date.Before(cutoff) {
			return history[i:]
		}
	}
	return history
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
