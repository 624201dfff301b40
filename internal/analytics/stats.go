package analytics

import (
	"math"
	"sort"
)

// TradingDaysPerYear is the annualization factor for daily series
const TradingDaysPerYear = 252

// Mean computes the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev computes the sample standard deviation
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Variance computes the sample variance
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(values)-1)
}

// Covariance computes the sample covariance of two equal-length series
func Covariance(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return 0
	}
	meanX := Mean(x)
	meanY := Mean(y)

	var sum float64
	for i := 0; i < n; i++ {
		sum += (x[i] - meanX) * (y[i] - meanY)
	}
	return sum / float64(n-1)
}

// Correlation computes the Pearson correlation coefficient.
// Returns nil for fewer than two points or a flat series.
func Correlation(x, y []float64) *float64 {
	if len(x) < 2 || len(x) != len(y) {
		return nil
	}

	sx := StdDev(x)
	sy := StdDev(y)
	if sx == 0 || sy == 0 {
		return nil
	}

	r := Covariance(x, y) / (sx * sy)
	return &r
}

// Percentile computes the p-th percentile (0-100) of a sorted ascending
// series using linear interpolation
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// PercentileOf sorts a copy of the series and computes the percentile
func PercentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Percentile(sorted, p)
}

// AnnualizeVolatility scales a daily standard deviation to annual terms
func AnnualizeVolatility(dailyStdDev float64) float64 {
	return dailyStdDev * math.Sqrt(TradingDaysPerYear)
}
