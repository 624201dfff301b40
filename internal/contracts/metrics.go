package contracts

import "time"

// PerformanceMetrics summarizes returns for a period.
// Percentages are on a 0-100 scale, returns/volatility decimal fractions.
type PerformanceMetrics struct {
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalReturn      float64   `json:"total_return"`       // base currency amount
	TotalReturnPct   float64   `json:"total_return_pct"`   // 0-100
	AnnualizedReturn float64   `json:"annualized_return"`  // decimal fraction
	BestDayPct       float64   `json:"best_day_pct"`       // market-driven day change
	BestDayDate      time.Time `json:"best_day_date"`
	WorstDayPct      float64   `json:"worst_day_pct"`
	WorstDayDate     time.Time `json:"worst_day_date"`
	WinRate          float64   `json:"win_rate"` // 0-100, share of positive market days
	SampleDays       int       `json:"sample_days"`
}

// RiskMetrics summarizes risk for a period. Beta is nil when the sample
// is too short or the benchmark has zero variance; a missing number is
// better than a misleading one.
type RiskMetrics struct {
	Volatility        float64    `json:"volatility"`         // annualized, decimal fraction
	Sharpe            float64    `json:"sharpe"`
	MaxDrawdown       float64    `json:"max_drawdown"` // 0-100
	MaxDrawdownDate   time.Time  `json:"max_drawdown_date"`
	DownsideDeviation float64    `json:"downside_deviation"` // annualized
	ValueAtRisk95     float64    `json:"value_at_risk_95"`   // 0-100, daily loss percentile
	Beta              *float64   `json:"beta,omitempty"`
	BetaBenchmark     string     `json:"beta_benchmark,omitempty"`
	SampleDays        int        `json:"sample_days"`
}

// RebasedPoint is one date of a percentage-return series anchored at the
// first common date of a comparison
type RebasedPoint struct {
	Date time.Time `json:"date"`
	Pct  float64   `json:"pct"` // 0-100 scale
}

// BenchmarkComparison holds a portfolio and a benchmark rebased to
// comparable percentage terms
type BenchmarkComparison struct {
	BenchmarkSymbol string         `json:"benchmark_symbol"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	Portfolio       []RebasedPoint `json:"portfolio"`
	Benchmark       []RebasedPoint `json:"benchmark"`
	Alpha           float64        `json:"alpha"` // end spread, 0-100 scale
	Correlation     *float64       `json:"correlation,omitempty"`
}

// ProjectionScenario is one percentile path of the goal simulation
type ProjectionScenario struct {
	Label             string  `json:"label"` // pessimistic, median, optimistic
	FinalValue        float64 `json:"final_value"`
	ImpliedAnnualRate float64 `json:"implied_annual_rate"` // decimal fraction, clamped
}

// Milestone flags progress toward the goal target
type Milestone struct {
	Pct      int     `json:"pct"` // 25, 50, 75, 100
	Amount   float64 `json:"amount"`
	Achieved bool    `json:"achieved"`
}

// GoalProjectionResult is the outcome of the Monte Carlo goal simulation
type GoalProjectionResult struct {
	RunID               string               `json:"run_id"`
	TargetAmount        float64              `json:"target_amount"`
	TargetDate          time.Time            `json:"target_date"`
	CurrentValue        float64              `json:"current_value"`
	MonthlyContribution float64              `json:"monthly_contribution"`
	Probability         float64              `json:"probability"` // 0-1
	Scenarios           []ProjectionScenario `json:"scenarios"`
	Milestones          []Milestone          `json:"milestones"`
	ExpectedReturn      float64              `json:"expected_return"` // annual drift used
	Volatility          float64              `json:"volatility"`      // annual sigma used
	Iterations          int                  `json:"iterations"`
	HorizonMonths       int                  `json:"horizon_months"`
	UsedFallbackParams  bool                 `json:"used_fallback_params"`
	PastTargetDate      bool                 `json:"past_target_date"` // non-fatal warning
	Seed                int64                `json:"seed,omitempty"`
}
