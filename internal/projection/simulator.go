package projection

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Simulation safety bounds. Out-of-range requests are silently clamped.
const (
	MinIterations = 100
	MaxIterations = 10000

	MinHorizonMonths = 1
	MaxHorizonMonths = 600 // 50 years

	DefaultHorizonYears = 10
)

// GoalInput describes a goal-achievement question: can the portfolio,
// with ongoing contributions, reach the target by the target date.
type GoalInput struct {
	CurrentValue        float64
	TargetAmount        float64
	MonthlyContribution float64
	TargetDate          *time.Time // nil defaults to ten years out
	Now                 time.Time
}

// Simulator runs a monthly-step geometric Brownian motion Monte Carlo.
// The generator is owned by the simulator and seedable for reproducible
// runs; iterations are independent of each other.
type Simulator struct {
	iterations int
	seed       int64
	rng        *rand.Rand
	logger     *logger.Logger
}

// NewSimulator creates a simulator. A zero seed draws a fresh source;
// any other seed makes runs reproducible.
func NewSimulator(iterations int, seed int64, log *logger.Logger) *Simulator {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	if iterations > MaxIterations {
		iterations = MaxIterations
	}

	source := seed
	if source == 0 {
		source = time.Now().UnixNano()
	}

	return &Simulator{
		iterations: iterations,
		seed:       seed,
		rng:        rand.New(rand.NewSource(source)),
		logger:     log.WithComponent("projection"),
	}
}

// Project estimates the probability of reaching the goal plus percentile
// scenarios and milestones. When the current value already meets the
// target the probability is 1.0 and no simulation runs.
func (s *Simulator) Project(input GoalInput, est Estimate) *contracts.GoalProjectionResult {
	result := &contracts.GoalProjectionResult{
		RunID:               uuid.New().String(),
		TargetAmount:        input.TargetAmount,
		CurrentValue:        input.CurrentValue,
		MonthlyContribution: input.MonthlyContribution,
		ExpectedReturn:      est.AnnualReturn,
		Volatility:          est.Volatility,
		Iterations:          s.iterations,
		UsedFallbackParams:  est.UsedFallback,
		Seed:                s.seed,
	}

	horizon, pastTarget, targetDate := s.horizonMonths(input)
	result.HorizonMonths = horizon
	result.PastTargetDate = pastTarget
	result.TargetDate = targetDate
	result.Milestones = milestones(input.TargetAmount, input.CurrentValue)

	// Already there: no simulation needed
	if input.TargetAmount > 0 && input.CurrentValue >= input.TargetAmount {
		result.Probability = 1.0
		return result
	}

	finals := make([]float64, s.iterations)
	reached := 0
	for i := 0; i < s.iterations; i++ {
		final := s.simulatePath(input.CurrentValue, input.MonthlyContribution, horizon, est)
		finals[i] = final
		if final >= input.TargetAmount {
			reached++
		}
	}

	result.Probability = float64(reached) / float64(s.iterations)

	sort.Float64s(finals)
	years := float64(horizon) / 12
	totalContributions := input.MonthlyContribution * float64(horizon)
	adjustedInitial := input.CurrentValue + totalContributions/2

	result.Scenarios = []contracts.ProjectionScenario{
		scenario("pessimistic", percentileSorted(finals, 10), adjustedInitial, years),
		scenario("median", percentileSorted(finals, 50), adjustedInitial, years),
		scenario("optimistic", percentileSorted(finals, 90), adjustedInitial, years),
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"iterations":  s.iterations,
		"horizon":     horizon,
		"probability": result.Probability,
	}).Debug("Goal projection completed")

	return result
}

// simulatePath walks one GBM path: the contribution lands first, then the
// month's market move. Value never goes below zero.
func (s *Simulator) simulatePath(value, contribution float64, months int, est Estimate) float64 {
	drift := (est.AnnualReturn - 0.5*est.Volatility*est.Volatility) / 12
	diffusion := est.Volatility / math.Sqrt(12)

	for m := 0; m < months; m++ {
		value += contribution

		z := s.normSample()
		value *= math.Exp(drift + diffusion*z)

		if value < 0 {
			value = 0
		}
	}
	return value
}

// normSample draws a standard normal via Box-Muller from two independent
// uniforms
func (s *Simulator) normSample() float64 {
	u1 := s.rng.Float64()
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// horizonMonths resolves the simulation horizon. A past target date is a
// non-fatal condition simulated over a single month; a missing target
// date defaults to ten years.
func (s *Simulator) horizonMonths(input GoalInput) (int, bool, time.Time) {
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	if input.TargetDate == nil {
		target := now.AddDate(DefaultHorizonYears, 0, 0)
		return DefaultHorizonYears * 12, false, target
	}

	target := *input.TargetDate
	if !target.After(now) {
		return MinHorizonMonths, true, target
	}

	months := int(target.Sub(now).Hours() / 24 / 30.44)
	if months < MinHorizonMonths {
		months = MinHorizonMonths
	}
	if months > MaxHorizonMonths {
		months = MaxHorizonMonths
	}
	return months, false, target
}

// scenario back-solves an illustrative implied annual return for one
// percentile outcome, clamped to the same bounds as the estimate
func scenario(label string, finalValue, adjustedInitial, years float64) contracts.ProjectionScenario {
	implied := 0.0
	if finalValue > 0 && adjustedInitial > 0 && years > 0 {
		implied = clamp(math.Log(finalValue/adjustedInitial)/years, MinAnnualReturn, MaxAnnualReturn)
	}

	return contracts.ProjectionScenario{
		Label:             label,
		FinalValue:        finalValue,
		ImpliedAnnualRate: implied,
	}
}

// milestones flags the quarter marks toward the target
func milestones(target, current float64) []contracts.Milestone {
	if target <= 0 {
		return nil
	}

	marks := []int{25, 50, 75, 100}
	out := make([]contracts.Milestone, 0, len(marks))
	for _, pct := range marks {
		amount := target * float64(pct) / 100
		out = append(out, contracts.Milestone{
			Pct:      pct,
			Amount:   amount,
			Achieved: current >= amount,
		})
	}
	return out
}

// percentileSorted reads a percentile from an ascending slice with linear
// interpolation
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
