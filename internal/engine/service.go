package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/folio/backend/internal/analytics"
	"github.com/wonny/folio/backend/internal/benchmark"
	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/ledger"
	"github.com/wonny/folio/backend/internal/projection"
	"github.com/wonny/folio/backend/internal/valuation"
	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
)

// Converter converts amounts between currencies, now and historically
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
	ConvertAt(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error)
}

// Period bounds an analytics request. Zero Start means "first event",
// zero End means "now".
type Period struct {
	Start time.Time
	End   time.Time
}

// GoalRequest is the input for a goal projection
type GoalRequest struct {
	TargetAmount        float64
	MonthlyContribution float64
	TargetDate          *time.Time
}

// Service orchestrates ledger replay, valuation and analytics. Every
// answer is derived from the event ledger on demand; the only state it
// owns is the read-through cache.
type Service struct {
	events     contracts.LedgerSource
	prices     contracts.PriceSource
	fx         Converter
	builder    *valuation.Builder
	calc       *analytics.Calculator
	comparator *benchmark.Comparator
	cache      contracts.Cache
	cfg        config.AnalyticsConfig
	logger     *logger.Logger
}

// NewService wires the analytics engine. fx and cache may be nil.
func NewService(
	events contracts.LedgerSource,
	prices contracts.PriceSource,
	fx Converter,
	cache contracts.Cache,
	cfg config.AnalyticsConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		events:     events,
		prices:     prices,
		fx:         fx,
		builder:    valuation.NewBuilder(prices, fx, cfg.BaseCurrency, log),
		calc:       analytics.NewCalculator(cfg.RiskFreeRate, cfg.MinBetaSamples, log),
		comparator: benchmark.NewComparator(prices, log),
		cache:      cache,
		cfg:        cfg,
		logger:     log.WithComponent("engine"),
	}
}

// Positions rebuilds the current holdings from the full ledger. Symbols
// without a quotable price still appear, valued at zero, so one broken
// feed never hides a holding.
func (s *Service) Positions(ctx context.Context, portfolioID string) ([]contracts.Position, error) {
	grouped, err := s.loadEvents(ctx, portfolioID, nil)
	if err != nil {
		return nil, err
	}

	type symbolState struct {
		symbol string
		state  ledger.State
	}

	held := make([]symbolState, 0, len(grouped))
	for symbol, events := range grouped {
		state := ledger.Replay(events)
		if qty, _ := state.Quantity.Float64(); qty > 0 {
			held = append(held, symbolState{symbol: symbol, state: state})
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].symbol < held[j].symbol })

	positions := make([]contracts.Position, len(held))

	var wg sync.WaitGroup
	for i, h := range held {
		wg.Add(1)
		go func(i int, h symbolState) {
			defer wg.Done()
			positions[i] = s.buildPosition(ctx, h.symbol, h.state)
		}(i, h)
	}
	wg.Wait()

	return positions, nil
}

// buildPosition derives one holding snapshot, converting the quote into
// the base currency when needed
func (s *Service) buildPosition(ctx context.Context, symbol string, state ledger.State) contracts.Position {
	qty, _ := state.Quantity.Float64()
	costBasis, _ := state.CostBasis.Float64()
	avgCost, _ := state.AverageCost().Float64()

	pos := contracts.Position{
		Symbol:      symbol,
		Quantity:    qty,
		AverageCost: avgCost,
		CostBasis:   costBasis,
		Currency:    s.cfg.BaseCurrency,
	}

	quote, err := s.prices.GetPrice(ctx, symbol)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Position valued without a price")
		return pos
	}

	price := quote.Price
	if s.fx != nil && quote.Currency != "" && quote.Currency != s.cfg.BaseCurrency {
		converted, err := s.fx.Convert(ctx, price, quote.Currency, s.cfg.BaseCurrency)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Position valued without a price, FX rate missing")
			return pos
		}
		price = converted
	}

	pos.CurrentPrice = price
	pos.MarketValue = qty * price
	pos.UnrealizedPnL = pos.MarketValue - costBasis
	pos.PriceAsOf = quote.AsOf
	return pos
}

// History builds the portfolio value time series for a period
func (s *Service) History(ctx context.Context, portfolioID string, period Period) ([]contracts.PortfolioHistoryPoint, error) {
	grouped, err := s.loadEvents(ctx, portfolioID, nil)
	if err != nil {
		return nil, err
	}

	start, end := s.resolvePeriod(grouped, period)
	return s.builder.Build(ctx, grouped, start, end, s.cfg.MaxHistoryPoints)
}

// Performance computes return metrics for a period
func (s *Service) Performance(ctx context.Context, portfolioID string, period Period) (*contracts.PerformanceMetrics, error) {
	key := redis.MetricsKey(portfolioID, periodKey(period)+":perf")
	var cached contracts.PerformanceMetrics
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	history, err := s.History(ctx, portfolioID, period)
	if err != nil {
		return nil, err
	}

	metrics := s.calc.Performance(history)
	s.cacheSet(ctx, key, metrics)
	return &metrics, nil
}

// RiskReport computes risk metrics for a period. The benchmark series
// feeds beta only; when it cannot be fetched the report still comes back
// with a nil beta.
func (s *Service) RiskReport(ctx context.Context, portfolioID, benchmarkSymbol string, period Period) (*contracts.RiskMetrics, error) {
	key := redis.MetricsKey(portfolioID, periodKey(period)+":risk:"+benchmarkSymbol)
	var cached contracts.RiskMetrics
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	history, err := s.History(ctx, portfolioID, period)
	if err != nil {
		return nil, err
	}

	var benchmarkSeries []contracts.PricePoint
	if benchmarkSymbol != "" && len(history) > 0 {
		start := history[0].Date
		end := history[len(history)-1].Date
		benchmarkSeries, err = s.prices.GetPriceHistory(ctx, benchmarkSymbol, start, end)
		if err != nil {
			s.logger.WithError(err).WithField("benchmark", benchmarkSymbol).Warn("Risk report without beta, benchmark fetch failed")
			benchmarkSeries = nil
		}
	}

	metrics := s.calc.Risk(history, benchmarkSeries, benchmarkSymbol)
	s.cacheSet(ctx, key, metrics)
	return &metrics, nil
}

// CompareBenchmark rebases the portfolio against a benchmark symbol
func (s *Service) CompareBenchmark(ctx context.Context, portfolioID, benchmarkSymbol string, period Period) (*contracts.BenchmarkComparison, error) {
	key := redis.ComparisonKey(portfolioID, benchmarkSymbol, periodKey(period))
	var cached contracts.BenchmarkComparison
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	history, err := s.History(ctx, portfolioID, period)
	if err != nil {
		return nil, err
	}

	comparison, err := s.comparator.Compare(ctx, history, benchmarkSymbol)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, comparison)
	return comparison, nil
}

// ProjectGoal runs the Monte Carlo goal simulation off the portfolio's
// own full history
func (s *Service) ProjectGoal(ctx context.Context, portfolioID string, req GoalRequest) (*contracts.GoalProjectionResult, error) {
	history, err := s.History(ctx, portfolioID, Period{})
	if err != nil {
		return nil, err
	}

	currentValue := 0.0
	if len(history) > 0 {
		currentValue = history[len(history)-1].TotalValue
	}

	estimate := projection.EstimateFromHistory(history)
	sim := projection.NewSimulator(s.cfg.MonteCarloIters, s.cfg.MonteCarloSeed, s.logger)

	result := sim.Project(projection.GoalInput{
		CurrentValue:        currentValue,
		TargetAmount:        req.TargetAmount,
		MonthlyContribution: req.MonthlyContribution,
		TargetDate:          req.TargetDate,
		Now:                 time.Now().UTC(),
	}, estimate)

	return result, nil
}

// RealizedGains lists the outcome of every disposal in the ledger
func (s *Service) RealizedGains(ctx context.Context, portfolioID string) ([]contracts.RealizedGain, error) {
	grouped, err := s.loadEvents(ctx, portfolioID, nil)
	if err != nil {
		return nil, err
	}

	var gains []contracts.RealizedGain
	for _, events := range grouped {
		gains = append(gains, ledger.RealizedGains(events)...)
	}
	sort.Slice(gains, func(i, j int) bool {
		if gains[i].Date.Equal(gains[j].Date) {
			return gains[i].Symbol < gains[j].Symbol
		}
		return gains[i].Date.Before(gains[j].Date)
	})
	return gains, nil
}

// loadEvents lists and groups the portfolio's events. An empty ledger is
// the one hard failure.
func (s *Service) loadEvents(ctx context.Context, portfolioID string, asOf *time.Time) (map[string][]contracts.LedgerEvent, error) {
	events, err := s.events.ListEvents(ctx, portfolioID, asOf)
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	if len(events) == 0 {
		return nil, contracts.ErrNoHoldings
	}
	return ledger.GroupBySymbol(events), nil
}

// resolvePeriod fills open period bounds from the ledger: start defaults
// to the earliest event, end to now
func (s *Service) resolvePeriod(grouped map[string][]contracts.LedgerEvent, period Period) (time.Time, time.Time) {
	start := period.Start
	if start.IsZero() {
		for _, events := range grouped {
			if len(events) == 0 {
				continue
			}
			if start.IsZero() || events[0].Date.Before(start) {
				start = events[0].Date
			}
		}
	}

	end := period.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return start, end
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	return err == nil && found
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.WithError(err).Debug("Analytics cache write failed")
	}
}

func periodKey(p Period) string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "open"
		}
		return t.Format("2006-01-02")
	}
	return format(p.Start) + ":" + format(p.End)
}
