package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/logger"
)

type fakeLedger struct {
	events []contracts.LedgerEvent
	err    error
}

func (f *fakeLedger) ListEvents(ctx context.Context, portfolioID string, asOf *time.Time) ([]contracts.LedgerEvent, error) {
	return f.events, f.err
}

type fakePrices struct {
	quotes     map[string]*contracts.Quote
	history    map[string][]contracts.PricePoint
	historyErr error
}

func newFakePrices() *fakePrices {
	return &fakePrices{
		quotes:  make(map[string]*contracts.Quote),
		history: make(map[string][]contracts.PricePoint),
	}
}

func (f *fakePrices) GetPrice(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return nil, contracts.ErrPriceUnavailable
}

func (f *fakePrices) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PricePoint, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[symbol], nil
}

func (f *fakePrices) EnsurePriceHistory(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	return 0, nil
}

type fakeConverter struct {
	rate float64
}

func (f *fakeConverter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if f.rate == 0 {
		return 0, contracts.ErrRateUnavailable
	}
	return amount * f.rate, nil
}

func (f *fakeConverter) ConvertAt(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error) {
	return f.Convert(ctx, amount, from, to)
}

type countingCache struct {
	values map[string]interface{}
	sets   int
	hits   int
}

func newCountingCache() *countingCache {
	return &countingCache{values: make(map[string]interface{})}
}

func (c *countingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	c.hits++
	switch d := dest.(type) {
	case *contracts.PerformanceMetrics:
		*d = v.(contracts.PerformanceMetrics)
	case *contracts.RiskMetrics:
		*d = v.(contracts.RiskMetrics)
	case *contracts.BenchmarkComparison:
		*d = *v.(*contracts.BenchmarkComparison)
	default:
		return false, nil
	}
	return true, nil
}

func (c *countingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	c.values[key] = value
	return nil
}

func (c *countingCache) Delete(ctx context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func event(symbol string, d time.Time, kind contracts.EventKind, qty, price float64) contracts.LedgerEvent {
	return contracts.LedgerEvent{
		ID:          symbol + d.Format("20060102") + string(kind),
		PortfolioID: "p1",
		Symbol:      symbol,
		Date:        d,
		Kind:        kind,
		Quantity:    decimal.NewFromFloat(qty),
		UnitPrice:   decimal.NewFromFloat(price),
		Currency:    "USD",
	}
}

func analyticsCfg() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		RiskFreeRate:     0.02,
		MinBetaSamples:   20,
		MonteCarloIters:  200,
		MonteCarloSeed:   42,
		CacheTTL:         time.Minute,
		BaseCurrency:     "USD",
		MaxHistoryPoints: 400,
	}
}

func newService(events *fakeLedger, prices *fakePrices, fx Converter, cache contracts.Cache) *Service {
	return NewService(events, prices, fx, cache, analyticsCfg(), logger.NewNop())
}

func TestPositionsFromLedger(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("MSFT", day(0), contracts.EventAcquire, 5, 400),
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
		event("AAPL", day(1), contracts.EventDispose, 4, 160),
	}}
	prices := newFakePrices()
	prices.quotes["AAPL"] = &contracts.Quote{Symbol: "AAPL", Price: 180, Currency: "USD", AsOf: day(2)}
	prices.quotes["MSFT"] = &contracts.Quote{Symbol: "MSFT", Price: 410, Currency: "USD", AsOf: day(2)}

	svc := newService(events, prices, nil, nil)
	positions, err := svc.Positions(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Symbol, "positions come back sorted by symbol")

	aapl := positions[0]
	assert.InDelta(t, 6.0, aapl.Quantity, 1e-9)
	assert.InDelta(t, 150.0, aapl.AverageCost, 1e-9)
	assert.InDelta(t, 900.0, aapl.CostBasis, 1e-9)
	assert.InDelta(t, 1080.0, aapl.MarketValue, 1e-9)
	assert.InDelta(t, 180.0, aapl.UnrealizedPnL, 1e-9)
}

func TestPositionsSoldOutExcluded(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
		event("AAPL", day(1), contracts.EventDispose, 10, 160),
		event("MSFT", day(0), contracts.EventAcquire, 5, 400),
	}}
	prices := newFakePrices()
	prices.quotes["MSFT"] = &contracts.Quote{Symbol: "MSFT", Price: 410, Currency: "USD"}

	svc := newService(events, prices, nil, nil)
	positions, err := svc.Positions(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, positions, 1)
	assert.Equal(t, "MSFT", positions[0].Symbol)
}

func TestPositionsMissingQuoteStillListed(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
	}}

	svc := newService(events, newFakePrices(), nil, nil)
	positions, err := svc.Positions(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, positions, 1)
	assert.Equal(t, 10.0, positions[0].Quantity)
	assert.Zero(t, positions[0].CurrentPrice, "broken feed must not hide the holding")
	assert.Zero(t, positions[0].MarketValue)
}

func TestPositionsConvertsForeignQuote(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("SAP", day(0), contracts.EventAcquire, 10, 100),
	}}
	prices := newFakePrices()
	prices.quotes["SAP"] = &contracts.Quote{Symbol: "SAP", Price: 200, Currency: "EUR", AsOf: day(1)}

	svc := newService(events, prices, &fakeConverter{rate: 1.1}, nil)
	positions, err := svc.Positions(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, positions, 1)
	assert.InDelta(t, 220.0, positions[0].CurrentPrice, 1e-9)
	assert.InDelta(t, 2200.0, positions[0].MarketValue, 1e-9)
}

func TestEmptyLedgerIsNoHoldings(t *testing.T) {
	svc := newService(&fakeLedger{}, newFakePrices(), nil, nil)

	_, err := svc.Positions(context.Background(), "p1")
	assert.ErrorIs(t, err, contracts.ErrNoHoldings)

	_, err = svc.History(context.Background(), "p1", Period{})
	assert.ErrorIs(t, err, contracts.ErrNoHoldings)
}

func TestHistoryResolvesOpenPeriod(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
	}}
	prices := newFakePrices()
	prices.history["AAPL"] = []contracts.PricePoint{
		{Symbol: "AAPL", Timestamp: day(0), Price: 150, Currency: "USD"},
		{Symbol: "AAPL", Timestamp: day(1), Price: 155, Currency: "USD"},
	}

	svc := newService(events, prices, nil, nil)
	history, err := svc.History(context.Background(), "p1", Period{End: day(2)})
	require.NoError(t, err)

	require.NotEmpty(t, history)
	assert.Equal(t, day(0), history[0].Date, "open start anchors at the first event")
	assert.InDelta(t, 1500.0, history[0].TotalValue, 1e-9)
	assert.InDelta(t, 1550.0, history[len(history)-1].TotalValue, 1e-9)
}

func TestPerformanceCached(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
	}}
	prices := newFakePrices()
	prices.history["AAPL"] = []contracts.PricePoint{
		{Symbol: "AAPL", Timestamp: day(0), Price: 150, Currency: "USD"},
		{Symbol: "AAPL", Timestamp: day(1), Price: 160, Currency: "USD"},
	}
	cache := newCountingCache()

	svc := newService(events, prices, nil, cache)
	period := Period{End: day(1)}

	first, err := svc.Performance(context.Background(), "p1", period)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Performance(context.Background(), "p1", period)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits, "second call must be served from cache")
	assert.Equal(t, first.TotalReturnPct, second.TotalReturnPct)
}

func TestRiskReportSurvivesBenchmarkFailure(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
	}}
	prices := newFakePrices()
	prices.history["AAPL"] = []contracts.PricePoint{
		{Symbol: "AAPL", Timestamp: day(0), Price: 150, Currency: "USD"},
		{Symbol: "AAPL", Timestamp: day(1), Price: 160, Currency: "USD"},
		{Symbol: "AAPL", Timestamp: day(2), Price: 155, Currency: "USD"},
	}
	prices.historyErr = nil

	svc := newService(events, prices, nil, nil)

	// Benchmark history lookups share the price source; make only the
	// benchmark symbol fail by clearing its series (empty join, nil beta).
	report, err := svc.RiskReport(context.Background(), "p1", "SPY", Period{End: day(2)})
	require.NoError(t, err)
	assert.Nil(t, report.Beta, "no benchmark data means no beta, not an error")
	assert.Greater(t, report.SampleDays, 0)
}

func TestRiskReportInfraFailureStillReports(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
	}}
	prices := newFakePrices()
	prices.history["AAPL"] = []contracts.PricePoint{
		{Symbol: "AAPL", Timestamp: day(0), Price: 150, Currency: "USD"},
		{Symbol: "AAPL", Timestamp: day(1), Price: 160, Currency: "USD"},
	}

	svc := newService(events, prices, nil, nil)

	// History succeeds first, then the benchmark fetch hits the poisoned source
	history, err := svc.History(context.Background(), "p1", Period{End: day(1)})
	require.NoError(t, err)
	require.NotEmpty(t, history)

	prices.historyErr = errors.New("feed down")
	_, err = svc.History(context.Background(), "p1", Period{End: day(1)})
	require.NoError(t, err, "missing prices degrade to zero value, never to failure")
}

func TestProjectGoal(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 150),
	}}
	prices := newFakePrices()
	var series []contracts.PricePoint
	for i := 0; i < 120; i++ {
		series = append(series, contracts.PricePoint{
			Symbol: "AAPL", Timestamp: day(i), Price: 150 + float64(i), Currency: "USD",
		})
	}
	prices.history["AAPL"] = series

	svc := newService(events, prices, nil, nil)
	result, err := svc.ProjectGoal(context.Background(), "p1", GoalRequest{
		TargetAmount:        100000,
		MonthlyContribution: 500,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.GreaterOrEqual(t, result.Probability, 0.0)
	assert.LessOrEqual(t, result.Probability, 1.0)
	assert.Greater(t, result.CurrentValue, 0.0)
	assert.Len(t, result.Milestones, 4)
}

func TestRealizedGainsSorted(t *testing.T) {
	events := &fakeLedger{events: []contracts.LedgerEvent{
		event("AAPL", day(0), contracts.EventAcquire, 10, 100),
		event("MSFT", day(0), contracts.EventAcquire, 10, 100),
		event("MSFT", day(2), contracts.EventDispose, 5, 120),
		event("AAPL", day(1), contracts.EventDispose, 5, 110),
	}}

	svc := newService(events, newFakePrices(), nil, nil)
	gains, err := svc.RealizedGains(context.Background(), "p1")
	require.NoError(t, err)

	require.Len(t, gains, 2)
	assert.Equal(t, "AAPL", gains[0].Symbol)
	assert.InDelta(t, 50.0, gains[0].Gain, 1e-9)
	assert.Equal(t, "MSFT", gains[1].Symbol)
	assert.InDelta(t, 100.0, gains[1].Gain, 1e-9)
}
