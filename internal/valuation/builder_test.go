package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// fakePriceSource serves canned price history and records backfill calls
type fakePriceSource struct {
	history   map[string][]contracts.PricePoint
	backfills map[string]int
	// filled on EnsurePriceHistory to simulate a successful provider fetch
	backfillResult map[string][]contracts.PricePoint
}

func newFakePriceSource() *fakePriceSource {
	return &fakePriceSource{
		history:        make(map[string][]contracts.PricePoint),
		backfills:      make(map[string]int),
		backfillResult: make(map[string][]contracts.PricePoint),
	}
}

func (f *fakePriceSource) GetPrice(ctx context.Context, symbol string) (*contracts.Quote, error) {
	series := f.history[symbol]
	if len(series) == 0 {
		return nil, contracts.ErrPriceUnavailable
	}
	last := series[len(series)-1]
	return &contracts.Quote{Symbol: symbol, Price: last.Price, Currency: last.Currency, AsOf: last.Timestamp}, nil
}

func (f *fakePriceSource) GetPriceHistory(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PricePoint, error) {
	var out []contracts.PricePoint
	for _, p := range f.history[symbol] {
		if p.Timestamp.Before(start) || p.Timestamp.After(end.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePriceSource) EnsurePriceHistory(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	f.backfills[symbol]++
	if pts, ok := f.backfillResult[symbol]; ok {
		f.history[symbol] = pts
		return len(pts), nil
	}
	return 0, nil
}

func day(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func acquire(symbol string, d time.Time, qty, price float64) contracts.LedgerEvent {
	return contracts.LedgerEvent{
		Symbol:    symbol,
		Date:      d,
		Kind:      contracts.EventAcquire,
		Quantity:  decimal.NewFromFloat(qty),
		UnitPrice: decimal.NewFromFloat(price),
		Currency:  "USD",
	}
}

func dispose(symbol string, d time.Time, qty, price float64) contracts.LedgerEvent {
	e := acquire(symbol, d, qty, price)
	e.Kind = contracts.EventDispose
	return e
}

func pricePoint(symbol string, d time.Time, price float64) contracts.PricePoint {
	return contracts.PricePoint{Symbol: symbol, Timestamp: d, Price: price, Currency: "USD"}
}

func TestBucketDatesShortRangeIsDaily(t *testing.T) {
	dates := BucketDates(day(0), day(10), DefaultMaxPoints)

	require.Len(t, dates, 11)
	assert.Equal(t, day(0), dates[0])
	assert.Equal(t, day(10), dates[len(dates)-1])
}

func TestBucketDatesLongRangeIsBounded(t *testing.T) {
	start := day(0)
	end := start.AddDate(10, 0, 0)

	dates := BucketDates(start, end, DefaultMaxPoints)

	assert.LessOrEqual(t, len(dates), DefaultMaxPoints+1)
	assert.Equal(t, start, dates[0])
	assert.Equal(t, midnightUTC(end), dates[len(dates)-1])
}

func TestBucketDatesDegenerateRange(t *testing.T) {
	dates := BucketDates(day(5), day(5), DefaultMaxPoints)
	require.NotEmpty(t, dates)
	assert.Equal(t, day(5), dates[len(dates)-1])
}

func TestBuildValuesWithLatestKnownPrice(t *testing.T) {
	prices := newFakePriceSource()
	prices.history["AAPL"] = []contracts.PricePoint{
		pricePoint("AAPL", day(0), 100),
		pricePoint("AAPL", day(5), 110),
	}

	events := map[string][]contracts.LedgerEvent{
		"AAPL": {acquire("AAPL", day(0), 10, 100)},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())
	history, err := b.Build(context.Background(), events, day(0), day(9), DefaultMaxPoints)
	require.NoError(t, err)
	require.Len(t, history, 10)

	// Days 0-4 use the day-0 price, days 5-9 the day-5 price. Never a
	// later price than the bucket date.
	assert.Equal(t, 1000.0, history[0].TotalValue)
	assert.Equal(t, 1000.0, history[4].TotalValue)
	assert.Equal(t, 1100.0, history[5].TotalValue)
	assert.Equal(t, 1100.0, history[9].TotalValue)
}

func TestBuildNoLookahead(t *testing.T) {
	prices := newFakePriceSource()
	// Only one price, dated after the range start
	prices.history["AAPL"] = []contracts.PricePoint{
		pricePoint("AAPL", day(3), 100),
	}

	events := map[string][]contracts.LedgerEvent{
		"AAPL": {acquire("AAPL", day(0), 10, 90)},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())
	history, err := b.Build(context.Background(), events, day(0), day(5), DefaultMaxPoints)
	require.NoError(t, err)

	// Before the first price observation the asset contributes zero
	assert.Equal(t, 0.0, history[0].TotalValue)
	assert.Equal(t, 0.0, history[2].TotalValue)
	assert.Equal(t, 1000.0, history[3].TotalValue)
}

func TestBuildCashFlowPerBucket(t *testing.T) {
	prices := newFakePriceSource()
	prices.history["AAPL"] = []contracts.PricePoint{pricePoint("AAPL", day(0), 100)}

	events := map[string][]contracts.LedgerEvent{
		"AAPL": {
			acquire("AAPL", day(0), 10, 100),
			dispose("AAPL", day(2), 4, 110),
		},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())
	history, err := b.Build(context.Background(), events, day(0), day(3), DefaultMaxPoints)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, 1000.0, history[0].NetCashFlow)
	assert.Equal(t, 0.0, history[1].NetCashFlow)
	assert.Equal(t, -440.0, history[2].NetCashFlow)

	// Invested-to-date is the cumulative net flow
	assert.Equal(t, 1000.0, history[1].TotalInvested)
	assert.Equal(t, 560.0, history[3].TotalInvested)
}

func TestBuildTriggersBackfillWhenEmpty(t *testing.T) {
	prices := newFakePriceSource()
	prices.backfillResult["MSFT"] = []contracts.PricePoint{pricePoint("MSFT", day(0), 50)}

	events := map[string][]contracts.LedgerEvent{
		"MSFT": {acquire("MSFT", day(0), 2, 50)},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())
	history, err := b.Build(context.Background(), events, day(0), day(1), DefaultMaxPoints)
	require.NoError(t, err)

	assert.Equal(t, 1, prices.backfills["MSFT"])
	assert.Equal(t, 100.0, history[0].TotalValue)
}

func TestBuildMissingPricesContributeZero(t *testing.T) {
	prices := newFakePriceSource() // no data, backfill yields nothing

	events := map[string][]contracts.LedgerEvent{
		"GHOST": {acquire("GHOST", day(0), 5, 10)},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())
	history, err := b.Build(context.Background(), events, day(0), day(2), DefaultMaxPoints)
	require.NoError(t, err, "missing prices must not fail the series")

	for _, p := range history {
		assert.Equal(t, 0.0, p.TotalValue)
	}
	// Cash flow is still tracked from the ledger
	assert.Equal(t, 50.0, history[0].TotalInvested)
}

func TestBuildIsDeterministic(t *testing.T) {
	prices := newFakePriceSource()
	prices.history["AAPL"] = []contracts.PricePoint{
		pricePoint("AAPL", day(0), 100),
		pricePoint("AAPL", day(3), 105),
		pricePoint("AAPL", day(7), 95),
	}
	prices.history["MSFT"] = []contracts.PricePoint{
		pricePoint("MSFT", day(1), 50),
	}

	events := map[string][]contracts.LedgerEvent{
		"AAPL": {acquire("AAPL", day(0), 10, 100), dispose("AAPL", day(4), 5, 105)},
		"MSFT": {acquire("MSFT", day(1), 20, 50)},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())

	first, err := b.Build(context.Background(), events, day(0), day(9), DefaultMaxPoints)
	require.NoError(t, err)

	second, err := b.Build(context.Background(), events, day(0), day(9), DefaultMaxPoints)
	require.NoError(t, err)

	assert.Equal(t, first, second, "rebuilding the same inputs must yield identical output")
}

func TestBuildSkipsSoldOutPositions(t *testing.T) {
	prices := newFakePriceSource()
	prices.history["AAPL"] = []contracts.PricePoint{pricePoint("AAPL", day(0), 100)}

	events := map[string][]contracts.LedgerEvent{
		"AAPL": {
			acquire("AAPL", day(0), 10, 100),
			dispose("AAPL", day(1), 10, 100),
		},
	}

	b := NewBuilder(prices, nil, "USD", logger.NewNop())
	history, err := b.Build(context.Background(), events, day(0), day(3), DefaultMaxPoints)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, history[0].TotalValue)
	assert.Equal(t, 0.0, history[1].TotalValue)
	assert.Equal(t, 0.0, history[3].TotalValue)
}
