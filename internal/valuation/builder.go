package valuation

import (
	"context"
	"time"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/ledger"
	"github.com/wonny/folio/backend/pkg/logger"
)

// FXConverter converts an amount between currencies at a historical date
type FXConverter interface {
	ConvertAt(ctx context.Context, amount float64, from, to string, date time.Time) (float64, error)
}

// Builder merges replayed holdings with price history into a portfolio
// value series. The output is a pure function of (events, prices, range,
// granularity): recomputation yields identical output.
type Builder struct {
	prices       contracts.PriceSource
	fx           FXConverter
	baseCurrency string
	logger       *logger.Logger
}

// NewBuilder creates a new time-series builder. fx may be nil when all
// assets are priced in the base currency.
func NewBuilder(prices contracts.PriceSource, fx FXConverter, baseCurrency string, log *logger.Logger) *Builder {
	return &Builder{
		prices:       prices,
		fx:           fx,
		baseCurrency: baseCurrency,
		logger:       log.WithComponent("valuation"),
	}
}

// assetCursor carries the per-asset replay state between buckets: two
// monotonic pointers (events, prices) plus the running position.
type assetCursor struct {
	symbol   string
	events   []contracts.LedgerEvent
	prices   []contracts.PricePoint
	eventIdx int
	priceIdx int // index after the last consumed price
	state    ledger.State
}

// lastPrice returns the most recent known price at or before the cursor
// position, and whether one exists yet
func (c *assetCursor) lastPrice() (float64, bool) {
	if c.priceIdx == 0 {
		return 0, false
	}
	return c.prices[c.priceIdx-1].Price, true
}

// Build produces the value series for the requested range. Assets without
// any price data contribute zero rather than failing the series.
func (b *Builder) Build(ctx context.Context, eventsBySymbol map[string][]contracts.LedgerEvent, start, end time.Time, maxPoints int) ([]contracts.PortfolioHistoryPoint, error) {
	buckets := BucketDates(start, end, maxPoints)

	cursors := make([]*assetCursor, 0, len(eventsBySymbol))
	for symbol, events := range eventsBySymbol {
		if len(events) == 0 {
			continue
		}
		series := b.loadPrices(ctx, symbol, events[0].Date, end)
		cursors = append(cursors, &assetCursor{
			symbol: symbol,
			events: events,
			prices: series,
			state:  ledger.NewState(),
		})
	}

	history := make([]contracts.PortfolioHistoryPoint, 0, len(buckets))
	invested := 0.0

	for _, bucket := range buckets {
		bucketEnd := bucket.AddDate(0, 0, 1).Add(-time.Nanosecond)

		totalValue := 0.0
		cashFlow := 0.0

		for _, c := range cursors {
			// Advance the event pointer through this bucket, applying the
			// replay transition rules and accumulating the bucket cash flow.
			for c.eventIdx < len(c.events) && !c.events[c.eventIdx].Date.After(bucketEnd) {
				e := c.events[c.eventIdx]
				c.state.Apply(e)

				switch {
				case e.Kind == contracts.EventAcquire || e.Kind == contracts.EventTransferIn:
					cashFlow += e.Notional()
				case e.Kind == contracts.EventDispose || e.Kind == contracts.EventTransferOut:
					cashFlow -= e.Notional()
				}

				c.eventIdx++
			}

			// Advance the price pointer; the element before it is the most
			// recent price not after the bucket date (no lookahead).
			for c.priceIdx < len(c.prices) && !c.prices[c.priceIdx].Timestamp.After(bucketEnd) {
				c.priceIdx++
			}

			qty, _ := c.state.Quantity.Float64()
			if qty <= 0 {
				continue
			}
			price, ok := c.lastPrice()
			if !ok {
				continue
			}
			totalValue += qty * price
		}

		invested += cashFlow

		history = append(history, contracts.PortfolioHistoryPoint{
			Date:          bucket,
			TotalValue:    totalValue,
			TotalInvested: invested,
			NetCashFlow:   cashFlow,
		})
	}

	return history, nil
}

// loadPrices fetches an ascending price series for one asset, triggering
// an on-demand backfill when the store is empty. A still-empty series is
// returned as-is; the asset then values at zero instead of failing the
// whole build. Prices in a foreign currency are converted to the base
// currency point by point; points whose rate is unavailable are dropped.
func (b *Builder) loadPrices(ctx context.Context, symbol string, start, end time.Time) []contracts.PricePoint {
	series, err := b.prices.GetPriceHistory(ctx, symbol, start, end)
	if err != nil {
		b.logger.WithError(err).WithField("symbol", symbol).Warn("price history lookup failed")
		return nil
	}

	if len(series) == 0 {
		fetched, err := b.prices.EnsurePriceHistory(ctx, symbol, start, end)
		if err != nil {
			b.logger.WithError(err).WithField("symbol", symbol).Warn("price backfill failed")
			return nil
		}
		if fetched > 0 {
			series, err = b.prices.GetPriceHistory(ctx, symbol, start, end)
			if err != nil {
				return nil
			}
		}
	}

	return b.normalizeCurrency(ctx, series)
}

func (b *Builder) normalizeCurrency(ctx context.Context, series []contracts.PricePoint) []contracts.PricePoint {
	if b.fx == nil || b.baseCurrency == "" {
		return series
	}

	out := series[:0]
	for _, p := range series {
		if p.Currency == "" || p.Currency == b.baseCurrency {
			out = append(out, p)
			continue
		}

		converted, err := b.fx.ConvertAt(ctx, p.Price, p.Currency, b.baseCurrency, p.Timestamp)
		if err != nil {
			// No rate for this date: skip the point, keep the series
			continue
		}

		p.Price = converted
		p.Currency = b.baseCurrency
		out = append(out, p)
	}
	return out
}
