package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/folio/backend/internal/contracts"
)

// PriceRepository stores historical asset prices
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// GetRange retrieves prices for a symbol within a date range, ascending
func (r *PriceRepository) GetRange(ctx context.Context, symbol string, start, end time.Time) ([]contracts.PricePoint, error) {
	query := `
		SELECT symbol, observed_at, price, currency, source
		FROM market.asset_prices
		WHERE symbol = $1 AND observed_at BETWEEN $2 AND $3
		ORDER BY observed_at ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []contracts.PricePoint
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Symbol, &p.Timestamp, &p.Price, &p.Currency, &p.Source); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetLatest retrieves the most recent price for a symbol
func (r *PriceRepository) GetLatest(ctx context.Context, symbol string) (*contracts.PricePoint, error) {
	query := `
		SELECT symbol, observed_at, price, currency, source
		FROM market.asset_prices
		WHERE symbol = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`

	var p contracts.PricePoint
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&p.Symbol, &p.Timestamp, &p.Price, &p.Currency, &p.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrPriceUnavailable
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LatestTimestamp returns the newest stored observation for a symbol, or
// the zero time when nothing is stored
func (r *PriceRepository) LatestTimestamp(ctx context.Context, symbol string) (time.Time, error) {
	query := `
		SELECT observed_at
		FROM market.asset_prices
		WHERE symbol = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`

	var ts time.Time
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// SaveBatch upserts price observations keyed by (symbol, observed_at)
func (r *PriceRepository) SaveBatch(ctx context.Context, points []contracts.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.asset_prices (symbol, observed_at, price, currency, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, observed_at) DO UPDATE SET
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			source = EXCLUDED.source
	`

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query, p.Symbol, p.Timestamp, p.Price, p.Currency, p.Source)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range points {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// FXRepository stores daily FX rates per currency pair
type FXRepository struct {
	pool *pgxpool.Pool
}

// NewFXRepository creates a new FX rate repository
func NewFXRepository(pool *pgxpool.Pool) *FXRepository {
	return &FXRepository{pool: pool}
}

// GetLatest retrieves the most recent stored rate for a pair
func (r *FXRepository) GetLatest(ctx context.Context, from, to string) (float64, error) {
	query := `
		SELECT rate
		FROM market.fx_rates
		WHERE base_currency = $1 AND quote_currency = $2
		ORDER BY rate_date DESC
		LIMIT 1
	`

	var rate float64
	err := r.pool.QueryRow(ctx, query, from, to).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, contracts.ErrRateUnavailable
	}
	if err != nil {
		return 0, err
	}
	return rate, nil
}

// GetNearest retrieves the stored rate closest to a date in either
// direction. Rates are daily, so "nearest" is a day-distance ordering.
func (r *FXRepository) GetNearest(ctx context.Context, from, to string, date time.Time) (float64, error) {
	query := `
		SELECT rate
		FROM market.fx_rates
		WHERE base_currency = $1 AND quote_currency = $2
		ORDER BY ABS(rate_date - $3::date) ASC, rate_date DESC
		LIMIT 1
	`

	var rate float64
	err := r.pool.QueryRow(ctx, query, from, to, date).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, contracts.ErrRateUnavailable
	}
	if err != nil {
		return 0, err
	}
	return rate, nil
}

// Save upserts one daily rate
func (r *FXRepository) Save(ctx context.Context, from, to string, date time.Time, rate float64) error {
	query := `
		INSERT INTO market.fx_rates (base_currency, quote_currency, rate_date, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (base_currency, quote_currency, rate_date) DO UPDATE SET
			rate = EXCLUDED.rate
	`

	_, err := r.pool.Exec(ctx, query, from, to, date, rate)
	return err
}
