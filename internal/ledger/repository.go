package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Repository implements contracts.LedgerSource against Postgres.
// Events come back ordered by (event_date, seq) since replay is
// order-sensitive.
type Repository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(pool *pgxpool.Pool, log *logger.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: log.WithComponent("ledger"),
	}
}

// ListEvents lists a portfolio's events up to an optional cutoff date.
// Rows with unknown kinds are skipped with a warning rather than failing
// the whole replay.
func (r *Repository) ListEvents(ctx context.Context, portfolioID string, asOf *time.Time) ([]contracts.LedgerEvent, error) {
	query := `
		SELECT id, portfolio_id, symbol, event_date, kind,
			quantity::text, unit_price::text, fees::text,
			currency, COALESCE(split_ratio, ''), seq
		FROM ledger.events
		WHERE portfolio_id = $1 AND ($2::timestamptz IS NULL OR event_date <= $2)
		ORDER BY event_date ASC, seq ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []contracts.LedgerEvent
	for rows.Next() {
		var (
			e                         contracts.LedgerEvent
			kind                      string
			quantity, unitPrice, fees string
		)
		if err := rows.Scan(
			&e.ID, &e.PortfolioID, &e.Symbol, &e.Date, &kind,
			&quantity, &unitPrice, &fees,
			&e.Currency, &e.SplitRatio, &e.Seq,
		); err != nil {
			return nil, err
		}

		parsed, ok := contracts.ParseEventKind(kind)
		if !ok {
			r.logger.WithFields(map[string]interface{}{
				"event_id": e.ID,
				"kind":     kind,
			}).Warn("Skipping event with unknown kind")
			continue
		}
		e.Kind = parsed

		if e.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if e.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, err
		}
		if e.Fees, err = decimal.NewFromString(fees); err != nil {
			return nil, err
		}

		events = append(events, e)
	}
	return events, rows.Err()
}

// ListSymbols lists the distinct symbols a portfolio has ever held
func (r *Repository) ListSymbols(ctx context.Context, portfolioID string) ([]string, error) {
	query := `
		SELECT DISTINCT symbol
		FROM ledger.events
		WHERE portfolio_id = $1
		ORDER BY symbol ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// ListPortfolioIDs lists every portfolio with at least one event.
// Used by the scheduler to know what to keep warm.
func (r *Repository) ListPortfolioIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT portfolio_id
		FROM ledger.events
		ORDER BY portfolio_id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
