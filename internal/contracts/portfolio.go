package contracts

import "time"

// Position is a fully derived holding snapshot. It is rebuilt from the
// ledger on every request; there is no persisted mutable position state.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AverageCost   float64 `json:"average_cost"`
	CostBasis     float64 `json:"cost_basis"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Currency      string  `json:"currency"`
	PriceAsOf     time.Time `json:"price_as_of,omitempty"`
}

// PortfolioHistoryPoint is one bucket of the portfolio value series
type PortfolioHistoryPoint struct {
	Date          time.Time `json:"date"`
	TotalValue    float64   `json:"total_value"`
	TotalInvested float64   `json:"total_invested"`
	NetCashFlow   float64   `json:"net_cash_flow"` // contributions minus withdrawals in the bucket
}

// RealizedGain is the outcome of a single disposal
type RealizedGain struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Proceeds float64   `json:"proceeds"` // net of fees
	Cost     float64   `json:"cost"`     // avg cost as of sale date * quantity
	Gain     float64   `json:"gain"`
}
