package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind is the closed set of ledger event kinds. Upstream rows carry
// string kinds; they are parsed once at the boundary so the replayer can
// switch exhaustively.
type EventKind string

const (
	EventAcquire       EventKind = "ACQUIRE"
	EventDispose       EventKind = "DISPOSE"
	EventTransferIn    EventKind = "TRANSFER_IN"
	EventTransferOut   EventKind = "TRANSFER_OUT"
	EventConversionIn  EventKind = "CONVERSION_IN"
	EventConversionOut EventKind = "CONVERSION_OUT"
	EventSplit         EventKind = "SPLIT"
	EventDividend      EventKind = "DIVIDEND"
	EventFee           EventKind = "FEE"
)

// ParseEventKind maps an upstream kind string to the enum.
// Unknown kinds return false; the caller decides whether to skip or fail.
func ParseEventKind(s string) (EventKind, bool) {
	k := EventKind(s)
	switch k {
	case EventAcquire, EventDispose, EventTransferIn, EventTransferOut,
		EventConversionIn, EventConversionOut, EventSplit, EventDividend, EventFee:
		return k, true
	}
	return "", false
}

// AddsUnits reports whether the event increases held quantity
func (k EventKind) AddsUnits() bool {
	return k == EventAcquire || k == EventTransferIn || k == EventConversionIn
}

// RemovesUnits reports whether the event decreases held quantity
func (k EventKind) RemovesUnits() bool {
	return k == EventDispose || k == EventTransferOut || k == EventConversionOut
}

// LedgerEvent is one recorded transaction against a position.
// Immutable once replayed. Ordering key is (Date, Seq).
type LedgerEvent struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Date        time.Time       `json:"date"`
	Kind        EventKind       `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Fees        decimal.Decimal `json:"fees"`
	Currency    string          `json:"currency"`
	SplitRatio  string          `json:"split_ratio,omitempty"` // "N:D", only for SPLIT
	Seq         int64           `json:"seq"`                   // insertion order within a date
}

// Notional returns quantity * unit price as a float for cash-flow math
func (e LedgerEvent) Notional() float64 {
	v, _ := e.Quantity.Mul(e.UnitPrice).Float64()
	return v
}

// PricePoint is one historical price observation for an asset.
// Series are ascending by Timestamp per symbol.
type PricePoint struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Source    string    `json:"source"`
}

// Quote is the latest known price for an asset
type Quote struct {
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"as_of"`
}
