package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/folio/backend/internal/contracts"
)

// State is the running position state while replaying one asset's ledger.
// Quantity never goes negative; corrupt upstream rows are clamped instead
// of rejected so legacy data keeps replaying.
type State struct {
	Quantity      decimal.Decimal
	CostBasis     decimal.Decimal
	SharesForCost decimal.Decimal
	Dividends     decimal.Decimal // aggregated for reporting only
	FeesPaid      decimal.Decimal // standalone FEE events only
}

// NewState returns an empty position state
func NewState() State {
	return State{
		Quantity:      decimal.Zero,
		CostBasis:     decimal.Zero,
		SharesForCost: decimal.Zero,
		Dividends:     decimal.Zero,
		FeesPaid:      decimal.Zero,
	}
}

// Apply replays a single event into the state. The switch is exhaustive
// over contracts.EventKind; unknown kinds are a no-op.
func (s *State) Apply(e contracts.LedgerEvent) {
	qty := e.Quantity
	if qty.IsNegative() {
		qty = decimal.Zero
	}

	switch e.Kind {
	case contracts.EventAcquire, contracts.EventTransferIn, contracts.EventConversionIn:
		s.Quantity = s.Quantity.Add(qty)
		s.CostBasis = s.CostBasis.Add(qty.Mul(e.UnitPrice)).Add(e.Fees)
		s.SharesForCost = s.SharesForCost.Add(qty)

	case contracts.EventDispose, contracts.EventTransferOut, contracts.EventConversionOut:
		avg := decimal.Zero
		if s.SharesForCost.IsPositive() {
			avg = s.CostBasis.Div(s.SharesForCost)
		}

		s.Quantity = s.Quantity.Sub(qty)
		if s.Quantity.IsNegative() {
			s.Quantity = decimal.Zero
		}

		s.CostBasis = s.CostBasis.Sub(qty.Mul(avg))
		if s.CostBasis.IsNegative() {
			s.CostBasis = decimal.Zero
		}

		s.SharesForCost = s.SharesForCost.Sub(qty)
		if s.SharesForCost.IsNegative() {
			s.SharesForCost = decimal.Zero
		}

	case contracts.EventSplit:
		// Share count scales by N/D, total cost basis is unchanged
		mult := ParseSplitRatio(e.SplitRatio)
		s.Quantity = s.Quantity.Mul(mult)
		s.SharesForCost = s.SharesForCost.Mul(mult)

	case contracts.EventDividend:
		s.Dividends = s.Dividends.Add(qty.Mul(e.UnitPrice)).Sub(e.Fees)

	case contracts.EventFee:
		s.FeesPaid = s.FeesPaid.Add(e.Fees)
	}
}

// AverageCost returns cost basis per currently held unit, zero when flat
func (s State) AverageCost() decimal.Decimal {
	if !s.Quantity.IsPositive() {
		return decimal.Zero
	}
	return s.CostBasis.Div(s.Quantity)
}

// Replay replays one asset's ordered events into a final state
func Replay(events []contracts.LedgerEvent) State {
	state := NewState()
	for _, e := range events {
		state.Apply(e)
	}
	return state
}

// ParseSplitRatio parses "N:D" into the multiplier N/D.
// Malformed or non-positive ratios fall back to 1, so a bad row leaves
// the position untouched rather than corrupting it.
func ParseSplitRatio(ratio string) decimal.Decimal {
	one := decimal.NewFromInt(1)

	parts := strings.Split(strings.TrimSpace(ratio), ":")
	if len(parts) != 2 {
		return one
	}

	num, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil || !num.IsPositive() {
		return one
	}

	den, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil || !den.IsPositive() {
		return one
	}

	return num.Div(den)
}

// GroupBySymbol splits an ordered event list into per-symbol lists,
// preserving order within each symbol
func GroupBySymbol(events []contracts.LedgerEvent) map[string][]contracts.LedgerEvent {
	grouped := make(map[string][]contracts.LedgerEvent)
	for _, e := range events {
		grouped[e.Symbol] = append(grouped[e.Symbol], e)
	}
	return grouped
}
