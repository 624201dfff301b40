package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/folio/backend/internal/contracts"
)

// RealizedGains computes realized profit and loss for each disposal in one
// asset's ordered event list.
//
// The average cost for a sale is recomputed from all qualifying
// acquisitions up to the sale date, not from the incrementally maintained
// running average used for unrealized P&L. The two methods diverge once a
// position has been partially sold; this matches the historical reporting
// behavior and is kept deliberately.
func RealizedGains(events []contracts.LedgerEvent) []contracts.RealizedGain {
	var gains []contracts.RealizedGain

	for i, e := range events {
		if e.Kind != contracts.EventDispose {
			continue
		}

		qty := e.Quantity
		if qty.IsNegative() {
			qty = decimal.Zero
		}

		avg := averageAcquisitionCost(events[:i+1], e.Date)

		proceeds := qty.Mul(e.UnitPrice).Sub(e.Fees)
		cost := qty.Mul(avg)

		proceedsF, _ := proceeds.Float64()
		costF, _ := cost.Float64()
		qtyF, _ := qty.Float64()

		gains = append(gains, contracts.RealizedGain{
			Symbol:   e.Symbol,
			Date:     e.Date,
			Quantity: qtyF,
			Proceeds: proceedsF,
			Cost:     costF,
			Gain:     proceedsF - costF,
		})
	}

	return gains
}

// averageAcquisitionCost averages all acquisition-type events dated at or
// before asOf: total paid (including fees) over total units acquired.
func averageAcquisitionCost(events []contracts.LedgerEvent, asOf time.Time) decimal.Decimal {
	totalCost := decimal.Zero
	totalUnits := decimal.Zero

	for _, e := range events {
		if e.Date.After(asOf) {
			continue
		}
		if !e.Kind.AddsUnits() {
			continue
		}

		qty := e.Quantity
		if qty.IsNegative() {
			continue
		}

		totalCost = totalCost.Add(qty.Mul(e.UnitPrice)).Add(e.Fees)
		totalUnits = totalUnits.Add(qty)
	}

	if !totalUnits.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(totalUnits)
}
