package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/folio/backend/internal/contracts"
)

func TestRealizedGainsSingleLot(t *testing.T) {
	events := []contracts.LedgerEvent{
		event(contracts.EventAcquire, day(0), 10, 100, 10), // avg 101
		event(contracts.EventDispose, day(5), 4, 120, 2),
	}

	gains := RealizedGains(events)
	require.Len(t, gains, 1)

	g := gains[0]
	assert.Equal(t, 4.0, g.Quantity)
	assert.InDelta(t, 4*120-2, g.Proceeds, 1e-9)
	assert.InDelta(t, 4*101, g.Cost, 1e-9)
	assert.InDelta(t, (4*120-2)-(4*101), g.Gain, 1e-9)
}

func TestRealizedGainsUsesFullAcquisitionHistory(t *testing.T) {
	// The sale-date average is recomputed from every acquisition up to the
	// sale, including units already sold. Selling everything, buying again,
	// then selling still averages over both buys.
	events := []contracts.LedgerEvent{
		event(contracts.EventAcquire, day(0), 10, 100, 0),
		event(contracts.EventDispose, day(1), 10, 110, 0),
		event(contracts.EventAcquire, day(2), 10, 200, 0),
		event(contracts.EventDispose, day(3), 10, 210, 0),
	}

	gains := RealizedGains(events)
	require.Len(t, gains, 2)

	// First sale: avg over first buy only = 100
	assert.InDelta(t, 10*(110-100), gains[0].Gain, 1e-9)

	// Second sale: avg over both buys = (1000+2000)/20 = 150, not 200
	assert.InDelta(t, 150.0*10, gains[1].Cost, 1e-9)
	assert.InDelta(t, 10*(210-150), gains[1].Gain, 1e-9)
}

func TestRealizedGainsIgnoresLaterAcquisitions(t *testing.T) {
	events := []contracts.LedgerEvent{
		event(contracts.EventAcquire, day(0), 10, 100, 0),
		event(contracts.EventDispose, day(5), 5, 130, 0),
		event(contracts.EventAcquire, day(10), 10, 500, 0), // after the sale
	}

	gains := RealizedGains(events)
	require.Len(t, gains, 1)

	// Only the day-0 buy qualifies
	assert.InDelta(t, 5*100.0, gains[0].Cost, 1e-9)
}

func TestRealizedGainsNoDisposals(t *testing.T) {
	events := []contracts.LedgerEvent{
		event(contracts.EventAcquire, day(0), 10, 100, 0),
		event(contracts.EventDividend, day(5), 10, 1, 0),
	}

	assert.Empty(t, RealizedGains(events))
}

func TestRealizedGainsDisposeWithNoAcquisitions(t *testing.T) {
	events := []contracts.LedgerEvent{
		event(contracts.EventDispose, day(0), 5, 100, 0),
	}

	gains := RealizedGains(events)
	require.Len(t, gains, 1)

	// No qualifying acquisitions: cost 0, whole proceeds counted as gain
	assert.Equal(t, 0.0, gains[0].Cost)
	assert.InDelta(t, 500.0, gains[0].Gain, 1e-9)
}
