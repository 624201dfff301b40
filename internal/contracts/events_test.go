package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseEventKind(t *testing.T) {
	valid := []string{
		"ACQUIRE", "DISPOSE", "TRANSFER_IN", "TRANSFER_OUT",
		"CONVERSION_IN", "CONVERSION_OUT", "SPLIT", "DIVIDEND", "FEE",
	}
	for _, s := range valid {
		kind, ok := ParseEventKind(s)
		if !ok {
			t.Errorf("ParseEventKind(%q) not recognized", s)
		}
		if string(kind) != s {
			t.Errorf("ParseEventKind(%q) = %s", s, kind)
		}
	}

	for _, s := range []string{"", "BUY", "acquire", "UNKNOWN"} {
		if _, ok := ParseEventKind(s); ok {
			t.Errorf("ParseEventKind(%q) should not be recognized", s)
		}
	}
}

func TestEventKindDirection(t *testing.T) {
	adds := []EventKind{EventAcquire, EventTransferIn, EventConversionIn}
	for _, k := range adds {
		if !k.AddsUnits() {
			t.Errorf("%s should add units", k)
		}
		if k.RemovesUnits() {
			t.Errorf("%s should not remove units", k)
		}
	}

	removes := []EventKind{EventDispose, EventTransferOut, EventConversionOut}
	for _, k := range removes {
		if !k.RemovesUnits() {
			t.Errorf("%s should remove units", k)
		}
	}

	neutral := []EventKind{EventSplit, EventDividend, EventFee}
	for _, k := range neutral {
		if k.AddsUnits() || k.RemovesUnits() {
			t.Errorf("%s should not change units directly", k)
		}
	}
}

func TestLedgerEventNotional(t *testing.T) {
	event := LedgerEvent{
		Quantity:  decimal.NewFromInt(10),
		UnitPrice: decimal.NewFromFloat(100.5),
	}

	if got := event.Notional(); got != 1005.0 {
		t.Errorf("Notional() = %v, want 1005.0", got)
	}
}

func TestLedgerEventJSON(t *testing.T) {
	original := LedgerEvent{
		ID:          "e-1",
		PortfolioID: "p-1",
		Symbol:      "AAPL",
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Kind:        EventAcquire,
		Quantity:    decimal.NewFromInt(10),
		UnitPrice:   decimal.NewFromInt(100),
		Fees:        decimal.NewFromInt(1),
		Currency:    "USD",
		Seq:         1,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var decoded LedgerEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}

	if decoded.Kind != EventAcquire {
		t.Errorf("Kind = %s, want %s", decoded.Kind, EventAcquire)
	}
	if !decoded.Quantity.Equal(original.Quantity) {
		t.Errorf("Quantity = %s, want %s", decoded.Quantity, original.Quantity)
	}
}
