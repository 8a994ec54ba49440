package engine_test

import (
	"testing"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/engine"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildMonthState_AggregatesPerCard(t *testing.T) {
	history := []domain.Transaction{
		{CardID: "ww", Date: date("2025-07-03"), AmountSGD: 300, Channel: domain.ChannelOnline},
		{CardID: "ww", Date: date("2025-07-10"), AmountSGD: 400, Channel: domain.ChannelOnline},
		{CardID: "ww", Date: date("2025-07-12"), AmountSGD: 50, Channel: domain.ChannelOffline},
		{CardID: "prvi", Date: date("2025-07-15"), AmountSGD: 200, Channel: domain.ChannelOffline},
	}

	state := engine.BuildMonthState(history, "2025-07")

	ww := state.Card("ww")
	if ww.SpendTotal != 750 {
		t.Errorf("ww spend total = %v, want 750", ww.SpendTotal)
	}
	if ww.TxnCount != 3 {
		t.Errorf("ww txn count = %d, want 3", ww.TxnCount)
	}
	if ww.OnlineSpendUsed != 700 {
		t.Errorf("ww online spend used = %v, want 700", ww.OnlineSpendUsed)
	}

	prvi := state.Card("prvi")
	if prvi.SpendTotal != 200 || prvi.TxnCount != 1 || prvi.OnlineSpendUsed != 0 {
		t.Errorf("prvi state = %+v, want {200 1 0}", prvi)
	}
}

func TestBuildMonthState_IgnoresOtherMonths(t *testing.T) {
	history := []domain.Transaction{
		{CardID: "ww", Date: date("2025-06-30"), AmountSGD: 500, Channel: domain.ChannelOnline},
		{CardID: "ww", Date: date("2025-08-01"), AmountSGD: 500, Channel: domain.ChannelOnline},
		{CardID: "ww", Date: date("2025-07-01"), AmountSGD: 100, Channel: domain.ChannelOnline},
	}

	state := engine.BuildMonthState(history, "2025-07")

	ww := state.Card("ww")
	if ww.SpendTotal != 100 || ww.TxnCount != 1 || ww.OnlineSpendUsed != 100 {
		t.Errorf("ww state = %+v, want {100 1 100}", ww)
	}
}

func TestBuildMonthState_EmptyHistory(t *testing.T) {
	state := engine.BuildMonthState(nil, "2025-07")

	cs := state.Card("anything")
	if cs.SpendTotal != 0 || cs.TxnCount != 0 || cs.OnlineSpendUsed != 0 {
		t.Errorf("expected zero state, got %+v", cs)
	}
}

func TestMonthKey(t *testing.T) {
	if got := engine.MonthKey(date("2025-07-21")); got != "2025-07" {
		t.Errorf("MonthKey = %q, want 2025-07", got)
	}
	if got := engine.MonthKey(date("2025-12-01")); got != "2025-12" {
		t.Errorf("MonthKey = %q, want 2025-12", got)
	}
}
