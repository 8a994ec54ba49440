// Package engine implements the reward recommendation core: monthly state
// aggregation, per-family reward evaluators, and the preference-based
// ranker. Everything here is a pure function of its inputs — no I/O, no
// globals, no retained state between calls — so it is safe to invoke from
// any number of concurrent request handlers.
package engine

import (
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// MonthKey returns the calendar-month key (YYYY-MM) for a date.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// CardState holds one card's aggregates for the evaluation month,
// computed strictly from logged transactions. The candidate transaction is
// never included; evaluators treat it as a hypothetical increment.
type CardState struct {
	SpendTotal      float64
	TxnCount        int
	OnlineSpendUsed float64
}

// MonthState is the per-card aggregate state for one calendar month.
type MonthState struct {
	TargetMonth string
	Cards       map[string]CardState
}

// Card returns the state for a card, zero-valued if the card has no
// transactions this month (including the empty-history case).
func (m *MonthState) Card(cardID string) CardState {
	return m.Cards[cardID]
}

// BuildMonthState derives each card's monthly aggregates from the full
// transaction history. Transactions outside targetMonth are ignored.
func BuildMonthState(history []domain.Transaction, targetMonth string) *MonthState {
	state := &MonthState{
		TargetMonth: targetMonth,
		Cards:       make(map[string]CardState),
	}

	for _, txn := range history {
		if MonthKey(txn.Date) != targetMonth {
			continue
		}
		cs := state.Cards[txn.CardID]
		cs.SpendTotal += txn.AmountSGD
		cs.TxnCount++
		if txn.Channel == domain.ChannelOnline {
			cs.OnlineSpendUsed += txn.AmountSGD
		}
		state.Cards[txn.CardID] = cs
	}

	return state
}
