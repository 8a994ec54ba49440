package engine

import (
	"errors"
	"math"
	"sort"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// Policy tunes the ranker. The zero value is not usable; call DefaultPolicy.
type Policy struct {
	// MinEffectiveMPDToAvoidCashback is the miles-per-dollar floor below
	// which a miles-preferring user is still steered to a cashback card,
	// provided the cashback card actually adds value for this transaction.
	MinEffectiveMPDToAvoidCashback float64
}

// DefaultPolicy returns the standard ranking policy.
func DefaultPolicy() Policy {
	return Policy{MinEffectiveMPDToAvoidCashback: 1.0}
}

// Recommend evaluates every card in the wallet against the candidate
// transaction and ranks them by the user's preference. Wallet order is the
// tie-breaker for exactly equal rewards. Cards whose configuration fails
// validation are excluded and reported as diagnostics; if no evaluable card
// remains the result is *domain.ErrEmptyWallet.
func Recommend(userID string, wallet []domain.CardConfig, pref domain.Preference, candidate domain.CandidateTransaction, history []domain.Transaction, policy Policy) (*domain.RecommendationResult, error) {
	if err := validateCandidate(candidate); err != nil {
		return nil, err
	}
	if !pref.Valid() {
		return nil, &domain.ErrValidation{Field: "preference", Message: "must be 'miles' or 'cashback'"}
	}

	targetMonth := MonthKey(candidate.Date)
	state := BuildMonthState(history, targetMonth)

	var (
		evals       []*Evaluation
		diagnostics []domain.CardDiagnostic
	)
	for _, card := range wallet {
		ev, err := Evaluate(card, state.Card(card.CardID), candidate)
		if err != nil {
			var cfgErr *domain.ErrCardConfig
			if errors.As(err, &cfgErr) {
				diagnostics = append(diagnostics, domain.CardDiagnostic{
					CardID: cfgErr.CardID,
					Param:  cfgErr.Param,
					Reason: cfgErr.Reason,
				})
				continue
			}
			return nil, err
		}
		evals = append(evals, ev)
	}

	if len(evals) == 0 {
		return nil, &domain.ErrEmptyWallet{UserID: userID}
	}

	ranked := rank(evals, pref, candidate.AmountSGD, policy)

	result := &domain.RecommendationResult{
		RecommendedCardID: ranked[0].CardID,
		RankedCards:       ranked,
		StateSnapshot:     snapshot(state, wallet),
		Diagnostics:       diagnostics,
	}
	return result, nil
}

func validateCandidate(txn domain.CandidateTransaction) error {
	if txn.AmountSGD <= 0 {
		return &domain.ErrValidation{Field: "amount_sgd", Message: "must be positive"}
	}
	if !txn.Channel.Valid() {
		return &domain.ErrValidation{Field: "channel", Message: "must be 'online' or 'offline'"}
	}
	if txn.Date.IsZero() {
		return &domain.ErrValidation{Field: "date", Message: "must be set"}
	}
	return nil
}

// rank orders evaluations by preference. Within each unit group, higher
// reward wins and exact ties keep wallet declaration order (stable sort).
// Across units the preference decides, with one exception: a miles
// preference yields to cashback when every miles card earns below the
// policy floor and the cashback card has positive marginal value.
func rank(evals []*Evaluation, pref domain.Preference, amount float64, policy Policy) []domain.RankedCard {
	miles := make([]*Evaluation, 0, len(evals))
	cashback := make([]*Evaluation, 0, len(evals))
	for _, ev := range evals {
		if ev.Unit == domain.UnitMiles {
			miles = append(miles, ev)
		} else {
			cashback = append(cashback, ev)
		}
	}

	sort.SliceStable(miles, func(i, j int) bool {
		return miles[i].RawValue > miles[j].RawValue
	})
	sort.SliceStable(cashback, func(i, j int) bool {
		return cashback[i].RawValue > cashback[j].RawValue
	})

	cashbackFirst := false
	switch pref {
	case domain.PreferenceCashback:
		cashbackFirst = len(cashback) > 0 && cashback[0].RawValue > 0
	case domain.PreferenceMiles:
		if len(miles) > 0 && len(cashback) > 0 && cashback[0].RawValue > 0 {
			bestMPD := miles[0].RawValue / amount
			if bestMPD < policy.MinEffectiveMPDToAvoidCashback {
				cashbackFirst = true
			}
		} else if len(miles) == 0 {
			cashbackFirst = true
		}
	}

	ordered := make([]*Evaluation, 0, len(evals))
	if cashbackFirst {
		ordered = append(ordered, cashback...)
		ordered = append(ordered, miles...)
	} else {
		ordered = append(ordered, miles...)
		ordered = append(ordered, cashback...)
	}

	ranked := make([]domain.RankedCard, 0, len(ordered))
	for _, ev := range ordered {
		ranked = append(ranked, domain.RankedCard{
			CardID:               ev.CardID,
			RewardUnit:           ev.Unit,
			EstimatedRewardValue: ev.Value,
			RawRewardValue:       ev.RawValue,
			EffectiveRateStr:     ev.EffectiveRateStr,
			Explanations:         ev.Explanations,
		})
	}
	return ranked
}

// snapshot exposes the pre-transaction aggregates each card was evaluated
// against, so a ranking can be reproduced and audited afterwards.
func snapshot(state *MonthState, wallet []domain.CardConfig) *domain.StateSnapshot {
	snap := &domain.StateSnapshot{
		TargetMonth: state.TargetMonth,
		Cards:       make(map[string]domain.CardMonthState, len(wallet)),
	}
	for _, card := range wallet {
		cs := state.Card(card.CardID)
		ms := domain.CardMonthState{
			SpendTotal:      cs.SpendTotal,
			TxnCount:        cs.TxnCount,
			OnlineSpendUsed: cs.OnlineSpendUsed,
		}
		if card.Family == domain.FamilyCappedBonusMiles && card.CappedBonusMiles != nil {
			ms.OnlineCapRemaining = math.Max(0, card.CappedBonusMiles.OnlineCapSGD-cs.OnlineSpendUsed)
		}
		snap.Cards[card.CardID] = ms
	}
	return snap
}
