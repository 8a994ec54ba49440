package engine

import (
	"fmt"
	"math"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// Evaluation is one card's reward estimate for a candidate transaction,
// plus the explanation fragments that justify it.
type Evaluation struct {
	CardID           string
	Unit             domain.RewardUnit
	Value            float64 // rounded per unit convention
	RawValue         float64 // unrounded, used for effective-rate math
	EffectiveRateStr string
	Explanations     []string
}

// Rounding convention: miles are integral, rounded half away from zero;
// cashback is rounded to 2 decimals, also half away from zero.
func roundMiles(v float64) float64 {
	return math.Round(v)
}

func roundCashback(v float64) float64 {
	return math.Round(v*100) / 100
}

// Evaluate dispatches on the card's reward family and returns the reward
// estimate. A *domain.ErrCardConfig means the card's parameters are invalid
// and the card must be excluded from ranking; other cards are unaffected.
func Evaluate(card domain.CardConfig, state CardState, txn domain.CandidateTransaction) (*Evaluation, error) {
	switch card.Family {
	case domain.FamilyCappedBonusMiles:
		return evaluateCappedBonusMiles(card, state, txn)
	case domain.FamilyFlatMiles:
		return evaluateFlatMiles(card, txn)
	case domain.FamilyTieredCashback:
		return evaluateTieredCashback(card, state, txn)
	default:
		return nil, &domain.ErrCardConfig{CardID: card.CardID, Param: "reward_family", Reason: fmt.Sprintf("unknown family %q", card.Family)}
	}
}

// ============================================================
// Capped-bonus miles (online bonus up to a monthly cap)
// ============================================================

func validateCappedBonusMiles(cardID string, p *domain.CappedBonusMilesParams) error {
	if p == nil {
		return &domain.ErrCardConfig{CardID: cardID, Param: "capped_bonus_miles", Reason: "params missing"}
	}
	if p.BonusMPDOnline <= 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "bonus_mpd_online", Reason: "must be positive"}
	}
	if p.BaseMPD <= 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "base_mpd", Reason: "must be positive"}
	}
	if p.OverseasMPD < 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "overseas_mpd", Reason: "must not be negative"}
	}
	if p.OnlineCapSGD <= 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "online_cap_sgd", Reason: "must be positive"}
	}
	return nil
}

func evaluateCappedBonusMiles(card domain.CardConfig, state CardState, txn domain.CandidateTransaction) (*Evaluation, error) {
	p := card.CappedBonusMiles
	if err := validateCappedBonusMiles(card.CardID, p); err != nil {
		return nil, err
	}

	ev := &Evaluation{CardID: card.CardID, Unit: domain.UnitMiles}

	if txn.Channel != domain.ChannelOnline {
		rate := p.BaseMPD
		label := "Offline"
		if txn.IsOverseas && p.OverseasMPD > 0 {
			rate = p.OverseasMPD
			label = "Overseas"
		}
		ev.RawValue = txn.AmountSGD * rate
		ev.Value = roundMiles(ev.RawValue)
		ev.EffectiveRateStr = fmt.Sprintf("%.1f mpd", rate)
		ev.Explanations = append(ev.Explanations, fmt.Sprintf("%s transaction @ %.1f mpd", label, rate))
		return ev, nil
	}

	remaining := math.Max(0, p.OnlineCapSGD-state.OnlineSpendUsed)
	eligible := math.Min(txn.AmountSGD, remaining)
	spill := txn.AmountSGD - eligible

	ev.RawValue = eligible*p.BonusMPDOnline + spill*p.BaseMPD
	ev.Value = roundMiles(ev.RawValue)

	if spill > 0 {
		// The transaction straddles the cap: split, never floor or round up.
		ev.EffectiveRateStr = fmt.Sprintf("split: %.1f/%.1f mpd", p.BonusMPDOnline, p.BaseMPD)
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Online cap: S$%.2f @ %.1f mpd, S$%.2f @ %.1f mpd", eligible, p.BonusMPDOnline, spill, p.BaseMPD),
			fmt.Sprintf("Cap remaining before: S$%.2f", remaining),
		)
	} else {
		ev.EffectiveRateStr = fmt.Sprintf("%.1f mpd", p.BonusMPDOnline)
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Online transaction @ %.1f mpd", p.BonusMPDOnline),
			fmt.Sprintf("Cap remaining before: S$%.2f", remaining),
			fmt.Sprintf("Cap remaining after: S$%.2f", remaining-eligible),
		)
	}
	return ev, nil
}

// ============================================================
// Flat-rate miles (no caps, stateless)
// ============================================================

func validateFlatMiles(cardID string, p *domain.FlatMilesParams) error {
	if p == nil {
		return &domain.ErrCardConfig{CardID: cardID, Param: "flat_miles", Reason: "params missing"}
	}
	if p.LocalMPD <= 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "local_mpd", Reason: "must be positive"}
	}
	if p.OverseasMPD < 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "overseas_mpd", Reason: "must not be negative"}
	}
	return nil
}

func evaluateFlatMiles(card domain.CardConfig, txn domain.CandidateTransaction) (*Evaluation, error) {
	p := card.FlatMiles
	if err := validateFlatMiles(card.CardID, p); err != nil {
		return nil, err
	}

	rate := p.LocalMPD
	if txn.IsOverseas && p.OverseasMPD > 0 {
		rate = p.OverseasMPD
	}

	raw := txn.AmountSGD * rate
	return &Evaluation{
		CardID:           card.CardID,
		Unit:             domain.UnitMiles,
		Value:            roundMiles(raw),
		RawValue:         raw,
		EffectiveRateStr: fmt.Sprintf("%.1f mpd", rate),
		Explanations: []string{
			fmt.Sprintf("Standard earn rate @ %.1f mpd", rate),
			"No monthly caps or restrictions",
		},
	}, nil
}

// ============================================================
// Tiered cashback with quarterly payout
// ============================================================

func validateTieredCashback(cardID string, p *domain.TieredCashbackParams) error {
	if p == nil {
		return &domain.ErrCardConfig{CardID: cardID, Param: "tiered_cashback", Reason: "params missing"}
	}
	if p.MinMonthlyTxnCount <= 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "min_monthly_txn_count", Reason: "must be positive"}
	}
	if len(p.Tiers) == 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "tiers", Reason: "must not be empty"}
	}
	prev := 0.0
	for i, tier := range p.Tiers {
		if tier.ThresholdSGD <= prev {
			return &domain.ErrCardConfig{CardID: cardID, Param: "tiers", Reason: fmt.Sprintf("thresholds must be positive and ascending (index %d)", i)}
		}
		prev = tier.ThresholdSGD
		if tier.QuarterlyPayoutSGD <= 0 {
			return &domain.ErrCardConfig{CardID: cardID, Param: "tiers", Reason: fmt.Sprintf("payout must be positive for tier S$%.0f", tier.ThresholdSGD)}
		}
	}
	if p.PayoutPeriodMonths <= 0 {
		return &domain.ErrCardConfig{CardID: cardID, Param: "payout_period_months", Reason: "must be positive"}
	}
	return nil
}

// tierOf returns the index of the highest tier whose threshold spend meets
// or exceeds, and whether any tier was reached.
func tierOf(tiers []domain.CashbackTier, spend float64) (int, bool) {
	tier, found := -1, false
	for i, t := range tiers {
		if spend >= t.ThresholdSGD {
			tier = i
			found = true
		}
	}
	return tier, found
}

func evaluateTieredCashback(card domain.CardConfig, state CardState, txn domain.CandidateTransaction) (*Evaluation, error) {
	p := card.TieredCashback
	if err := validateTieredCashback(card.CardID, p); err != nil {
		return nil, err
	}

	spendPre, txnsPre := state.SpendTotal, state.TxnCount
	spendPost, txnsPost := spendPre+txn.AmountSGD, txnsPre+1

	tierPre, hasTierPre := tierOf(p.Tiers, spendPre)
	tierPost, hasTierPost := tierOf(p.Tiers, spendPost)

	qualifiedPre := txnsPre >= p.MinMonthlyTxnCount && hasTierPre
	qualifiedPost := txnsPost >= p.MinMonthlyTxnCount && hasTierPost

	monthly := func(qualified bool, tier int) float64 {
		if !qualified {
			return 0
		}
		return p.Tiers[tier].QuarterlyPayoutSGD / float64(p.PayoutPeriodMonths)
	}
	payoutPre := monthly(qualifiedPre, tierPre)
	payoutPost := monthly(qualifiedPost, tierPost)

	// The reward is the marginal expected-monthly value attributable to this
	// specific transaction, not the card's total monthly value. A single
	// transaction can cross the count gate or a tier boundary.
	delta := payoutPost - payoutPre

	ev := &Evaluation{
		CardID:   card.CardID,
		Unit:     domain.UnitCashback,
		Value:    roundCashback(delta),
		RawValue: delta,
	}

	// Transaction count progress.
	if txnsPost < p.MinMonthlyTxnCount {
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Progress: %d/%d txns (%d more needed)", txnsPost, p.MinMonthlyTxnCount, p.MinMonthlyTxnCount-txnsPost))
	} else {
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Transaction requirement met: %d/%d txns", txnsPost, p.MinMonthlyTxnCount))
	}

	// Spend tier progress.
	if !hasTierPost {
		next := p.Tiers[0].ThresholdSGD
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Spend: S$%.2f (S$%.2f to S$%.0f tier)", spendPost, next-spendPost, next))
	} else if tierPost+1 < len(p.Tiers) {
		next := p.Tiers[tierPost+1].ThresholdSGD
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Current tier: S$%.0f (S$%.2f to S$%.0f tier)", p.Tiers[tierPost].ThresholdSGD, next-spendPost, next))
	} else {
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Highest tier achieved: S$%.0f", p.Tiers[tierPost].ThresholdSGD))
	}

	// Qualification and tier changes.
	switch {
	case !qualifiedPre && qualifiedPost:
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("This transaction qualifies you! Expected monthly payout: S$%.2f", payoutPost))
	case qualifiedPre && tierPost > tierPre:
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Tier upgrade: S$%.0f -> S$%.0f (+S$%.2f/month)",
				p.Tiers[tierPre].ThresholdSGD, p.Tiers[tierPost].ThresholdSGD, delta))
	case qualifiedPost:
		ev.Explanations = append(ev.Explanations,
			fmt.Sprintf("Already qualified at S$%.0f tier (S$%.2f/month expected)", p.Tiers[tierPost].ThresholdSGD, payoutPost))
	default:
		ev.Explanations = append(ev.Explanations, "Not qualified this month; no cashback value from this transaction")
	}

	if ev.Value > 0 {
		ev.EffectiveRateStr = fmt.Sprintf("+S$%.2f/month", ev.Value)
	} else {
		ev.EffectiveRateStr = "S$0.00/month"
	}
	return ev, nil
}
