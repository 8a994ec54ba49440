package domain

// RewardFamily identifies the rule set a card earns under. Evaluation
// dispatches on this tag rather than on card subtypes, so each family's
// evaluator stays an independently testable pure function.
type RewardFamily string

const (
	// FamilyCappedBonusMiles earns a bonus mpd on online spend up to a
	// monthly cap, base mpd elsewhere. A transaction straddling the cap is
	// split between the two rates.
	FamilyCappedBonusMiles RewardFamily = "flat-rate-miles-with-online-bonus-and-cap"

	// FamilyFlatMiles earns a single mpd on everything, no caps.
	FamilyFlatMiles RewardFamily = "flat-rate-miles"

	// FamilyTieredCashback pays a quarterly amount per spend tier, gated on
	// a minimum monthly transaction count.
	FamilyTieredCashback RewardFamily = "tiered-cashback-with-quarterly-payout"
)

// RewardUnit is what a card pays out in.
type RewardUnit string

const (
	UnitMiles    RewardUnit = "miles"
	UnitCashback RewardUnit = "cashback"
)

// Preference is the user's declared benefit preference.
type Preference string

const (
	PreferenceMiles    Preference = "miles"
	PreferenceCashback Preference = "cashback"
)

// Valid reports whether the preference is a known value.
func (p Preference) Valid() bool {
	return p == PreferenceMiles || p == PreferenceCashback
}

// CappedBonusMilesParams configures a FamilyCappedBonusMiles card.
type CappedBonusMilesParams struct {
	BonusMPDOnline float64 `json:"bonus_mpd_online"`
	BaseMPD        float64 `json:"base_mpd"`
	OverseasMPD    float64 `json:"overseas_mpd,omitempty"` // 0 = fall back to BaseMPD
	OnlineCapSGD   float64 `json:"online_cap_sgd"`
}

// FlatMilesParams configures a FamilyFlatMiles card.
type FlatMilesParams struct {
	LocalMPD    float64 `json:"local_mpd"`
	OverseasMPD float64 `json:"overseas_mpd,omitempty"` // 0 = fall back to LocalMPD
}

// CashbackTier pairs a monthly spend threshold with the quarterly payout it
// unlocks.
type CashbackTier struct {
	ThresholdSGD       float64 `json:"threshold_sgd"`
	QuarterlyPayoutSGD float64 `json:"quarterly_payout_sgd"`
}

// TieredCashbackParams configures a FamilyTieredCashback card.
// Tiers must be ascending by threshold.
type TieredCashbackParams struct {
	MinMonthlyTxnCount int            `json:"min_monthly_txn_count"`
	Tiers              []CashbackTier `json:"tiers"`
	PayoutPeriodMonths int            `json:"payout_period_months"`
}

// CardConfig is the static configuration of one wallet slot: a family tag
// plus that family's parameters. Exactly one of the params fields is set,
// matching Family. The engine treats it as read-only.
type CardConfig struct {
	CardID string       `json:"card_id"`
	Name   string       `json:"name"`
	Family RewardFamily `json:"reward_family"`

	CappedBonusMiles *CappedBonusMilesParams `json:"capped_bonus_miles,omitempty"`
	FlatMiles        *FlatMilesParams        `json:"flat_miles,omitempty"`
	TieredCashback   *TieredCashbackParams   `json:"tiered_cashback,omitempty"`
}

// WalletCard is a card a user owns, in declaration order. Only active cards
// are evaluated; declaration order breaks exact reward ties.
type WalletCard struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	CardID    string `json:"card_id"`
	Status    string `json:"status"`
	Position  int    `json:"position"`
	CreatedAt string `json:"created_at,omitempty"`
}

const WalletCardActive = "active"

// UserProfile carries the per-user settings the engine needs.
type UserProfile struct {
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	Preference Preference `json:"benefits_preference"`
}
