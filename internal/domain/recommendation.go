package domain

// RankedCard is one card's evaluation for a candidate transaction,
// positioned in the ranking.
type RankedCard struct {
	CardID               string     `json:"card_id"`
	RewardUnit           RewardUnit `json:"reward_unit"`
	EstimatedRewardValue float64    `json:"estimated_reward_value"`
	RawRewardValue       float64    `json:"-"`
	EffectiveRateStr     string     `json:"effective_rate_str"`
	Explanations         []string   `json:"explanations"`
}

// CardMonthState is the pre-transaction aggregate state one card was
// evaluated against. Exposed in the snapshot so a ranking decision can be
// reproduced after the fact.
type CardMonthState struct {
	SpendTotal         float64 `json:"month_spend_total"`
	TxnCount           int     `json:"month_txn_count"`
	OnlineSpendUsed    float64 `json:"online_spend_used,omitempty"`
	OnlineCapRemaining float64 `json:"online_cap_remaining,omitempty"`
}

// CardDiagnostic reports a wallet card that was excluded from ranking
// because its configuration failed validation.
type CardDiagnostic struct {
	CardID string `json:"card_id"`
	Param  string `json:"param"`
	Reason string `json:"reason"`
}

// StateSnapshot captures the aggregates the ranking was computed from.
type StateSnapshot struct {
	TargetMonth string                    `json:"target_month"`
	Cards       map[string]CardMonthState `json:"cards"`
}

// RecommendationResult is the engine's output contract.
type RecommendationResult struct {
	RecommendedCardID string           `json:"recommended_card_id"`
	RankedCards       []RankedCard     `json:"ranked_cards"`
	StateSnapshot     *StateSnapshot   `json:"state_snapshot,omitempty"`
	Diagnostics       []CardDiagnostic `json:"diagnostics,omitempty"`
}

// RecommendationRequest is the API payload for a recommendation.
type RecommendationRequest struct {
	Date       string  `json:"date"`
	AmountSGD  float64 `json:"amount_sgd"`
	Channel    string  `json:"channel"`
	IsOverseas bool    `json:"is_overseas"`
	Preference string  `json:"preference,omitempty"` // overrides profile preference
}

// ExplainRequest asks for a prose explanation of a recommendation.
type ExplainRequest struct {
	RecommendationRequest
}

// Explanation is the prose output of the explanation layer.
type Explanation struct {
	Text       string                `json:"text"`
	Source     string                `json:"source"` // "llm" | "template"
	Result     *RecommendationResult `json:"result"`
	TokensUsed TokenUsage            `json:"tokens_used,omitempty"`
}

// TokenUsage reports LLM token consumption for one explanation call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExplainerRequest is the payload sent to the LLM explainer sidecar.
type ExplainerRequest struct {
	UserID string                `json:"user_id"`
	Result *RecommendationResult `json:"result"`
}

// ExplainerResponse is what the LLM explainer sidecar returns.
type ExplainerResponse struct {
	Text       string     `json:"text"`
	TokensUsed TokenUsage `json:"tokens_used"`
}
