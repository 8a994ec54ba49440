package domain

// EngineMetrics is an aggregate view of the recommendation engine's
// behavior, served by GET /v1/metrics/engine.
type EngineMetrics struct {
	TotalRequests       int64   `json:"total_requests"`
	ErrorRate           float64 `json:"error_rate"`
	CardsExcluded       int64   `json:"cards_excluded"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	ExplainerTokens     float64 `json:"explainer_tokens"`
	ExplainerFallbacks  int64   `json:"explainer_fallbacks"`
	AvgTokensPerExplain float64 `json:"avg_tokens_per_explain"`
	Period              string  `json:"period"`
}
