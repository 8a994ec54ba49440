package observability

import (
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the recommendation service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	externalErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cardsExcluded      *prometheus.CounterVec
	recommendations    *prometheus.CounterVec
	explainerTokens    *prometheus.CounterVec
	explainerFallbacks prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardpilot_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpilot_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpilot_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpilot_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		cardsExcluded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpilot_cards_excluded_total",
				Help: "Wallet cards excluded from ranking due to configuration errors.",
			},
			[]string{"param"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpilot_recommendations_total",
				Help: "Total recommendation requests processed.",
			},
			[]string{"status"},
		),
		explainerTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardpilot_explainer_tokens_total",
				Help: "Total LLM tokens consumed by the explainer.",
			},
			[]string{"type"},
		),
		explainerFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cardpilot_explainer_fallbacks_total",
				Help: "Explanations served from the template fallback.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCardExcluded counts a wallet card excluded for a bad config param.
func (m *Metrics) IncrCardExcluded(param string) {
	m.cardsExcluded.WithLabelValues(param).Inc()
}

// IncrRecommendation increments the recommendation counter with a status label.
func (m *Metrics) IncrRecommendation(status string) {
	m.recommendations.WithLabelValues(status).Inc()
}

// RecordExplainerTokens records prompt and completion token usage.
func (m *Metrics) RecordExplainerTokens(prompt, completion int) {
	m.explainerTokens.WithLabelValues("prompt").Add(float64(prompt))
	m.explainerTokens.WithLabelValues("completion").Add(float64(completion))
}

// IncrExplainerFallback counts a template-fallback explanation.
func (m *Metrics) IncrExplainerFallback() {
	m.explainerFallbacks.Inc()
}

// GetEngineSnapshot returns a snapshot of engine metrics suitable for the
// GET /v1/metrics/engine endpoint.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	// Prometheus counters expose cumulative values; read them back directly.
	promptTokens := getCounterValue(m.explainerTokens, "prompt")
	completionTokens := getCounterValue(m.explainerTokens, "completion")
	totalRequests := getCounterValue(m.recommendations, "success") +
		getCounterValue(m.recommendations, "error")
	errorCount := getCounterValue(m.recommendations, "error")
	cacheHits := getCounterValue(m.cacheHits, "wallet")
	cacheMisses := getCounterValue(m.cacheMisses, "wallet")

	var excluded float64
	for _, param := range []string{"capped_bonus_miles", "flat_miles", "tiered_cashback",
		"bonus_mpd_online", "base_mpd", "local_mpd", "overseas_mpd", "online_cap_sgd",
		"min_monthly_txn_count", "tiers", "payout_period_months",
		"reward_family"} {
		excluded += getCounterValue(m.cardsExcluded, param)
	}

	fallbacks := getSingleCounterValue(m.explainerFallbacks)
	totalTokens := promptTokens + completionTokens

	errorRate := float64(0)
	cacheHitRate := float64(0)
	avgTokens := float64(0)

	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
		avgTokens = totalTokens / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.EngineMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		CardsExcluded:       int64(excluded),
		CacheHitRate:        cacheHitRate,
		ExplainerTokens:     totalTokens,
		ExplainerFallbacks:  int64(fallbacks),
		AvgTokensPerExplain: avgTokens,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
