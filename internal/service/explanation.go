package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Explanation turns a recommendation into user-facing prose. It asks the
// LLM explainer sidecar first and falls back to a deterministic template
// when the sidecar is down, so the endpoint never fails on explainer
// outages alone.
type Explanation struct {
	rec       *Recommendation
	explainer port.Explainer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewExplanation creates the explanation service.
func NewExplanation(rec *Recommendation, explainer port.Explainer, metrics *observability.Metrics, logger *zap.Logger) *Explanation {
	return &Explanation{rec: rec, explainer: explainer, metrics: metrics, logger: logger}
}

// Explain computes the recommendation and wraps it in prose.
func (s *Explanation) Explain(ctx context.Context, userID string, req *domain.ExplainRequest) (*domain.Explanation, error) {
	ctx, span := tracer.Start(ctx, "Explanation.Explain")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	result, err := s.rec.Recommend(ctx, userID, &req.RecommendationRequest)
	if err != nil {
		return nil, err
	}

	resp, err := s.explainer.Explain(ctx, &domain.ExplainerRequest{UserID: userID, Result: result})
	if err != nil {
		s.metrics.IncrExternalError("explainer")
		s.metrics.IncrExplainerFallback()
		s.logger.Warn("explainer unavailable, using template",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return &domain.Explanation{
			Text:   templateExplanation(result),
			Source: "template",
			Result: result,
		}, nil
	}

	s.metrics.RecordExplainerTokens(resp.TokensUsed.PromptTokens, resp.TokensUsed.CompletionTokens)
	return &domain.Explanation{
		Text:       resp.Text,
		Source:     "llm",
		Result:     result,
		TokensUsed: resp.TokensUsed,
	}, nil
}

// templateExplanation renders a plain-language summary from the ranked
// cards and their explanation fragments.
func templateExplanation(result *domain.RecommendationResult) string {
	var b strings.Builder

	top := result.RankedCards[0]
	fmt.Fprintf(&b, "Use %s for this purchase", top.CardID)
	switch top.RewardUnit {
	case domain.UnitMiles:
		fmt.Fprintf(&b, ": you earn about %.0f miles (%s).", top.EstimatedRewardValue, top.EffectiveRateStr)
	default:
		fmt.Fprintf(&b, ": it adds S$%.2f to your expected monthly cashback (%s).", top.EstimatedRewardValue, top.EffectiveRateStr)
	}

	for _, reason := range top.Explanations {
		fmt.Fprintf(&b, " %s.", strings.TrimSuffix(reason, "."))
	}

	if len(result.RankedCards) > 1 {
		runner := result.RankedCards[1]
		if runner.RewardUnit == domain.UnitMiles {
			fmt.Fprintf(&b, " Next best: %s at %.0f miles.", runner.CardID, runner.EstimatedRewardValue)
		} else {
			fmt.Fprintf(&b, " Next best: %s at S$%.2f/month.", runner.CardID, runner.EstimatedRewardValue)
		}
	}

	for _, diag := range result.Diagnostics {
		fmt.Fprintf(&b, " %s was skipped (%s).", diag.CardID, diag.Reason)
	}

	return b.String()
}
