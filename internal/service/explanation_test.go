package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockExplainer struct {
	response *domain.ExplainerResponse
	err      error
}

func (m *mockExplainer) Explain(_ context.Context, _ *domain.ExplainerRequest) (*domain.ExplainerResponse, error) {
	return m.response, m.err
}

// --- Tests ---

func explainFixture(t *testing.T, explainer *mockExplainer) *service.Explanation {
	t.Helper()

	store, rec := newFixture(t)
	addCards(t, store, "u1", "ww-miles", "prvi-flat")

	return service.NewExplanation(rec, explainer, observability.NewMetrics(), zap.NewNop())
}

func TestExplain_LLMSource(t *testing.T) {
	svc := explainFixture(t, &mockExplainer{
		response: &domain.ExplainerResponse{
			Text:       "Your capped-bonus card earns the most miles here.",
			TokensUsed: domain.TokenUsage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
		},
	})

	result, err := svc.Explain(context.Background(), "u1", &domain.ExplainRequest{
		RecommendationRequest: domain.RecommendationRequest{
			Date:      "2025-07-21",
			AmountSGD: 400,
			Channel:   "online",
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Source != "llm" {
		t.Errorf("source = %q, want llm", result.Source)
	}
	if result.TokensUsed.TotalTokens != 160 {
		t.Errorf("tokens = %d, want 160", result.TokensUsed.TotalTokens)
	}
	if result.Result == nil || result.Result.RecommendedCardID == "" {
		t.Error("expected embedded recommendation result")
	}
}

func TestExplain_TemplateFallback(t *testing.T) {
	svc := explainFixture(t, &mockExplainer{
		err: &domain.ErrExternalService{Service: "explainer", Err: errors.New("connection refused")},
	})

	result, err := svc.Explain(context.Background(), "u1", &domain.ExplainRequest{
		RecommendationRequest: domain.RecommendationRequest{
			Date:      "2025-07-21",
			AmountSGD: 400,
			Channel:   "online",
		},
	})
	if err != nil {
		t.Fatalf("fallback must not fail, got %v", err)
	}

	if result.Source != "template" {
		t.Errorf("source = %q, want template", result.Source)
	}
	if !strings.Contains(result.Text, result.Result.RecommendedCardID) {
		t.Errorf("template text should name the recommended card, got %q", result.Text)
	}
}

func TestExplain_RecommendationErrorPropagates(t *testing.T) {
	svc := explainFixture(t, &mockExplainer{response: &domain.ExplainerResponse{Text: "unused"}})

	_, err := svc.Explain(context.Background(), "u1", &domain.ExplainRequest{
		RecommendationRequest: domain.RecommendationRequest{
			Date:      "2025-07-21",
			AmountSGD: -5,
			Channel:   "online",
		},
	})
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
