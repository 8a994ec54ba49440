package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/engine"
	"github.com/cardpilot/cardpilot-go/internal/handler"
	"github.com/cardpilot/cardpilot-go/internal/infra/cache"
	"github.com/cardpilot/cardpilot-go/internal/infra/client"
	"github.com/cardpilot/cardpilot-go/internal/infra/memstore"
	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/infra/resilience"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

func buildRouter(t *testing.T, explainerURL string) http.Handler {
	t.Helper()

	store := memstore.New()
	if err := store.SeedUser("u1", "alice", "correct-horse", domain.PreferenceMiles); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	c := cache.New[any](5 * time.Minute)
	t.Cleanup(c.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("integration")
	resCfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	recSvc := service.NewRecommendation(store, store, store, store, c, engine.DefaultPolicy(), metrics, logger)
	explainSvc := service.NewExplanation(recSvc, client.NewExplainerClient(httpClient, explainerURL, cb, resCfg), metrics, logger)

	return handler.NewRouter(handler.Services{
		Recommendation: recSvc,
		Explanation:    explainSvc,
		Wallet:         service.NewWallet(store, store, recSvc, logger),
		Transactions:   service.NewTransactions(store, store, logger),
		Catalog:        service.NewCatalog(store, store, c),
		Auth:           service.NewAuthService(store, store, "integration-secret", 15*time.Minute, time.Hour, logger),
	}, metrics, logger)
}

func do(t *testing.T, router http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_FullFlow walks the complete user journey: login, build a
// wallet, log spend history, ask for a recommendation, and ask for an
// LLM-backed explanation.
func TestIntegration_FullFlow(t *testing.T) {
	// --- Mock explainer sidecar ---
	explainerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := domain.ExplainerResponse{
			Text:       "Your miles card still has S$300 of bonus cap left this month, so it beats the flat-rate card.",
			TokensUsed: domain.TokenUsage{PromptTokens: 640, CompletionTokens: 110, TotalTokens: 750},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer explainerServer.Close()

	router := buildRouter(t, explainerServer.URL)

	// --- Login ---
	rec := do(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	token := login.AccessToken

	// --- Build wallet ---
	for _, cardID := range []string{"ww-miles", "prvi-flat", "one-cashback"} {
		rec = do(t, router, http.MethodPost, "/v1/users/u1/wallet", token, map[string]string{"card_id": cardID})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add %s: expected 201, got %d. Body: %s", cardID, rec.Code, rec.Body.String())
		}
	}

	// --- Log prior spend: S$700 online on the capped card ---
	rec = do(t, router, http.MethodPost, "/v1/users/u1/transactions", token, domain.TransactionCreateRequest{
		Date:      "2025-07-03",
		AmountSGD: 700,
		CardID:    "ww-miles",
		Channel:   "online",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// --- Recommend for a S$400 online purchase ---
	rec = do(t, router, http.MethodPost, "/v1/users/u1/recommendations", "", domain.RecommendationRequest{
		Date:      "2025-07-21",
		AmountSGD: 400,
		Channel:   "online",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("recommend: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var result domain.RecommendationResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode recommendation: %v", err)
	}
	if result.RecommendedCardID != "ww-miles" {
		t.Errorf("recommended = %q, want ww-miles", result.RecommendedCardID)
	}
	if got := result.RankedCards[0].EstimatedRewardValue; got != 1240 {
		t.Errorf("top reward = %v, want 1240 miles", got)
	}
	if remaining := result.StateSnapshot.Cards["ww-miles"].OnlineCapRemaining; remaining != 300 {
		t.Errorf("cap remaining = %v, want 300", remaining)
	}

	// --- Explain ---
	rec = do(t, router, http.MethodPost, "/v1/users/u1/recommendations/explain", "", domain.ExplainRequest{
		RecommendationRequest: domain.RecommendationRequest{
			Date:      "2025-07-21",
			AmountSGD: 400,
			Channel:   "online",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("explain: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var explanation domain.Explanation
	if err := json.NewDecoder(rec.Body).Decode(&explanation); err != nil {
		t.Fatalf("decode explanation: %v", err)
	}
	if explanation.Source != "llm" {
		t.Errorf("source = %q, want llm", explanation.Source)
	}
	if explanation.TokensUsed.TotalTokens != 750 {
		t.Errorf("tokens = %d, want 750", explanation.TokensUsed.TotalTokens)
	}
	if explanation.Result == nil || explanation.Result.RecommendedCardID != "ww-miles" {
		t.Error("expected embedded recommendation result for ww-miles")
	}
}

// TestIntegration_ExplainerDown verifies the template fallback when the
// explainer sidecar is unreachable.
func TestIntegration_ExplainerDown(t *testing.T) {
	explainerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	explainerServer.Close() // connection refused from here on

	router := buildRouter(t, explainerServer.URL)

	rec := do(t, router, http.MethodPost, "/v1/auth/login", "", domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	rec = do(t, router, http.MethodPost, "/v1/users/u1/wallet", login.AccessToken, map[string]string{"card_id": "prvi-flat"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add card: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/users/u1/recommendations/explain", "", domain.ExplainRequest{
		RecommendationRequest: domain.RecommendationRequest{
			Date:      "2025-07-21",
			AmountSGD: 120,
			Channel:   "offline",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("explain: expected 200 via fallback, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var explanation domain.Explanation
	if err := json.NewDecoder(rec.Body).Decode(&explanation); err != nil {
		t.Fatalf("decode explanation: %v", err)
	}
	if explanation.Source != "template" {
		t.Errorf("source = %q, want template", explanation.Source)
	}
	if explanation.Text == "" {
		t.Error("expected non-empty template text")
	}
}

// TestIntegration_UnauthorizedMutation checks that wallet mutations are
// rejected without a valid token.
func TestIntegration_UnauthorizedMutation(t *testing.T) {
	router := buildRouter(t, "http://localhost:0")

	rec := do(t, router, http.MethodPost, "/v1/users/u1/wallet", "", map[string]string{"card_id": "ww-miles"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
