package handler_test

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
	"github.com/cardpilot/cardpilot-go/internal/infra/memstore"
	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*memstore.Store, http.Handler) {
	t.Helper()

	store := memstore.New()
	if err := store.SeedUser("u1", "alice", "correct-horse", domain.PreferenceMiles); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	c := cache.New[any](time.Minute)
	t.Cleanup(c.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	recSvc := service.NewRecommendation(store, store, store, store, c, engine.DefaultPolicy(), metrics, logger)
	authSvc := service.NewAuthService(store, store, "test-secret", 15*time.Minute, time.Hour, logger)

	router := handler.NewRouter(handler.Services{
		Recommendation: recSvc,
		Wallet:         service.NewWallet(store, store, recSvc, logger),
		Transactions:   service.NewTransactions(store, store, logger),
		Catalog:        service.NewCatalog(store, store, c),
		Auth:           authSvc,
	}, metrics, logger)

	return store, router
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: "alice", Password: "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func addCard(t *testing.T, router http.Handler, token, cardID string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"card_id": cardID})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/wallet", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add card %s: expected 201, got %d. Body: %s", cardID, rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestEngineMetrics(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/engine", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snapshot domain.EngineMetrics
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode engine metrics: %v", err)
	}
}

func TestListCatalog(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/cards", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Cards []domain.CardConfig `json:"cards"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(resp.Cards) == 0 {
		t.Fatal("expected seeded catalog cards")
	}

	// The tiered-cashback card must survive the JSON round trip with its
	// tier table intact.
	var tiered *domain.CardConfig
	for i := range resp.Cards {
		if resp.Cards[i].Family == domain.FamilyTieredCashback {
			tiered = &resp.Cards[i]
		}
	}
	if tiered == nil || tiered.TieredCashback == nil {
		t.Fatalf("expected a tiered-cashback card in catalog, got %+v", resp.Cards)
	}
	if len(tiered.TieredCashback.Tiers) != 3 {
		t.Fatalf("tiers = %+v, want 3 entries", tiered.TieredCashback.Tiers)
	}
	if top := tiered.TieredCashback.Tiers[2]; top.ThresholdSGD != 2000 || top.QuarterlyPayoutSGD != 200 {
		t.Errorf("top tier = %+v, want threshold 2000 / payout 200", top)
	}
}

func TestRecommend_HappyPath(t *testing.T) {
	_, router := newTestRouter(t)
	token := login(t, router)
	addCard(t, router, token, "ww-miles")
	addCard(t, router, token, "prvi-flat")

	body, _ := json.Marshal(domain.RecommendationRequest{
		Date:      "2025-07-21",
		AmountSGD: 400,
		Channel:   "online",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/recommendations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var result domain.RecommendationResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.RecommendedCardID != "ww-miles" {
		t.Errorf("recommended = %q, want ww-miles", result.RecommendedCardID)
	}
	if len(result.RankedCards) != 2 {
		t.Errorf("ranked %d cards, want 2", len(result.RankedCards))
	}
}

func TestRecommend_ValidationError(t *testing.T) {
	_, router := newTestRouter(t)
	token := login(t, router)
	addCard(t, router, token, "ww-miles")

	body, _ := json.Marshal(domain.RecommendationRequest{
		Date:      "2025-07-21",
		AmountSGD: -10,
		Channel:   "online",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/recommendations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}

func TestRecommend_EmptyWallet(t *testing.T) {
	_, router := newTestRouter(t)

	body, _ := json.Marshal(domain.RecommendationRequest{
		Date:      "2025-07-21",
		AmountSGD: 100,
		Channel:   "online",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/recommendations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}

func TestMutations_RequireAuth(t *testing.T) {
	_, router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"card_id": "ww-miles"})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/wallet", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestWallet_ListAfterAdd(t *testing.T) {
	_, router := newTestRouter(t)
	token := login(t, router)
	addCard(t, router, token, "one-cashback")

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/wallet", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Cards []domain.WalletCard `json:"cards"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode wallet: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].CardID != "one-cashback" {
		t.Errorf("wallet = %+v, want one-cashback", resp.Cards)
	}
}

func TestTransactions_CreateAndList(t *testing.T) {
	_, router := newTestRouter(t)
	token := login(t, router)
	addCard(t, router, token, "ww-miles")

	body, _ := json.Marshal(domain.TransactionCreateRequest{
		Date:      "2025-07-03",
		AmountSGD: 700,
		CardID:    "ww-miles",
		Channel:   "online",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/users/u1/transactions?month=2025-07", nil)
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(resp.Transactions) != 1 {
		t.Errorf("listed %d transactions, want 1", len(resp.Transactions))
	}
}

func TestUpdatePreference(t *testing.T) {
	_, router := newTestRouter(t)
	token := login(t, router)

	body, _ := json.Marshal(map[string]string{"benefits_preference": "cashback"})
	req := httptest.NewRequest(http.MethodPut, "/v1/users/u1/preference", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/users/u1/profile", nil)
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var profile domain.UserProfile
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.Preference != domain.PreferenceCashback {
		t.Errorf("preference = %q, want cashback", profile.Preference)
	}
}

func TestAuth_BadToken(t *testing.T) {
	_, router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"card_id": "ww-miles"})
	req := httptest.NewRequest(http.MethodPost, "/v1/users/u1/wallet", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
}
