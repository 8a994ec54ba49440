package handler

import (
	"net/http"

	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router wires up.
type Services struct {
	Recommendation *service.Recommendation
	Explanation    *service.Explanation
	Wallet         *service.Wallet
	Transactions   *service.Transactions
	Catalog        *service.Catalog
	Auth           *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Catalog, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Recommendations
		// =============================================
		r.Post("/users/{userId}/recommendations", recommendHandler(svcs.Recommendation, logger))
		r.Post("/users/{userId}/recommendations/explain", explainHandler(svcs.Explanation, logger))

		// =============================================
		// Catalog & profile (read-only)
		// =============================================
		r.Get("/catalog/cards", listCatalogHandler(svcs.Catalog, logger))
		r.Get("/users/{userId}/profile", getProfileHandler(svcs.Catalog, logger))

		// =============================================
		// Wallet & transactions (reads)
		// =============================================
		r.Get("/users/{userId}/wallet", listWalletHandler(svcs.Wallet, logger))
		r.Get("/users/{userId}/transactions", listTransactionsHandler(svcs.Transactions, logger))
		r.Get("/users/{userId}/transactions/{txnId}", getTransactionHandler(svcs.Transactions, logger))

		// =============================================
		// Metrics
		// =============================================
		r.Get("/metrics/engine", engineMetricsHandler(metrics, logger))

		// =============================================
		// Mutations (JWT-protected when auth is wired)
		// =============================================
		mutations := func(r chi.Router) {
			r.Post("/users/{userId}/wallet", addWalletCardHandler(svcs.Wallet, logger))
			r.Delete("/users/{userId}/wallet/{cardId}", removeWalletCardHandler(svcs.Wallet, logger))
			r.Post("/users/{userId}/transactions", createTransactionHandler(svcs.Transactions, logger))
			r.Put("/users/{userId}/preference", updatePreferenceHandler(svcs.Catalog, logger))
		}
		if svcs.Auth != nil {
			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				mutations(r)
			})
		} else {
			r.Group(mutations)
		}

		// =============================================
		// Auth
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			if svcs.Auth == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
				}))
				return
			}
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/refresh", authRefreshHandler(svcs.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(svcs.Auth, logger))
				r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
			})
		})
	})

	return r
}

// ============================================================
// Engine metrics — GET /v1/metrics/engine
// ============================================================

func engineMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/engine")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
