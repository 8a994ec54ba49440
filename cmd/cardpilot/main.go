package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/config"
	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/engine"
	"github.com/cardpilot/cardpilot-go/internal/handler"
	"github.com/cardpilot/cardpilot-go/internal/infra/cache"
	"github.com/cardpilot/cardpilot-go/internal/infra/client"
	"github.com/cardpilot/cardpilot-go/internal/infra/memstore"
	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/infra/resilience"
	"github.com/cardpilot/cardpilot-go/internal/infra/supabase"
	"github.com/cardpilot/cardpilot-go/internal/port"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Float64("min_effective_mpd", cfg.MinEffectiveMPD),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cardpilot-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	appCache := cache.New[any](cfg.CacheTTL)
	defer appCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	// --- Stores ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var (
		catalogStore port.CatalogStore
		walletStore  port.WalletStore
		txnStore     port.TransactionStore
		userStore    port.UserStore
		authStore    port.AuthStore
	)

	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		catalogStore = supabaseClient
		walletStore = supabaseClient
		txnStore = supabaseClient
		userStore = supabaseClient
		authStore = supabaseClient
	} else {
		logger.Info("using in-memory store as data backend")
		store := memstore.New()
		if err := store.SeedUser("demo", "demo", "demo-password", domain.PreferenceMiles); err != nil {
			logger.Fatal("failed to seed demo user", zap.Error(err))
		}
		catalogStore = store
		walletStore = store
		txnStore = store
		userStore = store
		authStore = store
	}

	explainerClient := client.NewExplainerClient(httpClient, cfg.ExplainerURL, cb, resilienceCfg)

	// --- Services ---
	policy := engine.Policy{MinEffectiveMPDToAvoidCashback: cfg.MinEffectiveMPD}

	recSvc := service.NewRecommendation(
		catalogStore,
		walletStore,
		txnStore,
		userStore,
		appCache,
		policy,
		metrics,
		logger,
	)
	explainSvc := service.NewExplanation(recSvc, explainerClient, metrics, logger)
	walletSvc := service.NewWallet(walletStore, catalogStore, recSvc, logger)
	txnSvc := service.NewTransactions(txnStore, walletStore, logger)
	catalogSvc := service.NewCatalog(catalogStore, userStore, appCache)
	authSvc := service.NewAuthService(authStore, userStore, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Recommendation: recSvc,
		Explanation:    explainSvc,
		Wallet:         walletSvc,
		Transactions:   txnSvc,
		Catalog:        catalogSvc,
		Auth:           authSvc,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
