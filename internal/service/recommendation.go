package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/engine"
	"github.com/cardpilot/cardpilot-go/internal/infra/observability"
	"github.com/cardpilot/cardpilot-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/recommendation")

// Recommendation orchestrates the reward engine: it resolves the user's
// wallet and history, runs the ranking, and reports metrics.
type Recommendation struct {
	catalog port.CatalogStore
	wallet  port.WalletStore
	txns    port.TransactionStore
	users   port.UserStore
	cache   port.Cache[any]
	policy  engine.Policy
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRecommendation creates the recommendation service with all
// dependencies injected.
func NewRecommendation(
	catalog port.CatalogStore,
	wallet port.WalletStore,
	txns port.TransactionStore,
	users port.UserStore,
	cache port.Cache[any],
	policy engine.Policy,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Recommendation {
	return &Recommendation{
		catalog: catalog,
		wallet:  wallet,
		txns:    txns,
		users:   users,
		cache:   cache,
		policy:  policy,
		metrics: metrics,
		logger:  logger,
	}
}

// parseCandidate turns the API payload into an engine candidate.
func parseCandidate(req *domain.RecommendationRequest) (domain.CandidateTransaction, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return domain.CandidateTransaction{}, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return domain.CandidateTransaction{
		Date:       date,
		AmountSGD:  req.AmountSGD,
		Channel:    domain.Channel(req.Channel),
		IsOverseas: req.IsOverseas,
	}, nil
}

// resolvePreference applies the per-request override, falling back to the
// stored profile preference.
func (s *Recommendation) resolvePreference(ctx context.Context, userID string, override string) (domain.Preference, error) {
	if override != "" {
		pref := domain.Preference(override)
		if !pref.Valid() {
			return "", &domain.ErrValidation{Field: "preference", Message: "must be 'miles' or 'cashback'"}
		}
		return pref, nil
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("profile fetch: %w", err)
	}
	if !profile.Preference.Valid() {
		return domain.PreferenceMiles, nil
	}
	return profile.Preference, nil
}

// WalletConfigs resolves the user's active wallet cards to their catalog
// configurations, in declaration order. The result is cached per user.
func (s *Recommendation) WalletConfigs(ctx context.Context, userID string) ([]domain.CardConfig, error) {
	ctx, span := tracer.Start(ctx, "Recommendation.WalletConfigs")
	defer span.End()

	cacheKey := fmt.Sprintf("wallet:%s", userID)
	if cached, ok := s.cache.Get(cacheKey); ok {
		if configs, ok := cached.([]domain.CardConfig); ok {
			s.metrics.IncrCacheHit("wallet")
			return configs, nil
		}
	}
	s.metrics.IncrCacheMiss("wallet")

	walletCards, err := s.wallet.ListWalletCards(ctx, userID)
	if err != nil {
		s.metrics.IncrExternalError("wallet")
		return nil, fmt.Errorf("wallet fetch: %w", err)
	}

	configs := make([]domain.CardConfig, 0, len(walletCards))
	for _, wc := range walletCards {
		if wc.Status != domain.WalletCardActive {
			continue
		}
		cfg, err := s.catalog.GetCard(ctx, wc.CardID)
		if err != nil {
			s.logger.Warn("wallet card missing from catalog",
				zap.String("user_id", userID),
				zap.String("card_id", wc.CardID),
				zap.Error(err),
			)
			continue
		}
		configs = append(configs, *cfg)
	}

	s.cache.Set(cacheKey, configs)
	return configs, nil
}

// InvalidateWallet drops the cached wallet configs after a mutation.
func (s *Recommendation) InvalidateWallet(userID string) {
	s.cache.Delete(fmt.Sprintf("wallet:%s", userID))
}

// Recommend runs the full recommendation flow for one candidate
// transaction.
func (s *Recommendation) Recommend(ctx context.Context, userID string, req *domain.RecommendationRequest) (*domain.RecommendationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Recommendation.Recommend")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("recommend", time.Since(start))
	}()

	candidate, err := parseCandidate(req)
	if err != nil {
		s.metrics.IncrRecommendation("error")
		return nil, err
	}

	pref, err := s.resolvePreference(ctx, userID, req.Preference)
	if err != nil {
		s.metrics.IncrRecommendation("error")
		return nil, err
	}

	// Wallet configs and month history are independent fetches.
	var (
		wallet  []domain.CardConfig
		history []domain.Transaction
	)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w, err := s.WalletConfigs(gCtx, userID)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})

	g.Go(func() error {
		h, err := s.txns.ListTransactions(gCtx, userID, engine.MonthKey(candidate.Date))
		if err != nil {
			s.metrics.IncrExternalError("transactions")
			return fmt.Errorf("transactions fetch: %w", err)
		}
		history = h
		return nil
	})

	if err := g.Wait(); err != nil {
		s.metrics.IncrRecommendation("error")
		return nil, err
	}

	result, err := engine.Recommend(userID, wallet, pref, candidate, history, s.policy)
	if err != nil {
		s.metrics.IncrRecommendation("error")
		return nil, err
	}

	for _, diag := range result.Diagnostics {
		s.metrics.IncrCardExcluded(diag.Param)
		s.logger.Warn("card excluded from ranking",
			zap.String("user_id", userID),
			zap.String("card_id", diag.CardID),
			zap.String("param", diag.Param),
			zap.String("reason", diag.Reason),
		)
	}

	s.metrics.IncrRecommendation("success")
	s.logger.Info("recommendation computed",
		zap.String("user_id", userID),
		zap.String("recommended", result.RecommendedCardID),
		zap.Int("ranked", len(result.RankedCards)),
		zap.Int("excluded", len(result.Diagnostics)),
	)
	return result, nil
}
