package service

import (
	"context"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/port"

	"go.uber.org/zap"
)

// Wallet manages a user's card holdings.
type Wallet struct {
	store   port.WalletStore
	catalog port.CatalogStore
	rec     *Recommendation
	logger  *zap.Logger
}

// NewWallet creates the wallet service. The recommendation service is
// needed to invalidate its wallet cache on mutations.
func NewWallet(store port.WalletStore, catalog port.CatalogStore, rec *Recommendation, logger *zap.Logger) *Wallet {
	return &Wallet{store: store, catalog: catalog, rec: rec, logger: logger}
}

func (s *Wallet) ListCards(ctx context.Context, userID string) ([]domain.WalletCard, error) {
	ctx, span := tracer.Start(ctx, "Wallet.ListCards")
	defer span.End()

	return s.store.ListWalletCards(ctx, userID)
}

func (s *Wallet) AddCard(ctx context.Context, userID, cardID string) (*domain.WalletCard, error) {
	ctx, span := tracer.Start(ctx, "Wallet.AddCard")
	defer span.End()

	if cardID == "" {
		return nil, &domain.ErrValidation{Field: "card_id", Message: "must not be empty"}
	}

	// Only catalog cards can be added; the engine has no evaluator for
	// anything else.
	if _, err := s.catalog.GetCard(ctx, cardID); err != nil {
		return nil, err
	}

	wc, err := s.store.AddWalletCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	s.rec.InvalidateWallet(userID)
	s.logger.Info("wallet card added",
		zap.String("user_id", userID),
		zap.String("card_id", cardID),
	)
	return wc, nil
}

func (s *Wallet) RemoveCard(ctx context.Context, userID, cardID string) error {
	ctx, span := tracer.Start(ctx, "Wallet.RemoveCard")
	defer span.End()

	if err := s.store.RemoveWalletCard(ctx, userID, cardID); err != nil {
		return err
	}

	s.rec.InvalidateWallet(userID)
	s.logger.Info("wallet card removed",
		zap.String("user_id", userID),
		zap.String("card_id", cardID),
	)
	return nil
}
