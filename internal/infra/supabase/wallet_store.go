package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cardpilot/cardpilot-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Wallet — user card holdings via PostgREST
// ============================================================

func (c *Client) ListWalletCards(ctx context.Context, userID string) ([]domain.WalletCard, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListWalletCards")
	defer span.End()

	path := fmt.Sprintf("wallet_cards?user_id=eq.%s&order=position.asc", userID)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.WalletCard
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode wallet cards: %w", err)
	}
	return rows, nil
}

func (c *Client) AddWalletCard(ctx context.Context, userID, cardID string) (*domain.WalletCard, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AddWalletCard")
	defer span.End()

	existing, err := c.ListWalletCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, wc := range existing {
		if wc.CardID == cardID {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("card %s already in wallet", cardID)}
		}
	}

	body, err := c.doPost(ctx, "wallet_cards", map[string]any{
		"id":       uuid.NewString(),
		"user_id":  userID,
		"card_id":  cardID,
		"status":   domain.WalletCardActive,
		"position": len(existing) + 1,
	})
	if err != nil {
		return nil, err
	}

	var rows []domain.WalletCard
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created wallet card: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("wallet card insert returned no rows")
	}

	c.logger.Info("supabase: wallet card added",
		zap.String("user_id", userID),
		zap.String("card_id", cardID),
		zap.Int("position", rows[0].Position),
	)
	return &rows[0], nil
}

func (c *Client) RemoveWalletCard(ctx context.Context, userID, cardID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RemoveWalletCard")
	defer span.End()

	path := fmt.Sprintf("wallet_cards?user_id=eq.%s&card_id=eq.%s&limit=1", userID, cardID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	var rows []domain.WalletCard
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode wallet card: %w", err)
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "wallet card", ID: cardID}
	}

	return c.doDelete(ctx, fmt.Sprintf("wallet_cards?user_id=eq.%s&card_id=eq.%s", userID, cardID))
}
