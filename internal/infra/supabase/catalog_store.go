package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// ============================================================
// Card catalog — reward configurations via PostgREST
// ============================================================

// catalogRow maps the card_catalog table. The params column is JSONB whose
// shape depends on reward_family.
type catalogRow struct {
	CardID string          `json:"card_id"`
	Name   string          `json:"name"`
	Family string          `json:"reward_family"`
	Params json.RawMessage `json:"params"`
}

func (r *catalogRow) toDomain() (domain.CardConfig, error) {
	cfg := domain.CardConfig{
		CardID: r.CardID,
		Name:   r.Name,
		Family: domain.RewardFamily(r.Family),
	}

	switch cfg.Family {
	case domain.FamilyCappedBonusMiles:
		cfg.CappedBonusMiles = &domain.CappedBonusMilesParams{}
		if err := json.Unmarshal(r.Params, cfg.CappedBonusMiles); err != nil {
			return cfg, fmt.Errorf("decode capped-bonus params for %s: %w", r.CardID, err)
		}
	case domain.FamilyFlatMiles:
		cfg.FlatMiles = &domain.FlatMilesParams{}
		if err := json.Unmarshal(r.Params, cfg.FlatMiles); err != nil {
			return cfg, fmt.Errorf("decode flat-miles params for %s: %w", r.CardID, err)
		}
	case domain.FamilyTieredCashback:
		cfg.TieredCashback = &domain.TieredCashbackParams{}
		if err := json.Unmarshal(r.Params, cfg.TieredCashback); err != nil {
			return cfg, fmt.Errorf("decode tiered-cashback params for %s: %w", r.CardID, err)
		}
	}
	// Unknown families pass through with no params; the engine reports them
	// as config diagnostics instead of failing the whole catalog.
	return cfg, nil
}

func (c *Client) ListCards(ctx context.Context) ([]domain.CardConfig, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCards")
	defer span.End()

	body, err := c.getWithRetry(ctx, "card_catalog?order=card_id.asc")
	if err != nil {
		return nil, err
	}

	var rows []catalogRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode card catalog: %w", err)
	}

	cards := make([]domain.CardConfig, 0, len(rows))
	for i := range rows {
		cfg, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		cards = append(cards, cfg)
	}
	return cards, nil
}

func (c *Client) GetCard(ctx context.Context, cardID string) (*domain.CardConfig, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCard")
	defer span.End()

	path := fmt.Sprintf("card_catalog?card_id=eq.%s&limit=1", cardID)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []catalogRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "card", ID: cardID}
	}

	cfg, err := rows[0].toDomain()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
