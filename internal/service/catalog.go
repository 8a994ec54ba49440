package service

import (
	"context"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/port"
)

// Catalog serves the read-only card catalog and user profile lookups.
type Catalog struct {
	store port.CatalogStore
	users port.UserStore
	cache port.Cache[any]
}

// NewCatalog creates the catalog service.
func NewCatalog(store port.CatalogStore, users port.UserStore, cache port.Cache[any]) *Catalog {
	return &Catalog{store: store, users: users, cache: cache}
}

func (s *Catalog) ListCards(ctx context.Context) ([]domain.CardConfig, error) {
	ctx, span := tracer.Start(ctx, "Catalog.ListCards")
	defer span.End()

	if cached, ok := s.cache.Get("catalog:cards"); ok {
		if cards, ok := cached.([]domain.CardConfig); ok {
			return cards, nil
		}
	}

	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set("catalog:cards", cards)
	return cards, nil
}

func (s *Catalog) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Catalog.GetProfile")
	defer span.End()

	return s.users.GetProfile(ctx, userID)
}

func (s *Catalog) UpdatePreference(ctx context.Context, userID string, pref domain.Preference) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Catalog.UpdatePreference")
	defer span.End()

	if !pref.Valid() {
		return nil, &domain.ErrValidation{Field: "benefits_preference", Message: "must be 'miles' or 'cashback'"}
	}
	return s.users.UpdatePreference(ctx, userID, pref)
}
