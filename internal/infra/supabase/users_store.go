package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cardpilot/cardpilot-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// User profiles — preference storage via PostgREST
// ============================================================

func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()

	path := fmt.Sprintf("user_profiles?user_id=eq.%s&limit=1", userID)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.UserProfile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &rows[0], nil
}

func (c *Client) GetProfileByUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByUsername")
	defer span.End()

	path := fmt.Sprintf("user_profiles?username=eq.%s&limit=1", username)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.UserProfile
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: username}
	}
	return &rows[0], nil
}

func (c *Client) UpdatePreference(ctx context.Context, userID string, pref domain.Preference) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePreference")
	defer span.End()

	err := c.doPatch(ctx, fmt.Sprintf("user_profiles?user_id=eq.%s", userID), map[string]any{
		"benefits_preference": string(pref),
	})
	if err != nil {
		return nil, err
	}

	// Re-fetch to confirm the update actually persisted
	updated, err := c.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("re-fetch after preference update: %w", err)
	}

	c.logger.Info("supabase: preference updated",
		zap.String("user_id", userID),
		zap.String("preference", string(updated.Preference)),
	)
	return updated, nil
}
