package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// ============================================================
// Auth — credentials and refresh tokens via PostgREST
// ============================================================

func (c *Client) GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredentials")
	defer span.End()

	path := fmt.Sprintf("auth_credentials?user_id=eq.%s&limit=1", userID)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.AuthCredential
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return &rows[0], nil
}

func (c *Client) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLastLogin")
	defer span.End()

	return c.doPatch(ctx, fmt.Sprintf("auth_credentials?user_id=eq.%s", userID), map[string]any{
		"last_login_at": at.UTC().Format(time.RFC3339),
	})
}

func (c *Client) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	_, err := c.doPost(ctx, "auth_refresh_tokens", map[string]any{
		"user_id":    userID,
		"token_hash": tokenHash,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
	return err
}

func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	now := time.Now().UTC().Format(time.RFC3339)
	path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&expires_at=gt.%s&limit=1", tokenHash, now)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []domain.AuthRefreshToken
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "refresh token", ID: "redacted"}
	}
	return &rows[0], nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s", tokenHash))
}

func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("auth_refresh_tokens?user_id=eq.%s", userID))
}
