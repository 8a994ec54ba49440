package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/infra/memstore"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

func authFixture(t *testing.T) (*memstore.Store, *service.AuthService) {
	t.Helper()

	store := memstore.New()
	if err := store.SeedUser("u1", "alice", "correct-horse", domain.PreferenceMiles); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := service.NewAuthService(store, store, "test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())
	return store, svc
}

func TestLogin_Success(t *testing.T) {
	_, svc := authFixture(t)

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens issued")
	}
	if resp.UserID != "u1" || resp.Username != "alice" {
		t.Errorf("identity = %s/%s, want u1/alice", resp.UserID, resp.Username)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued access token should validate: %v", err)
	}
	if claims.Sub != "u1" {
		t.Errorf("sub = %q, want u1", claims.Sub)
	}
}

// failingLastLoginStore simulates a backend that accepts credentials but
// cannot persist the last-login timestamp.
type failingLastLoginStore struct {
	*memstore.Store
}

func (s *failingLastLoginStore) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error {
	return errors.New("backend unavailable")
}

func TestLogin_SucceedsWhenLastLoginUpdateFails(t *testing.T) {
	store := memstore.New()
	if err := store.SeedUser("u1", "alice", "correct-horse", domain.PreferenceMiles); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := service.NewAuthService(&failingLastLoginStore{store}, store, "test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login must not fail on a best-effort timestamp update, got %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected access token despite timestamp update failure")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, svc := authFixture(t)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "wrong",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	_, svc := authFixture(t)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "mallory",
		Password: "whatever",
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	_, svc := authFixture(t)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh token must rotate")
	}

	// The original token is single-use.
	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized on reused token, got %v", err)
	}
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	_, svc := authFixture(t)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), "u1"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, err = svc.Refresh(context.Background(), &domain.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestValidateAccessToken_RejectsGarbage(t *testing.T) {
	_, svc := authFixture(t)

	_, err := svc.ValidateAccessToken("not-a-jwt")
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
