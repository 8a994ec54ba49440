// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// CatalogStore serves the card catalog: every reward configuration the
// service knows how to evaluate.
type CatalogStore interface {
	ListCards(ctx context.Context) ([]domain.CardConfig, error)
	GetCard(ctx context.Context, cardID string) (*domain.CardConfig, error)
}

// WalletStore manages the cards a user holds, in declaration order.
type WalletStore interface {
	ListWalletCards(ctx context.Context, userID string) ([]domain.WalletCard, error)
	AddWalletCard(ctx context.Context, userID, cardID string) (*domain.WalletCard, error)
	RemoveWalletCard(ctx context.Context, userID, cardID string) error
}

// TransactionStore manages the append-only transaction log.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string, month string) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, txnID string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error)
}

// UserStore serves user profiles and preference updates.
type UserStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetProfileByUsername(ctx context.Context, username string) (*domain.UserProfile, error)
	UpdatePreference(ctx context.Context, userID string, pref domain.Preference) (*domain.UserProfile, error)
}

// AuthStore manages credentials and refresh tokens.
type AuthStore interface {
	GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Explainer produces a prose explanation for a recommendation result.
type Explainer interface {
	Explain(ctx context.Context, req *domain.ExplainerRequest) (*domain.ExplainerResponse, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
