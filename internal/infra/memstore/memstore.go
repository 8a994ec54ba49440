// Package memstore is an in-memory implementation of the persistence ports.
// It backs the service when Supabase is not configured (local development,
// demos, tests) and ships pre-seeded with a small card catalog.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Store holds all data behind a single mutex. Good enough for the access
// patterns of a demo backend; swap in Supabase for anything real.
type Store struct {
	mu sync.RWMutex

	catalog       map[string]domain.CardConfig
	catalogOrder  []string
	wallets       map[string][]domain.WalletCard
	transactions  map[string][]domain.Transaction
	profiles      map[string]domain.UserProfile
	credentials   map[string]domain.AuthCredential
	refreshTokens map[string]domain.AuthRefreshToken
}

// New creates an empty store with the default card catalog.
func New() *Store {
	s := &Store{
		catalog:       make(map[string]domain.CardConfig),
		wallets:       make(map[string][]domain.WalletCard),
		transactions:  make(map[string][]domain.Transaction),
		profiles:      make(map[string]domain.UserProfile),
		credentials:   make(map[string]domain.AuthCredential),
		refreshTokens: make(map[string]domain.AuthRefreshToken),
	}
	for _, card := range DefaultCatalog() {
		s.catalog[card.CardID] = card
		s.catalogOrder = append(s.catalogOrder, card.CardID)
	}
	return s
}

// DefaultCatalog returns the built-in card configurations.
func DefaultCatalog() []domain.CardConfig {
	return []domain.CardConfig{
		{
			CardID: "ww-miles",
			Name:   "Woohoo World Miles",
			Family: domain.FamilyCappedBonusMiles,
			CappedBonusMiles: &domain.CappedBonusMilesParams{
				BonusMPDOnline: 4.0,
				BaseMPD:        0.4,
				OnlineCapSGD:   1000,
			},
		},
		{
			CardID: "prvi-flat",
			Name:   "Preevee Flat Miles",
			Family: domain.FamilyFlatMiles,
			FlatMiles: &domain.FlatMilesParams{
				LocalMPD:    1.4,
				OverseasMPD: 2.4,
			},
		},
		{
			CardID: "one-cashback",
			Name:   "OneBack Cashback",
			Family: domain.FamilyTieredCashback,
			TieredCashback: &domain.TieredCashbackParams{
				MinMonthlyTxnCount: 10,
				Tiers: []domain.CashbackTier{
					{ThresholdSGD: 600, QuarterlyPayoutSGD: 60},
					{ThresholdSGD: 1000, QuarterlyPayoutSGD: 100},
					{ThresholdSGD: 2000, QuarterlyPayoutSGD: 200},
				},
				PayoutPeriodMonths: 3,
			},
		},
	}
}

// SeedUser registers a profile with credentials; used at startup for the
// demo user and by tests.
func (s *Store) SeedUser(userID, username, password string, pref domain.Preference) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = domain.UserProfile{UserID: userID, Username: username, Preference: pref}
	s.credentials[userID] = domain.AuthCredential{UserID: userID, PasswordHash: string(hash)}
	return nil
}

// ============================================================
// CatalogStore
// ============================================================

func (s *Store) ListCards(_ context.Context) ([]domain.CardConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]domain.CardConfig, 0, len(s.catalogOrder))
	for _, id := range s.catalogOrder {
		cards = append(cards, s.catalog[id])
	}
	return cards, nil
}

func (s *Store) GetCard(_ context.Context, cardID string) (*domain.CardConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.catalog[cardID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "card", ID: cardID}
	}
	return &card, nil
}

// PutCard inserts or replaces a catalog entry.
func (s *Store) PutCard(card domain.CardConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.catalog[card.CardID]; !exists {
		s.catalogOrder = append(s.catalogOrder, card.CardID)
	}
	s.catalog[card.CardID] = card
}

// ============================================================
// WalletStore
// ============================================================

func (s *Store) ListWalletCards(_ context.Context, userID string) ([]domain.WalletCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]domain.WalletCard, len(s.wallets[userID]))
	copy(cards, s.wallets[userID])
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
	return cards, nil
}

func (s *Store) AddWalletCard(_ context.Context, userID, cardID string) (*domain.WalletCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog[cardID]; !ok {
		return nil, &domain.ErrNotFound{Resource: "card", ID: cardID}
	}
	for _, wc := range s.wallets[userID] {
		if wc.CardID == cardID {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("card %s already in wallet", cardID)}
		}
	}

	wc := domain.WalletCard{
		ID:        uuid.NewString(),
		UserID:    userID,
		CardID:    cardID,
		Status:    domain.WalletCardActive,
		Position:  len(s.wallets[userID]) + 1,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.wallets[userID] = append(s.wallets[userID], wc)
	return &wc, nil
}

func (s *Store) RemoveWalletCard(_ context.Context, userID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.wallets[userID]
	for i, wc := range cards {
		if wc.CardID == cardID {
			s.wallets[userID] = append(cards[:i:i], cards[i+1:]...)
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "wallet card", ID: cardID}
}

// ============================================================
// TransactionStore
// ============================================================

func (s *Store) ListTransactions(_ context.Context, userID string, month string) ([]domain.Transaction, error) {
	if month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			return nil, &domain.ErrValidation{Field: "month", Message: "must be YYYY-MM"}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var txns []domain.Transaction
	for _, txn := range s.transactions[userID] {
		if month != "" && txn.Date.Format("2006-01") != month {
			continue
		}
		txns = append(txns, txn)
	}
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	return txns, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, txnID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, txn := range s.transactions[userID] {
		if txn.ID == txnID {
			t := txn
			return &t, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: txnID}
}

func (s *Store) CreateTransaction(_ context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *txn
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.transactions[stored.UserID] = append(s.transactions[stored.UserID], stored)
	return &stored, nil
}

// ============================================================
// UserStore
// ============================================================

func (s *Store) GetProfile(_ context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &profile, nil
}

func (s *Store) GetProfileByUsername(_ context.Context, username string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, profile := range s.profiles {
		if profile.Username == username {
			p := profile
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "profile", ID: username}
}

func (s *Store) UpdatePreference(_ context.Context, userID string, pref domain.Preference) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	profile.Preference = pref
	s.profiles[userID] = profile
	return &profile, nil
}

// ============================================================
// AuthStore
// ============================================================

func (s *Store) GetCredentials(_ context.Context, userID string) (*domain.AuthCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	return &cred, nil
}

func (s *Store) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "credentials", ID: userID}
	}
	cred.LastLoginAt = &at
	s.credentials[userID] = cred
	return nil
}

func (s *Store) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshTokens[tokenHash] = domain.AuthRefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (s *Store) GetRefreshToken(_ context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.refreshTokens[tokenHash]
	if !ok || time.Now().After(token.ExpiresAt) {
		return nil, &domain.ErrNotFound{Resource: "refresh token", ID: "redacted"}
	}
	return &token, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refreshTokens, tokenHash)
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, token := range s.refreshTokens {
		if token.UserID == userID {
			delete(s.refreshTokens, hash)
		}
	}
	return nil
}
