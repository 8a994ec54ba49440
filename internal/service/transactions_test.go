package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

func TestCreateTransaction_Success(t *testing.T) {
	store, _ := newFixture(t)
	addCards(t, store, "u1", "ww-miles")

	svc := service.NewTransactions(store, store, zap.NewNop())

	txn, err := svc.Create(context.Background(), "u1", &domain.TransactionCreateRequest{
		Date:      "2025-07-21",
		AmountSGD: 42.50,
		CardID:    "ww-miles",
		Channel:   "online",
		Item:      "groceries",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if txn.ID == "" {
		t.Error("expected generated transaction id")
	}
	if txn.Date.Format("2006-01-02") != "2025-07-21" {
		t.Errorf("date = %v, want 2025-07-21", txn.Date)
	}

	listed, err := svc.List(context.Background(), "u1", "2025-07")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("listed %d transactions, want 1", len(listed))
	}
}

func TestCreateTransaction_CardNotInWallet(t *testing.T) {
	store, _ := newFixture(t)
	addCards(t, store, "u1", "ww-miles")

	svc := service.NewTransactions(store, store, zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", &domain.TransactionCreateRequest{
		Date:      "2025-07-21",
		AmountSGD: 10,
		CardID:    "prvi-flat",
		Channel:   "online",
	})
	var valErr *domain.ErrValidation
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if valErr.Field != "card_id" {
		t.Errorf("field = %q, want card_id", valErr.Field)
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	store, _ := newFixture(t)
	addCards(t, store, "u1", "ww-miles")

	svc := service.NewTransactions(store, store, zap.NewNop())

	cases := []struct {
		name string
		req  domain.TransactionCreateRequest
	}{
		{"bad date", domain.TransactionCreateRequest{Date: "yesterday", AmountSGD: 10, CardID: "ww-miles", Channel: "online"}},
		{"zero amount", domain.TransactionCreateRequest{Date: "2025-07-21", AmountSGD: 0, CardID: "ww-miles", Channel: "online"}},
		{"bad channel", domain.TransactionCreateRequest{Date: "2025-07-21", AmountSGD: 10, CardID: "ww-miles", Channel: "atm"}},
		{"missing card", domain.TransactionCreateRequest{Date: "2025-07-21", AmountSGD: 10, Channel: "online"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "u1", &tc.req)
			var valErr *domain.ErrValidation
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestWallet_AddRemove(t *testing.T) {
	store, rec := newFixture(t)

	svc := service.NewWallet(store, store, rec, zap.NewNop())

	wc, err := svc.AddCard(context.Background(), "u1", "ww-miles")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if wc.Position != 1 {
		t.Errorf("position = %d, want 1", wc.Position)
	}

	// Duplicates are rejected.
	if _, err := svc.AddCard(context.Background(), "u1", "ww-miles"); err == nil {
		t.Error("expected conflict on duplicate card")
	}

	// Unknown catalog cards are rejected.
	var notFound *domain.ErrNotFound
	if _, err := svc.AddCard(context.Background(), "u1", "mystery-card"); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound for unknown card, got %v", err)
	}

	if err := svc.RemoveCard(context.Background(), "u1", "ww-miles"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveCard(context.Background(), "u1", "ww-miles"); !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}
