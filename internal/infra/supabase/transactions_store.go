package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
)

// ============================================================
// Transactions — append-only spending log via PostgREST
// ============================================================

// transactionRow maps the transactions table; dates are stored as
// ISO "YYYY-MM-DD" strings.
type transactionRow struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Date       string  `json:"date"`
	AmountSGD  float64 `json:"amount_sgd"`
	CardID     string  `json:"card_id"`
	Channel    string  `json:"channel"`
	IsOverseas bool    `json:"is_overseas"`
	Item       string  `json:"item,omitempty"`
	Category   string  `json:"category,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

func (r *transactionRow) toDomain() (domain.Transaction, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse transaction date %q: %w", r.Date, err)
	}
	txn := domain.Transaction{
		ID:         r.ID,
		UserID:     r.UserID,
		Date:       date,
		AmountSGD:  r.AmountSGD,
		CardID:     r.CardID,
		Channel:    domain.Channel(r.Channel),
		IsOverseas: r.IsOverseas,
		Item:       r.Item,
		Category:   r.Category,
	}
	if r.CreatedAt != "" {
		if created, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			txn.CreatedAt = created
		}
	}
	return txn, nil
}

// ListTransactions returns a user's transactions, optionally restricted to
// one calendar month ("YYYY-MM").
func (c *Client) ListTransactions(ctx context.Context, userID string, month string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()

	path := fmt.Sprintf("transactions?user_id=eq.%s&order=date.asc", userID)
	if month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "month", Message: "must be YYYY-MM"}
		}
		end := start.AddDate(0, 1, 0)
		path += fmt.Sprintf("&date=gte.%s&date=lt.%s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		txn, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func (c *Client) GetTransaction(ctx context.Context, userID, txnID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()

	path := fmt.Sprintf("transactions?user_id=eq.%s&id=eq.%s&limit=1", userID, txnID)
	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: txnID}
	}

	txn, err := rows[0].toDomain()
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (c *Client) CreateTransaction(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTransaction")
	defer span.End()

	body, err := c.doPost(ctx, "transactions", map[string]any{
		"id":          txn.ID,
		"user_id":     txn.UserID,
		"date":        txn.Date.Format("2006-01-02"),
		"amount_sgd":  txn.AmountSGD,
		"card_id":     txn.CardID,
		"channel":     string(txn.Channel),
		"is_overseas": txn.IsOverseas,
		"item":        txn.Item,
		"category":    txn.Category,
	})
	if err != nil {
		return nil, err
	}

	var rows []transactionRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode created transaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("transaction insert returned no rows")
	}

	created, err := rows[0].toDomain()
	if err != nil {
		return nil, err
	}
	return &created, nil
}
