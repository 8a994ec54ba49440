package domain

import "time"

// Channel is where a transaction happens.
type Channel string

const (
	ChannelOnline  Channel = "online"
	ChannelOffline Channel = "offline"
)

// Valid reports whether the channel is one of the known values.
func (c Channel) Valid() bool {
	return c == ChannelOnline || c == ChannelOffline
}

// Transaction is a logged, immutable spending fact. It is created once when
// the user records a completed purchase and is never mutated afterwards.
type Transaction struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Date       time.Time `json:"date"`
	AmountSGD  float64   `json:"amount_sgd"`
	CardID     string    `json:"card_id"`
	Channel    Channel   `json:"channel"`
	IsOverseas bool      `json:"is_overseas"`
	Item       string    `json:"item,omitempty"`
	Category   string    `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// CandidateTransaction is the hypothetical purchase the engine evaluates
// card choices for. Same shape as Transaction minus id and card_id; it is
// never persisted by the engine.
type CandidateTransaction struct {
	Date       time.Time `json:"date"`
	AmountSGD  float64   `json:"amount_sgd"`
	Channel    Channel   `json:"channel"`
	IsOverseas bool      `json:"is_overseas"`
}

// TransactionCreateRequest is the payload for logging a new transaction.
type TransactionCreateRequest struct {
	Date       string  `json:"date"`
	AmountSGD  float64 `json:"amount_sgd"`
	CardID     string  `json:"card_id"`
	Channel    string  `json:"channel"`
	IsOverseas bool    `json:"is_overseas"`
	Item       string  `json:"item,omitempty"`
	Category   string  `json:"category,omitempty"`
}
