package service

import (
	"context"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transactions manages the append-only spending log.
type Transactions struct {
	store  port.TransactionStore
	wallet port.WalletStore
	logger *zap.Logger
}

// NewTransactions creates the transactions service.
func NewTransactions(store port.TransactionStore, wallet port.WalletStore, logger *zap.Logger) *Transactions {
	return &Transactions{store: store, wallet: wallet, logger: logger}
}

func (s *Transactions) List(ctx context.Context, userID, month string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Transactions.List")
	defer span.End()

	return s.store.ListTransactions(ctx, userID, month)
}

func (s *Transactions) Get(ctx context.Context, userID, txnID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Transactions.Get")
	defer span.End()

	return s.store.GetTransaction(ctx, userID, txnID)
}

// Create validates and logs a completed purchase. The card must be in the
// user's wallet: the log feeds that card's monthly aggregates.
func (s *Transactions) Create(ctx context.Context, userID string, req *domain.TransactionCreateRequest) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Transactions.Create")
	defer span.End()

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if req.AmountSGD <= 0 {
		return nil, &domain.ErrValidation{Field: "amount_sgd", Message: "must be positive"}
	}
	channel := domain.Channel(req.Channel)
	if !channel.Valid() {
		return nil, &domain.ErrValidation{Field: "channel", Message: "must be 'online' or 'offline'"}
	}
	if req.CardID == "" {
		return nil, &domain.ErrValidation{Field: "card_id", Message: "must not be empty"}
	}

	walletCards, err := s.wallet.ListWalletCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	inWallet := false
	for _, wc := range walletCards {
		if wc.CardID == req.CardID {
			inWallet = true
			break
		}
	}
	if !inWallet {
		return nil, &domain.ErrValidation{Field: "card_id", Message: "card is not in wallet"}
	}

	txn := &domain.Transaction{
		ID:         uuid.NewString(),
		UserID:     userID,
		Date:       date,
		AmountSGD:  req.AmountSGD,
		CardID:     req.CardID,
		Channel:    channel,
		IsOverseas: req.IsOverseas,
		Item:       req.Item,
		Category:   req.Category,
		CreatedAt:  time.Now().UTC(),
	}

	created, err := s.store.CreateTransaction(ctx, txn)
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction logged",
		zap.String("user_id", userID),
		zap.String("txn_id", created.ID),
		zap.String("card_id", created.CardID),
		zap.Float64("amount_sgd", created.AmountSGD),
	)
	return created, nil
}
