package handler

import (
	"encoding/json"
	"net/http"

	"github.com/cardpilot/cardpilot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Wallet — /v1/users/{userId}/wallet
// ============================================================

func listWalletHandler(svc *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/wallet")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		cards, err := svc.ListCards(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
	}
}

func addWalletCardHandler(svc *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/wallet")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		var req struct {
			CardID string `json:"card_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		wc, err := svc.AddCard(ctx, userID, req.CardID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, wc)
	}
}

func removeWalletCardHandler(svc *service.Wallet, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}/wallet/{cardId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		cardID := chi.URLParam(r, "cardId")
		if userID == "" || cardID == "" {
			writeError(w, http.StatusBadRequest, "user_id and card_id are required")
			return
		}

		if err := svc.RemoveCard(ctx, userID, cardID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
