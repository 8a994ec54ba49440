package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(catalog *service.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		backend := "ok"
		code := http.StatusOK

		if _, err := catalog.ListCards(ctx); err != nil {
			logger.Warn("healthz: catalog unreachable", zap.Error(err))
			status = "degraded"
			backend = "unreachable"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]string{
			"status":  status,
			"backend": backend,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
