package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/orderwatch/internal/api/requestctx"
	"github.com/creamcroissant/orderwatch/internal/support/i18n"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// translate resolves key in the request language, or returns key unchanged
// without a manager.
func translate(ctx context.Context, mgr *i18n.Manager, key string, args ...any) string {
	if mgr == nil {
		return key
	}
	return mgr.Translate(requestctx.GetLanguage(ctx), key, args...)
}

// RespondErrorI18n writes {"error": msg} with msg translated from key.
func RespondErrorI18n(ctx context.Context, w http.ResponseWriter, status int, key string, mgr *i18n.Manager, args ...any) {
	respondJSON(w, status, map[string]any{
		"error": translate(ctx, mgr, key, args...),
	})
}
