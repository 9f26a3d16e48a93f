package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/creamcroissant/orderwatch/internal/api/requestctx"
	"github.com/creamcroissant/orderwatch/internal/auth/token"
	"github.com/creamcroissant/orderwatch/internal/orderclient"
	"github.com/creamcroissant/orderwatch/internal/service"
)

// TokenGuard verifies the caller's JWT and requires scope. The token subject
// becomes the caller identity that scopes watch sessions, and the upstream
// token carried in the claims is forwarded to the order service.
//
// With a nil manager verification is off and the raw bearer token, if any,
// is forwarded as-is.
func TokenGuard(manager *token.Manager, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := extractBearer(r.Header.Get("Authorization"))
			if manager == nil {
				ctx := r.Context()
				if bearer != "" {
					ctx = orderclient.WithToken(ctx, bearer)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if bearer == "" {
				writeUnauthorized(w, "missing authorization header")
				return
			}
			claims, err := manager.Parse(bearer)
			if err != nil {
				if errors.Is(err, token.ErrExpiredToken) {
					writeUnauthorized(w, "token expired")
					return
				}
				writeUnauthorized(w, "invalid token")
				return
			}
			if scope != "" && !claims.HasScope(scope) {
				writeForbidden(w, "missing scope "+scope)
				return
			}
			ctx := requestctx.WithClaims(r.Context(), claims)
			ctx = service.WithCaller(ctx, "sub:"+claims.Subject)
			if claims.Upstream != "" {
				ctx = orderclient.WithToken(ctx, claims.Upstream)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	parts := strings.SplitN(trimmed, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return trimmed
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
