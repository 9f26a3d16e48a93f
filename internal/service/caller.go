package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/creamcroissant/orderwatch/internal/orderclient"
)

type callerKey struct{}

// WithCaller tags ctx with the verified identity of the API caller, e.g. the
// subject of its access token.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, strings.TrimSpace(caller))
}

// CallerFromContext returns the identity set by WithCaller.
func CallerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// OwnerOf identifies who a watch session belongs to: the verified caller
// together with the bearer token forwarded to the order service. Sessions are
// never shared between owners since the order service authorizes per token.
func OwnerOf(ctx context.Context) string {
	caller := CallerFromContext(ctx)
	if caller == "" {
		caller = "-"
	}
	return caller + "|" + tokenFingerprint(orderclient.TokenFromContext(ctx))
}

func tokenFingerprint(token string) string {
	if token == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}
