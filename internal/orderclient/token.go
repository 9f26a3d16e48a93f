package orderclient

import (
	"context"
	"strings"
)

// TokenSource yields the bearer token attached to outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string {
	return f(ctx)
}

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	token = strings.TrimSpace(token)
	return TokenFunc(func(context.Context) string { return token })
}

type tokenKey struct{}

// WithToken attaches a caller's bearer token to ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, strings.TrimSpace(token))
}

// TokenFromContext returns the token set by WithToken.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// ContextToken reads the token forwarded through WithToken.
func ContextToken() TokenSource {
	return TokenFunc(TokenFromContext)
}

// ChainTokens returns the first non-empty token among sources.
func ChainTokens(sources ...TokenSource) TokenSource {
	return TokenFunc(func(ctx context.Context) string {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if token := src.Token(ctx); token != "" {
				return token
			}
		}
		return ""
	})
}
