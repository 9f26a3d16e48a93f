// Package requestctx 在请求 context 中传递中间件解析出的数据。
package requestctx

import (
	"context"

	"github.com/creamcroissant/orderwatch/internal/auth/token"
)

const defaultLanguage = "en-US"

type languageKey struct{}

type claimsKey struct{}

// WithLanguage 将语言标识附加到 context 中供下游使用。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// GetLanguage 从 context 中获取语言标识，若未设置则返回 "en-US"。
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return defaultLanguage
	}
	if lang, ok := ctx.Value(languageKey{}).(string); ok && lang != "" {
		return lang
	}
	return defaultLanguage
}

// WithClaims attaches verified token claims to the context.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims set by the token guard, if any.
func ClaimsFrom(ctx context.Context) (*token.Claims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(claimsKey{}).(*token.Claims)
	return claims, ok && claims != nil
}
