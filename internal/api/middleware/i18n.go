package middleware

import (
	"net/http"
	"time"

	"github.com/creamcroissant/orderwatch/internal/api/requestctx"
	"github.com/creamcroissant/orderwatch/internal/support/i18n"
)

const languageCookie = "orderwatch_lang"

// I18n 依次从 lang 查询参数、X-I18N-Lang 请求头、Cookie 和
// Accept-Language 中解析语言，并匹配为已支持的语言写入 context。
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queryLang := r.URL.Query().Get("lang")
			lang := queryLang
			if lang == "" {
				lang = r.Header.Get("X-I18N-Lang")
			}
			if lang == "" {
				if cookie, err := r.Cookie(languageCookie); err == nil {
					lang = cookie.Value
				}
			}
			if lang == "" {
				lang = r.Header.Get("Accept-Language")
			}
			if manager != nil {
				lang = manager.Match(lang)
			}

			// 通过查询参数选择的语言写入 Cookie 以便后续请求沿用。
			if queryLang != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     languageCookie,
					Value:    lang,
					Path:     "/",
					Expires:  time.Now().Add(365 * 24 * time.Hour),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(requestctx.WithLanguage(r.Context(), lang)))
		})
	}
}
