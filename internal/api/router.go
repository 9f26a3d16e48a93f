// Package api wires the HTTP surface of orderwatch.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/orderwatch/internal/api/handler"
	"github.com/creamcroissant/orderwatch/internal/api/middleware"
	"github.com/creamcroissant/orderwatch/internal/auth/token"
	"github.com/creamcroissant/orderwatch/internal/config"
	"github.com/creamcroissant/orderwatch/internal/service"
	"github.com/creamcroissant/orderwatch/internal/support/i18n"
)

// Services 汇总路由依赖。
type Services struct {
	Watch  service.OrderWatchService
	I18n   *i18n.Manager
	Tokens *token.Manager // nil 表示不校验 API 令牌
}

// Options 控制可选的路由行为。
type Options struct {
	Metrics  config.MetricsConfig
	Registry *prometheus.Registry // 为 nil 时不暴露 /metrics
	// RateLimiter 为 nil 时不限流。
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

var unloggedPaths = []string{"/healthz", "/metrics"}

// NewRouter builds the chi router.
func NewRouter(logger *slog.Logger, services Services, opts Options) http.Handler {
	if services.Watch == nil {
		panic("router requires OrderWatchService")
	}
	if services.I18n == nil {
		panic("router requires I18n Manager")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)

	metricsEnabled := opts.Metrics.Enabled && opts.Registry != nil
	if metricsEnabled {
		mCfg := middleware.DefaultMetricsConfig()
		if opts.Metrics.Namespace != "" {
			mCfg.Namespace = opts.Metrics.Namespace
		}
		if len(opts.Metrics.Buckets) > 0 {
			mCfg.Buckets = opts.Metrics.Buckets
		}
		r.Use(middleware.NewMetrics(opts.Registry, mCfg).Middleware)
	}

	cors := middleware.DefaultCORSConfig()
	if len(opts.CORSOrigins) > 0 {
		cors.AllowedOrigins = opts.CORSOrigins
	}
	r.Use(
		middleware.CORS(cors),
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     unloggedPaths,
		}),
		chiMiddleware.Recoverer,
		middleware.I18n(services.I18n),
	)
	if opts.RateLimiter != nil {
		r.Use(middleware.RateLimit(opts.RateLimiter, middleware.RateLimitConfig{
			SkipPaths: unloggedPaths,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	if metricsEnabled {
		metricsHandler := promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{Registry: opts.Registry})
		if opts.Metrics.Token != "" {
			r.With(middleware.MetricsGuard(opts.Metrics.Token)).Handle("/metrics", metricsHandler)
		} else {
			r.Handle("/metrics", metricsHandler)
		}
	}

	registerAPIRoutes(r, services)
	return r
}

func registerAPIRoutes(root chi.Router, services Services) {
	orders := handler.NewOrderStatusHandler(services.Watch, services.I18n)

	root.Route("/api/v1", func(api chi.Router) {
		api.Group(func(watch chi.Router) {
			watch.Use(middleware.TokenGuard(services.Tokens, token.ScopeOrdersWatch))
			watch.Get("/orders/{orderID}/status", orders.Status)
			watch.Delete("/orders/{orderID}/watch", orders.CancelWatch)
		})
		api.Group(func(read chi.Router) {
			read.Use(middleware.TokenGuard(services.Tokens, token.ScopeOrdersRead))
			read.Get("/orders/{orderID}/history", orders.History)
			read.Get("/watches", orders.Active)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
