// Package bootstrap wires shared infrastructure from configuration.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/creamcroissant/orderwatch/internal/auth/token"
	"github.com/creamcroissant/orderwatch/internal/cache"
	"github.com/creamcroissant/orderwatch/internal/config"
	"github.com/creamcroissant/orderwatch/internal/orderclient"
	"github.com/creamcroissant/orderwatch/internal/poller"
)

// Infrastructure bundles the helpers shared by the CLI commands and the server.
type Infrastructure struct {
	Cache    cache.Store
	Tokens   *token.Manager // nil when auth.signing_key is empty
	Client   *orderclient.Client
	Registry *prometheus.Registry
	Metrics  *poller.Metrics
}

// BuildInfrastructure wires default implementations for cache, tokens, the
// order service client and metrics.
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "orderwatch",
		DefaultTTL:      cfg.Cache.SettledTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})

	tokens, err := NewTokenManager(cfg.Auth)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		logger.Warn("auth.signing_key is empty, API token verification disabled")
	}

	client := orderclient.NewClient(cfg.API.BaseURL,
		orderclient.WithTimeout(cfg.API.Timeout),
		orderclient.WithTokenSource(orderclient.ChainTokens(
			orderclient.ContextToken(),
			orderclient.StaticToken(cfg.API.Token),
		)),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metricsCfg := poller.DefaultMetricsConfig()
	if cfg.Metrics.Namespace != "" {
		metricsCfg.Namespace = cfg.Metrics.Namespace
	}

	return &Infrastructure{
		Cache:    cacheStore,
		Tokens:   tokens,
		Client:   client,
		Registry: registry,
		Metrics:  poller.NewMetrics(registry, metricsCfg),
	}, nil
}

// NewTokenManager returns nil without error when no signing key is set.
func NewTokenManager(cfg config.AuthConfig) (*token.Manager, error) {
	key := strings.TrimSpace(cfg.SigningKey)
	if key == "" {
		return nil, nil
	}
	if key == "change-me" {
		return nil, fmt.Errorf("auth.signing_key must be changed from default value")
	}
	m, err := token.NewManager(token.Options{
		SigningKey: []byte(key),
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		TTL:        cfg.TokenTTL,
		Leeway:     cfg.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	return m, nil
}
