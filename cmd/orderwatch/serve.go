package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/orderwatch/internal/api"
	"github.com/creamcroissant/orderwatch/internal/api/middleware"
	"github.com/creamcroissant/orderwatch/internal/async"
	"github.com/creamcroissant/orderwatch/internal/bootstrap"
	"github.com/creamcroissant/orderwatch/internal/job"
	"github.com/creamcroissant/orderwatch/internal/migrations"
	"github.com/creamcroissant/orderwatch/internal/repository"
	"github.com/creamcroissant/orderwatch/internal/repository/sqlite"
	"github.com/creamcroissant/orderwatch/internal/service"
	"github.com/creamcroissant/orderwatch/internal/support/i18n"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the order status HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}

	i18nManager, err := i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang("en-US"),
	)
	if err != nil {
		return err
	}

	scheduler := job.NewScheduler(logger)

	var (
		sessions repository.WatchSessionRepository
		queue    *async.SessionQueue
	)
	if cfg.History.Enabled {
		db, err := bootstrap.OpenSQLite(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := migrations.Up(db); err != nil {
			return err
		}
		store := sqlite.NewStore(db)
		sessions = store.WatchSessions()
		queue = async.NewSessionQueue(sessions, 0, logger)

		cleanup := job.NewHistoryCleanupJob(sessions, cfg.History.Retention, logger)
		if _, err := scheduler.Register(cfg.History.CleanupSpec, cleanup); err != nil {
			return err
		}
	}

	watchConfig := service.OrderWatchConfig{
		Fetcher:      infra.Client,
		PollInterval: cfg.Poll.Interval,
		Timeout:      cfg.Poll.Timeout,
		Metrics:      infra.Metrics,
		Cache:        infra.Cache,
		SettledTTL:   cfg.Cache.SettledTTL,
		FailedTTL:    cfg.Cache.FailedTTL,
		Logger:       logger,
	}
	// Leave the interfaces nil rather than holding typed nil pointers.
	if sessions != nil {
		watchConfig.Sessions = sessions
		watchConfig.Recorder = queue
	}
	watchService := service.NewOrderWatchService(watchConfig)

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		defer limiter.Close()
	}

	router := api.NewRouter(logger, api.Services{
		Watch:  watchService,
		I18n:   i18nManager,
		Tokens: infra.Tokens,
	}, api.Options{
		Metrics:     cfg.Metrics,
		Registry:    infra.Registry,
		RateLimiter: limiter,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	server := bootstrap.NewHTTPServer(cfg.HTTP, router)

	scheduler.Start()

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Sessions are recorded as they are cancelled, then the queue drains.
	watchService.Close()
	queue.Stop()

	logger.Info("server exited cleanly")
	return nil
}
