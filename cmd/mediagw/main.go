// Command mediagw runs the media API gateway: a reverse proxy that injects
// provider credentials, caches search responses and streams downloads.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mediagw "github.com/ferro-labs/media-gateway"
	"github.com/ferro-labs/media-gateway/internal/cache"
	"github.com/ferro-labs/media-gateway/internal/janitor"
	"github.com/ferro-labs/media-gateway/internal/logging"
	"github.com/ferro-labs/media-gateway/internal/ratelimit"
	"github.com/ferro-labs/media-gateway/internal/requestlog"
	"github.com/ferro-labs/media-gateway/internal/upstream"
	"github.com/ferro-labs/media-gateway/internal/version"
	"github.com/ferro-labs/media-gateway/providers"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mediagw exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(os.Getenv("MEDIAGW_CONFIG"), os.LookupEnv)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.Logger

	registry := buildRegistry(cfg)
	for name, set := range registry.KeyStatus() {
		if !set {
			logger.Warn("provider API key not configured; its routes will return 500", "provider", name)
		}
	}
	if cfg.Download.AllowAnyHost {
		logger.Warn("download host allow-list disabled; /api/pexels/download will fetch any URL")
	}

	responses := cache.NewMemory(cfg.Cache.MaxEntries, cfg.Cache.TTL.Std())
	limiter := ratelimit.NewStore(cfg.RateLimit.Window.Std(), cfg.RateLimit.MaxRequests)

	userAgent := cfg.Upstream.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := []janitor.Task{
		{Name: "cache", Run: func(context.Context) (int64, error) { return int64(responses.Sweep()), nil }},
		{Name: "ratelimit", Run: func(context.Context) (int64, error) { return int64(limiter.Sweep()), nil }},
	}

	g := &gateway{
		cfg:       cfg,
		registry:  registry,
		responses: cache.NewCoalescer(responses),
		limiter:   limiter,
		upstream:  upstream.New(nil, userAgent),
		started:   time.Now(),
	}

	if cfg.RequestLog.Driver != "" {
		store, err := requestlog.Open(cfg.RequestLog.Driver, cfg.RequestLog.DSN)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		rec := requestlog.NewRecorder(store, 1000)
		defer rec.Close()
		g.requests = rec

		retention := cfg.RequestLog.Retention.Std()
		tasks = append(tasks, pruneTask(store, retention, time.Now))
		logger.Info("request log enabled", "driver", cfg.RequestLog.Driver, "retention", retention.String())
	}

	sweeper := janitor.New(cfg.Janitor.Schedule, tasks...)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(g),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Upstream.DownloadTimeout.Std() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("mediagw listening",
		"addr", addr,
		"version", version.Short(),
		"environment", cfg.Environment,
		"providers", registry.List(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		return err
	}
	<-shutdownDone
	logger.Info("server stopped")
	return nil
}

// pruneTask removes request log entries older than retention.
func pruneTask(m requestlog.Maintainer, retention time.Duration, now func() time.Time) janitor.Task {
	return janitor.Task{Name: "requestlog", Run: func(ctx context.Context) (int64, error) {
		return m.Prune(ctx, now().Add(-retention))
	}}
}

// loadConfig reads the optional config file at path, applies environment
// overrides and validates the result.
func loadConfig(path string, lookup func(string) (string, bool)) (mediagw.Config, error) {
	cfg := mediagw.DefaultConfig()
	if path != "" {
		loaded, err := mediagw.LoadConfig(path)
		if err != nil {
			return mediagw.Config{}, err
		}
		cfg = *loaded
	}
	if err := mediagw.ApplyEnv(&cfg, lookup); err != nil {
		return mediagw.Config{}, err
	}
	if err := mediagw.ValidateConfig(cfg); err != nil {
		return mediagw.Config{}, err
	}
	return cfg, nil
}

func buildRegistry(cfg mediagw.Config) *providers.Registry {
	var hosts *providers.HostAllowList
	if !cfg.Download.AllowAnyHost {
		hosts = providers.NewHostAllowList(cfg.Download.AllowedHosts...)
	}

	registry := providers.NewRegistry()
	registry.Register(providers.NewFreesound(cfg.Freesound.APIKey, cfg.Freesound.BaseURL, cfg.Freesound.OAuthToken))
	registry.Register(providers.NewPexels(cfg.Pexels.APIKey, cfg.Pexels.BaseURL, hosts))
	return registry
}
