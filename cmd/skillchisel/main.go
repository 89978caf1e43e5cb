package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"skillchisel/internal/backend"
	"skillchisel/internal/cache"
	"skillchisel/internal/cli"
	"skillchisel/internal/config"
	apphttp "skillchisel/internal/http"
	"skillchisel/internal/identity"
	applog "skillchisel/internal/log"
	"skillchisel/internal/storage"
	"skillchisel/internal/worker"
)

const (
	cacheCleanupInterval = time.Minute
	sessionPurgeInterval = time.Hour
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	cli.ValidateOrExit(logger, cfg)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	data, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	provider := newIdentityProvider(cfg, data.Store, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		Identity:        provider,
		Skills:          data.Skills,
		Store:           data.Store,
		Hub:             data.Hub,
		Logger:          logger,
		Location:        loc,
		ViewIdleTTL:     cfg.ViewIdleTTL,
		MaxViews:        cfg.MaxViews,
		SessionTTL:      cfg.SessionTTL,
		SignInRateLimit: cfg.SignInRateLimit,
		SecureCookies:   cfg.SecureCookies,
	})
	// No write timeout: event streams stay open.
	srv.ReadTimeout = 10 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	caches.Register(provider.Caches()...)
	caches.Register(srv.Caches()...)
	caches.StartCleanup(cacheCleanupInterval)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := data.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting skillchisel server",
			"port", cfg.Port, "backend", cfg.DataBackend,
			"federation", provider.FederationEnabled(), "relay", data.Broker != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if data.Broker != nil {
		relay := worker.NewChangeRelay(data.Broker, data.Hub, logger.Slog())
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		purgeSessions(gctx, data.Store, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		caches.Stop()
		_ = data.Cleanup()
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}

func newIdentityProvider(cfg *config.Config, store storage.Store, logger *applog.Logger) *identity.Provider {
	opts := []identity.Option{
		identity.WithLogger(logger.Slog()),
		identity.WithSessionTTL(cfg.SessionTTL),
	}
	if cfg.GoogleEnabled() {
		opts = append(opts, identity.WithFederation(identity.NewGoogleFederation(
			cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.GoogleOAuthRedirectURL,
		)))
		logger.Info("Google sign-in enabled", "redirect_url", cfg.GoogleOAuthRedirectURL)
	}
	return identity.NewProvider(store, []byte(cfg.SessionSecret), opts...)
}

// purgeSessions drops expired and revoked session records until ctx is done.
func purgeSessions(ctx context.Context, store storage.AccountStore, logger *applog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeSessions(ctx, time.Now())
			if err != nil {
				logger.Error("Session purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("Purged stale sessions", "count", n)
			}
		}
	}
}
