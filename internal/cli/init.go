// Package cli holds the start-up steps cmd/skillchisel and
// cmd/skillchisel-admin share.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"skillchisel/internal/config"
	applog "skillchisel/internal/log"
)

// SetupLogger builds the root logger at level and installs it as the slog
// default. format "json" selects JSON records; anything else is text.
func SetupLogger(level, format string) *applog.Logger {
	opts := &slog.HandlerOptions{Level: applog.ParseLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := applog.New(applog.Config{Handler: handler})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile reads .env from the working directory if there is one.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// ValidateOrExit exits the process when cfg is not runnable.
func ValidateOrExit(logger *applog.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", applog.FieldError, err)
		os.Exit(1)
	}
}

// GracefulShutdown returns a context that is cancelled on SIGINT or
// SIGTERM. cleanup then gets at most timeout, and done is closed when it
// returns or the time is up.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutting down", "timeout", timeout)

		cleanupCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(cleanupCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-cleanupCtx.Done():
			logger.Warn("Shutdown timed out")
		}
	}()

	return ctx, done
}
