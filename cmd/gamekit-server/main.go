package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx := context.Background()
	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config

	slog.Info("starting gamekit server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"platform_adapter", cfg.Platform.Adapter,
		"prefs_adapter", cfg.Prefs.Adapter)
	slog.Debug("effective configuration", "config", cfg.String())

	srv := app.Server

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		slog.Error("failed to start server", "error", err)
		cleanup()
		os.Exit(1)
	}

	slog.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
		cleanup()
		os.Exit(1)
	}

	slog.Info("server stopped")
}
