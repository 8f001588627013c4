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

	"stockflow/auth"
	"stockflow/db"
	"stockflow/fulfillment"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("bootstrap config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("bootstrap database pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	fulfillmentService := fulfillment.NewService(pool, nil)

	var authService *auth.Service
	if cfg.JWTSecret != "" {
		authService = auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set; fulfillment endpoints are unauthenticated")
	}

	var handler http.Handler
	if authService != nil {
		handler = newMux(fulfillmentService, authService, logger)
	} else {
		handler = newMux(fulfillmentService, nil, logger)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("api listening", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}
