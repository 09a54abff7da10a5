package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/giftpay/internal/bootstrap"
	"github.com/cassiomorais/giftpay/internal/controller"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, bootstrap.Options{
		ServiceName:      "giftpay-api",
		MetricsNamespace: "giftpay",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	deps := controller.RouterDeps{
		PaymentService: app.Payments,
		Metrics:        app.Metrics,
		MetricsHandler: app.MetricsHandler(),
		Server:         app.Config.Server,
		ServiceName:    "giftpay-api",
		Logger:         app.Logger,
	}
	if app.Redis != nil {
		deps.Redis = infraRedis.Pinger{Client: app.Redis}
		deps.IdempotencyCache = infraRedis.NewIdempotencyStore(app.Redis, app.Config.Redis.IdempotencyTTL)
	}
	if app.Config.Server.AuthSecret == "" {
		app.Logger.Warn().Msg("server.auth_secret is empty, API authentication disabled")
	}

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      controller.NewRouter(deps),
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Shutdown(shutdownCtx)
	app.Logger.Info().Msg("Server exited")
}
