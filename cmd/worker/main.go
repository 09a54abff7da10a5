package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/giftpay/internal/bootstrap"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/cassiomorais/giftpay/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, bootstrap.Options{
		ServiceName:      "giftpay-worker",
		MetricsNamespace: "giftpay_worker",
		RequireRedis:     true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to create consumer group")
	}

	w := worker.NewStatusWorker(
		consumer,
		app.Payments,
		infraRedis.NewStreamProducer(app.Redis),
		worker.Config{
			Interval:    app.Config.Poller.Interval,
			MaxDuration: app.Config.Poller.MaxDuration,
			MaxInFlight: workerCfg.MaxInFlight,
		},
		app.Logger,
		app.Metrics,
	)

	app.Logger.Info().
		Str("stream", infraRedis.PaymentEventStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for payment events...")

	if err := w.Run(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Shutdown(context.Background())
	app.Logger.Info().Msg("Worker exited")
}
