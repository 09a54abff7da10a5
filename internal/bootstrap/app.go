package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cassiomorais/giftpay/internal/infrastructure/config"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/cassiomorais/giftpay/internal/providers"
	"github.com/cassiomorais/giftpay/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App holds the process-wide collaborators shared by the binaries.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Redis    *redis.Client // nil when redis.enabled is false
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Factory  *providers.Factory
	Payments *service.PaymentService

	tracer *sdktrace.TracerProvider
}

// Options selects per-binary behaviour.
type Options struct {
	ServiceName      string
	MetricsNamespace string
	LogOutput        io.Writer // defaults to stdout
	// RequireRedis fails startup when Redis is disabled.
	RequireRedis bool
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := observability.InitLogger(cfg.Observability.LogLevel, out).With().
		Str("service", opts.ServiceName).
		Str("environment", cfg.Environment).
		Logger()
	logger.Info().Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(opts.ServiceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = observability.NewMetrics(opts.MetricsNamespace, app.Registry)
	logger.Info().Msg("Metrics initialized")

	if cfg.Redis.Enabled {
		app.Redis, err = infraRedis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Connected to Redis")
	} else if opts.RequireRedis {
		app.Close()
		return nil, fmt.Errorf("%s requires redis.enabled", opts.ServiceName)
	}

	app.Factory = newFactory(cfg, logger, app.Metrics)
	app.Payments = service.NewPaymentService(app.Factory, cfg.Environment, logger, app.serviceOptions()...)

	configured := app.Factory.AvailableProviders()
	if len(configured) == 0 {
		logger.Warn().Msg("No payment provider configured")
	} else {
		logger.Info().Interface("providers", configured).Msg("Payment providers configured")
	}

	return app, nil
}

func newFactory(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) *providers.Factory {
	deps := providers.Deps{
		Logger:      logger,
		Metrics:     metrics,
		HTTPClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     cfg.BreakerSettings(),
		StatusRetry: cfg.StatusRetry(),
	}

	var opts []providers.FactoryOption
	if cfg.Payment.MockProvider {
		opts = append(opts, providers.WithConstructor(providers.ProviderMock, providers.NewMockConstructor()))
	}
	return providers.NewFactory(cfg.ProviderSettings(), deps, opts...)
}

func (a *App) serviceOptions() []service.Option {
	opts := []service.Option{
		service.WithMetrics(a.Metrics),
		service.WithTracer(observability.Tracer()),
	}
	if a.Redis != nil {
		opts = append(opts,
			service.WithOriginIndex(infraRedis.NewOriginStore(a.Redis, a.Config.Redis.OriginTTL)),
			service.WithEventPublisher(infraRedis.NewStreamProducer(a.Redis)),
		)
	}
	return opts
}

// MetricsHandler serves the application registry, or nil when metrics are disabled.
func (a *App) MetricsHandler() http.Handler {
	if !a.Config.Observability.EnableMetrics {
		return nil
	}
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
}

// Shutdown flushes traces. It is safe to call on a partially built App.
func (a *App) Shutdown(ctx context.Context) {
	if err := observability.Shutdown(ctx, a.tracer); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to flush traces")
	}
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
}
