package controller

import (
	"net/http"
	"time"

	"github.com/cassiomorais/giftpay/internal/infrastructure/config"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/giftpay/internal/middleware"
	"github.com/cassiomorais/giftpay/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	PaymentService   *service.PaymentService
	Redis            Pinger                 // nil when Redis is disabled
	IdempotencyCache customMW.ResponseCache // nil when Redis is disabled
	Metrics          *observability.Metrics
	MetricsHandler   http.Handler // nil disables /metrics
	Server           config.ServerConfig
	ServiceName      string
	Logger           zerolog.Logger
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing(deps.ServiceName))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders(customMW.SecurityConfig{
		HSTSMaxAge:          deps.Server.HSTSMaxAge,
		TrustForwardedProto: deps.Server.TrustForwardedProto,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMW.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Idempotency-Replayed"},
		AllowCredentials: deps.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.PaymentService, deps.Redis)
	paymentH := NewPaymentController(deps.PaymentService)
	providerH := NewProviderController(deps.PaymentService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(deps.Server.RateLimit))
		r.Use(customMW.RequireServiceToken(deps.Server.AuthSecret))

		idempotencyMW := customMW.Idempotency(deps.IdempotencyCache, deps.Logger)

		// Payments
		r.With(idempotencyMW).Post("/payments/pix", paymentH.CreatePixPayment)
		r.With(idempotencyMW).Post("/payments/card", paymentH.ProcessCardPayment)
		r.Get("/payments/{id}/status", paymentH.GetStatus)
		r.Post("/payments/{id}/simulate", paymentH.Simulate)

		// Cards
		r.Post("/cards/validate", paymentH.ValidateCard)
		r.Get("/installments", paymentH.Installments)

		// Providers
		r.Get("/providers", providerH.List)
		r.Get("/providers/health", providerH.Health)
		r.Get("/providers/working", providerH.Working)
	})

	return r
}
