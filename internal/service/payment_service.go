package service

import (
	"context"
	"errors"
	"slices"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/cassiomorais/giftpay/internal/providers"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProviderRegistry is the part of the provider factory the facade relies on.
type ProviderRegistry interface {
	Provider(t payment.ProviderType) (providers.Provider, error)
	PixProvider(preferred payment.ProviderType) (providers.PixProvider, error)
	CardProvider(preferred payment.ProviderType) (providers.CardProvider, error)
	ProviderForMethod(method payment.Method) (providers.Provider, error)
	AvailableProviders() []payment.ProviderType
	SupportedMethods() []payment.Method
	CheckProvidersHealth(ctx context.Context) map[payment.ProviderType]bool
	WorkingProvider(ctx context.Context, method payment.Method) (providers.Provider, error)
}

// OriginIndex remembers which provider created a payment.
type OriginIndex interface {
	Remember(ctx context.Context, paymentID string, provider payment.ProviderType) error
	Lookup(ctx context.Context, paymentID string) (payment.ProviderType, bool, error)
}

// EventPublisher receives payment lifecycle events.
type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, e infraRedis.PaymentEvent) error
}

// Option configures a PaymentService.
type Option func(*PaymentService)

// WithOriginIndex enables origin-first status lookups.
func WithOriginIndex(idx OriginIndex) Option {
	return func(s *PaymentService) { s.origins = idx }
}

// WithEventPublisher publishes creation and simulation events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *PaymentService) { s.events = p }
}

// WithMetrics records facade metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *PaymentService) { s.metrics = m }
}

// WithTracer overrides the tracer used for facade spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *PaymentService) { s.tracer = t }
}

// PaymentService is the single entry point the gift application uses for payments.
type PaymentService struct {
	registry    ProviderRegistry
	environment string
	origins     OriginIndex
	events      EventPublisher
	metrics     *observability.Metrics
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewPaymentService creates the facade. environment gates payment simulation.
func NewPaymentService(registry ProviderRegistry, environment string, logger zerolog.Logger, opts ...Option) *PaymentService {
	s := &PaymentService{
		registry:    registry,
		environment: environment,
		tracer:      observability.Tracer(),
		logger:      observability.ForComponent(logger, "payment_service"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *PaymentService) isProduction() bool {
	return providers.IsProductionEnvironment(s.environment)
}

func (s *PaymentService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "PaymentService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreatePixPayment creates a PIX charge on the default PIX provider. It never fails over.
func (s *PaymentService) CreatePixPayment(ctx context.Context, req payment.PixPaymentRequest) (resp *payment.PixPaymentResponse, err error) {
	ctx, span := s.startSpan(ctx, "CreatePixPayment", attribute.String("payment.method", string(payment.MethodPix)))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.registry.PixProvider("")
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("payment.provider", string(p.Type())))

	resp, err = p.CreatePixPayment(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", string(p.Type())).Msg("pix payment creation failed")
		s.metrics.IncPayment(string(payment.MethodPix), string(p.Type()), "error")
		return nil, err
	}

	s.metrics.IncPayment(string(payment.MethodPix), string(p.Type()), string(resp.Status))
	s.logger.Info().
		Str("payment_id", resp.ID).
		Str("provider", string(p.Type())).
		Str("amount", resp.Amount.StringFixed(2)).
		Msg("pix payment created")

	s.afterCreate(ctx, resp.ID, p.Type(), payment.MethodPix, resp.Status, resp.Amount)
	return resp, nil
}

// ProcessCardPayment charges a card on the default card provider.
func (s *PaymentService) ProcessCardPayment(ctx context.Context, req payment.CardPaymentRequest) (resp *payment.CardPaymentResponse, err error) {
	method := req.EffectiveMethod()
	ctx, span := s.startSpan(ctx, "ProcessCardPayment", attribute.String("payment.method", string(method)))
	defer func() { endSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.registry.CardProvider("")
	if err != nil {
		return nil, err
	}
	if !providers.Supports(p, method) {
		return nil, domainErrors.NewCapabilityError(string(p.Type()), string(method))
	}
	span.SetAttributes(attribute.String("payment.provider", string(p.Type())))

	resp, err = p.ProcessCardPayment(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("provider", string(p.Type())).
			Str("card", req.Card.String()).
			Msg("card payment failed")
		s.metrics.IncPayment(string(method), string(p.Type()), "error")
		return nil, err
	}

	s.metrics.IncPayment(string(method), string(p.Type()), string(resp.Status))
	s.logger.Info().
		Str("payment_id", resp.ID).
		Str("provider", string(p.Type())).
		Str("status", string(resp.Status)).
		Int("installments", resp.Installments).
		Msg("card payment processed")

	s.afterCreate(ctx, resp.ID, p.Type(), method, resp.Status, resp.Amount)
	return resp, nil
}

// afterCreate feeds the optional origin index and event stream. Failures only degrade lookups.
func (s *PaymentService) afterCreate(ctx context.Context, id string, provider payment.ProviderType, method payment.Method, status payment.Status, amount decimal.Decimal) {
	if s.origins != nil {
		if err := s.origins.Remember(ctx, id, provider); err != nil {
			s.logger.Warn().Err(err).Str("payment_id", id).Msg("payment origin not recorded")
		}
	}
	s.publish(ctx, infraRedis.PaymentEvent{
		Type:      infraRedis.EventPaymentCreated,
		PaymentID: id,
		Provider:  provider,
		Method:    method,
		Status:    status,
		Data:      map[string]any{"amount": amount.StringFixed(2)},
	})
}

func (s *PaymentService) publish(ctx context.Context, e infraRedis.PaymentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPaymentEvent(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("payment_id", e.PaymentID).Str("event", e.Type).Msg("payment event not published")
	}
}

// CheckPaymentStatus looks a payment up. With a method hint the provider for that method
// answers; without one every configured provider is tried until one knows the id.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, paymentID string, method payment.Method) (resp *payment.StatusResponse, err error) {
	ctx, span := s.startSpan(ctx, "CheckPaymentStatus",
		attribute.String("payment.id", paymentID),
		attribute.String("payment.method", string(method)),
	)
	defer func() { endSpan(span, err) }()

	if paymentID == "" {
		return nil, domainErrors.NewValidationError("payment_id", "is required")
	}

	if method != "" {
		p, err := s.registry.ProviderForMethod(method)
		if err != nil {
			return nil, err
		}
		resp, err = p.CheckPaymentStatus(ctx, paymentID)
		s.metrics.IncStatusCheck("method", statusOutcome(err))
		return resp, err
	}

	candidates := s.originFirst(ctx, paymentID, s.registry.AvailableProviders())
	failures := make(map[string]error)
	for _, t := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		p, err := s.registry.Provider(t)
		if err == nil {
			resp, err = p.CheckPaymentStatus(ctx, paymentID)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", string(t)).Str("payment_id", paymentID).Msg("status lookup failed, trying next provider")
			failures[string(t)] = err
			continue
		}

		span.SetAttributes(attribute.String("payment.provider", string(t)))
		s.metrics.IncStatusCheck("scan", "success")
		return resp, nil
	}

	s.metrics.IncStatusCheck("scan", "not_found")
	return nil, &domainErrors.LookupError{PaymentID: paymentID, Failures: failures}
}

// originFirst moves the remembered provider to the front of types.
func (s *PaymentService) originFirst(ctx context.Context, paymentID string, types []payment.ProviderType) []payment.ProviderType {
	if s.origins == nil {
		return types
	}
	origin, ok, err := s.origins.Lookup(ctx, paymentID)
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_id", paymentID).Msg("payment origin lookup failed")
		return types
	}
	i := slices.Index(types, origin)
	if !ok || i <= 0 {
		return types
	}
	out := make([]payment.ProviderType, 0, len(types))
	out = append(out, origin)
	out = append(out, types[:i]...)
	return append(out, types[i+1:]...)
}

func statusOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domainErrors.ErrProviderTimeout):
		return "timeout"
	default:
		return "error"
	}
}

// ValidateCard uses the card provider's rules, falling back to the Luhn check
// when no card provider is usable.
func (s *PaymentService) ValidateCard(number string) bool {
	p, err := s.registry.CardProvider("")
	if err == nil {
		if v, ok := p.(providers.CardValidator); ok {
			return v.ValidateCard(number)
		}
	} else {
		s.logger.Debug().Err(err).Msg("card validation falls back to luhn")
	}
	return payment.ValidateCardNumber(number)
}

// InstallmentOptions prices installment plans with the card provider's policy,
// falling back to the default schedule.
func (s *PaymentService) InstallmentOptions(amount decimal.Decimal) ([]payment.InstallmentOption, error) {
	if err := payment.ValidateAmount(amount); err != nil {
		return nil, err
	}

	p, err := s.registry.CardProvider("")
	if err == nil {
		if c, ok := p.(providers.InstallmentCalculator); ok {
			return c.InstallmentOptions(amount), nil
		}
	} else {
		s.logger.Debug().Err(err).Msg("installments fall back to default schedule")
	}
	return payment.DefaultInstallmentOptions(amount), nil
}

// SimulatePayment forces a sandbox payment into a terminal state. It is refused
// in production before any provider is contacted.
func (s *PaymentService) SimulatePayment(ctx context.Context, req payment.SimulationRequest, method payment.Method) (resp *payment.StatusResponse, err error) {
	ctx, span := s.startSpan(ctx, "SimulatePayment",
		attribute.String("payment.id", req.PaymentID),
		attribute.String("simulation.action", string(req.Action)),
	)
	defer func() { endSpan(span, err) }()

	if s.isProduction() {
		s.logger.Error().Str("payment_id", req.PaymentID).Msg("payment simulation attempted in production")
		return nil, &domainErrors.EnvironmentViolationError{Operation: "simulate payment", Environment: s.environment}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if method != "" {
		p, err := s.registry.ProviderForMethod(method)
		if err != nil {
			return nil, err
		}
		sim, ok := p.(providers.Simulator)
		if !ok {
			return nil, domainErrors.NewCapabilityError(string(p.Type()), "simulate payment")
		}
		resp, err = sim.SimulatePayment(ctx, req.PaymentID, req.Action)
		if err != nil {
			return nil, err
		}
		s.afterSimulate(ctx, resp)
		return resp, nil
	}

	failures := make(map[string]error)
	tried := 0
	for _, t := range s.originFirst(ctx, req.PaymentID, s.registry.AvailableProviders()) {
		p, err := s.registry.Provider(t)
		if err != nil {
			failures[string(t)] = err
			continue
		}
		sim, ok := p.(providers.Simulator)
		if !ok {
			continue
		}
		tried++

		resp, err = sim.SimulatePayment(ctx, req.PaymentID, req.Action)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", string(t)).Str("payment_id", req.PaymentID).Msg("simulation failed, trying next provider")
			failures[string(t)] = err
			continue
		}
		s.afterSimulate(ctx, resp)
		return resp, nil
	}

	if tried == 0 {
		return nil, domainErrors.NewCapabilityError("", "simulate payment")
	}
	return nil, &domainErrors.LookupError{PaymentID: req.PaymentID, Failures: failures}
}

func (s *PaymentService) afterSimulate(ctx context.Context, resp *payment.StatusResponse) {
	s.logger.Info().
		Str("payment_id", resp.ID).
		Str("provider", string(resp.Provider)).
		Str("status", string(resp.Status)).
		Msg("payment simulated")
	s.publish(ctx, infraRedis.PaymentEvent{
		Type:      infraRedis.EventPaymentSimulated,
		PaymentID: resp.ID,
		Provider:  resp.Provider,
		Method:    resp.Method,
		Status:    resp.Status,
	})
}

// WorkingProvider returns the first healthy provider for method, in configured order.
func (s *PaymentService) WorkingProvider(ctx context.Context, method payment.Method) (providers.Provider, error) {
	return s.registry.WorkingProvider(ctx, method)
}

// ProviderInfo is one configured provider and the methods it declares.
type ProviderInfo struct {
	Type    payment.ProviderType
	Methods []payment.Method
}

// AvailableProviders lists the configured providers in registry order.
// A provider that cannot be built is left out.
func (s *PaymentService) AvailableProviders() []ProviderInfo {
	types := s.registry.AvailableProviders()
	out := make([]ProviderInfo, 0, len(types))
	for _, t := range types {
		p, err := s.registry.Provider(t)
		if err != nil {
			s.logger.Warn().Err(err).Str("provider", string(t)).Msg("provider unavailable for listing")
			continue
		}
		out = append(out, ProviderInfo{Type: t, Methods: slices.Clone(p.SupportedMethods())})
	}
	return out
}

// SupportedMethods is the union of methods declared by the configured providers.
func (s *PaymentService) SupportedMethods() []payment.Method {
	return s.registry.SupportedMethods()
}

// CheckProvidersHealth checks every configured provider.
func (s *PaymentService) CheckProvidersHealth(ctx context.Context) map[payment.ProviderType]bool {
	return s.registry.CheckProvidersHealth(ctx)
}
