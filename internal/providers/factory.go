package providers

import (
	"context"
	"fmt"
	"slices"
	"sync"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Constructor builds an adapter from its configuration.
type Constructor func(cfg Config, deps Deps) (Provider, error)

// Settings is the configuration surface of the registry.
type Settings struct {
	// Providers holds credentials for every configured provider.
	Providers map[payment.ProviderType]Config
	// Order is the failover order. Configured providers missing from it follow in built-in order.
	Order       []payment.ProviderType
	DefaultPix  payment.ProviderType
	DefaultCard payment.ProviderType
}

var builtinOrder = []payment.ProviderType{
	payment.ProviderAbacatePay,
	payment.ProviderStripe,
	payment.ProviderMercadoPago,
}

func builtinConstructors() map[payment.ProviderType]Constructor {
	return map[payment.ProviderType]Constructor{
		payment.ProviderAbacatePay: func(cfg Config, deps Deps) (Provider, error) {
			return NewAbacatePay(cfg, deps)
		},
		payment.ProviderStripe: func(cfg Config, deps Deps) (Provider, error) {
			return NewStripe(cfg, deps)
		},
		payment.ProviderMercadoPago: func(cfg Config, deps Deps) (Provider, error) {
			return NewMercadoPago(cfg, deps)
		},
	}
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithConstructor registers or replaces the constructor for a provider type.
func WithConstructor(t payment.ProviderType, c Constructor) FactoryOption {
	return func(f *Factory) { f.constructors[t] = c }
}

// Factory resolves configured providers and memoizes their adapters.
// Adapters are built on first use and never mutated; Reconfigure clears the cache.
type Factory struct {
	mu           sync.RWMutex
	settings     Settings
	order        []payment.ProviderType
	instances    map[payment.ProviderType]Provider
	constructors map[payment.ProviderType]Constructor
	deps         Deps
	logger       zerolog.Logger
}

// NewFactory creates a registry over settings.
func NewFactory(settings Settings, deps Deps, opts ...FactoryOption) *Factory {
	f := &Factory{
		constructors: builtinConstructors(),
		deps:         deps,
		logger:       deps.Logger.With().Str("component", "provider_factory").Logger(),
	}
	for _, o := range opts {
		o(f)
	}
	f.apply(settings)
	return f
}

// apply must run with the write lock held (or before the factory is shared).
func (f *Factory) apply(settings Settings) {
	f.settings = settings
	f.order = resolveOrder(settings)
	f.instances = make(map[payment.ProviderType]Provider, len(f.order))
}

func resolveOrder(s Settings) []payment.ProviderType {
	order := make([]payment.ProviderType, 0, len(s.Providers))
	add := func(t payment.ProviderType) {
		if _, ok := s.Providers[t]; ok && !slices.Contains(order, t) {
			order = append(order, t)
		}
	}
	for _, t := range s.Order {
		add(t)
	}
	for _, t := range builtinOrder {
		add(t)
	}

	var rest []payment.ProviderType
	for t := range s.Providers {
		if !slices.Contains(order, t) {
			rest = append(rest, t)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

// Reconfigure swaps the settings and drops every cached adapter.
func (f *Factory) Reconfigure(settings Settings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apply(settings)
	f.logger.Info().Int("providers", len(f.order)).Msg("provider registry reconfigured")
}

// Provider returns the cached adapter for t, constructing it on first use.
func (f *Factory) Provider(t payment.ProviderType) (Provider, error) {
	f.mu.RLock()
	p, ok := f.instances[t]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.instances[t]; ok {
		return p, nil
	}

	construct, known := f.constructors[t]
	if !known {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnknownProvider, t)
	}
	cfg, configured := f.settings.Providers[t]
	if !configured {
		return nil, domainErrors.NewConfigurationError(string(t), "no credentials configured")
	}

	p, err := construct(cfg, f.deps)
	if err != nil {
		return nil, err
	}
	f.instances[t] = p
	f.logger.Debug().Str("provider", string(t)).Msg("provider adapter created")
	return p, nil
}

// PixProvider resolves a PIX-capable provider, preferring the given type when set.
func (f *Factory) PixProvider(preferred payment.ProviderType) (PixProvider, error) {
	p, err := f.resolve(preferred, payment.MethodPix)
	if err != nil {
		return nil, err
	}
	pix, ok := p.(PixProvider)
	if !ok {
		return nil, domainErrors.NewCapabilityError(string(p.Type()), string(payment.MethodPix))
	}
	return pix, nil
}

// CardProvider resolves a card-capable provider, preferring the given type when set.
func (f *Factory) CardProvider(preferred payment.ProviderType) (CardProvider, error) {
	p, err := f.resolve(preferred, payment.MethodCreditCard)
	if err != nil {
		return nil, err
	}
	card, ok := p.(CardProvider)
	if !ok {
		return nil, domainErrors.NewCapabilityError(string(p.Type()), "card")
	}
	return card, nil
}

// ProviderForMethod resolves the default provider of the family method belongs to.
func (f *Factory) ProviderForMethod(method payment.Method) (Provider, error) {
	switch {
	case method == payment.MethodPix:
		return f.PixProvider("")
	case method.IsCard():
		p, err := f.CardProvider("")
		if err != nil {
			return nil, err
		}
		if !Supports(p, method) {
			return nil, domainErrors.NewCapabilityError(string(p.Type()), string(method))
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown method %q", domainErrors.ErrInvalidInput, method)
	}
}

func (f *Factory) resolve(preferred payment.ProviderType, method payment.Method) (Provider, error) {
	family := familySupports(method)

	t := preferred
	if t == "" {
		t = f.defaultFor(method)
	}
	if t != "" {
		p, err := f.Provider(t)
		if err != nil {
			return nil, err
		}
		if !family(p) {
			return nil, domainErrors.NewCapabilityError(string(t), familyName(method))
		}
		return p, nil
	}

	// No default configured: first provider in order that declares the family.
	for _, t := range f.AvailableProviders() {
		p, err := f.Provider(t)
		if err != nil {
			f.logger.Warn().Err(err).Str("provider", string(t)).Msg("skipping provider")
			continue
		}
		if family(p) {
			return p, nil
		}
	}
	return nil, domainErrors.NewCapabilityError("", familyName(method))
}

func (f *Factory) defaultFor(method payment.Method) payment.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if method == payment.MethodPix {
		return f.settings.DefaultPix
	}
	return f.settings.DefaultCard
}

func familySupports(method payment.Method) func(Provider) bool {
	if method == payment.MethodPix {
		return func(p Provider) bool { return Supports(p, payment.MethodPix) }
	}
	return SupportsCard
}

func familyName(method payment.Method) string {
	if method == payment.MethodPix {
		return string(payment.MethodPix)
	}
	return "card"
}

// AvailableProviders lists configured provider types in failover order, regardless of health.
func (f *Factory) AvailableProviders() []payment.ProviderType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.order)
}

// Providers returns the adapters that construct successfully, in failover order.
func (f *Factory) Providers() []Provider {
	types := f.AvailableProviders()
	out := make([]Provider, 0, len(types))
	for _, t := range types {
		p, err := f.Provider(t)
		if err != nil {
			f.logger.Warn().Err(err).Str("provider", string(t)).Msg("provider failed to construct")
			continue
		}
		out = append(out, p)
	}
	return out
}

// SupportedMethods is the union of methods declared by every constructible provider.
func (f *Factory) SupportedMethods() []payment.Method {
	var methods []payment.Method
	for _, p := range f.Providers() {
		for _, m := range p.SupportedMethods() {
			if !slices.Contains(methods, m) {
				methods = append(methods, m)
			}
		}
	}
	return methods
}

// CheckProvidersHealth probes every configured provider concurrently.
// A provider that cannot be built or probed is reported unhealthy.
func (f *Factory) CheckProvidersHealth(ctx context.Context) map[payment.ProviderType]bool {
	types := f.AvailableProviders()
	results := make([]bool, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			p, err := f.Provider(t)
			if err != nil {
				f.logger.Warn().Err(err).Str("provider", string(t)).Msg("health check skipped")
				return nil
			}
			results[i] = p.IsAvailable(gctx)
			return nil
		})
	}
	_ = g.Wait()

	health := make(map[payment.ProviderType]bool, len(types))
	for i, t := range types {
		health[t] = results[i]
		f.deps.Metrics.SetProviderHealth(string(t), results[i])
	}
	return health
}

// WorkingProvider returns the first provider, in configured order, that declares
// method and answers its health probe.
func (f *Factory) WorkingProvider(ctx context.Context, method payment.Method) (Provider, error) {
	var candidates []Provider
	for _, p := range f.Providers() {
		if Supports(p, method) {
			candidates = append(candidates, p)
		}
	}

	p, ok := SelectFirstHealthy(ctx, candidates, func(ctx context.Context, p Provider) bool {
		healthy := p.IsAvailable(ctx)
		f.deps.Metrics.SetProviderHealth(string(p.Type()), healthy)
		if !healthy {
			f.logger.Warn().Str("provider", string(p.Type())).Str("method", string(method)).Msg("provider unavailable, trying next")
		}
		return healthy
	})
	if !ok {
		return nil, fmt.Errorf("%w for %s", domainErrors.ErrNoWorkingProvider, method)
	}
	return p, nil
}
