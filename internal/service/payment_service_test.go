package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/cassiomorais/giftpay/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/giftpay/internal/infrastructure/redis"
	"github.com/cassiomorais/giftpay/internal/providers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

const (
	pixOne  payment.ProviderType = "pix_one"
	pixTwo  payment.ProviderType = "pix_two"
	cardOne payment.ProviderType = "card_one"
)

// cardRules adds gateway card rules to a mock provider.
type cardRules struct {
	*providers.MockProvider
	validateFunc func(number string) bool
	policy       payment.InstallmentPolicy
}

func (c *cardRules) ValidateCard(number string) bool { return c.validateFunc(number) }

func (c *cardRules) InstallmentOptions(amount decimal.Decimal) []payment.InstallmentOption {
	return c.policy.Schedule(amount)
}

type harness struct {
	svc     *PaymentService
	factory *providers.Factory
	mocks   map[payment.ProviderType]*providers.MockProvider
	metrics *observability.Metrics
}

type mockDef struct {
	providerType payment.ProviderType
	opts         []providers.MockProviderOption
	wrap         func(*providers.MockProvider) providers.Provider
}

func pixMock(t payment.ProviderType) mockDef {
	return mockDef{providerType: t, opts: []providers.MockProviderOption{providers.WithMethods(payment.MethodPix)}}
}

func cardMock(t payment.ProviderType) mockDef {
	return mockDef{providerType: t, opts: []providers.MockProviderOption{providers.WithMethods(payment.MethodCreditCard)}}
}

func newHarness(t *testing.T, environment string, settings providers.Settings, defs []mockDef, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		mocks:   make(map[payment.ProviderType]*providers.MockProvider),
		metrics: observability.NewMetrics("test", prometheus.NewRegistry()),
	}

	if settings.Providers == nil {
		settings.Providers = make(map[payment.ProviderType]providers.Config)
	}
	var factoryOpts []providers.FactoryOption
	for _, def := range defs {
		m := providers.NewMockProvider(def.providerType, def.opts...)
		h.mocks[def.providerType] = m

		var p providers.Provider = m
		if def.wrap != nil {
			p = def.wrap(m)
		}
		factoryOpts = append(factoryOpts, providers.WithConstructor(def.providerType, func(providers.Config, providers.Deps) (providers.Provider, error) {
			return p, nil
		}))
		if _, ok := settings.Providers[def.providerType]; !ok {
			settings.Providers[def.providerType] = providers.Config{APIKey: "key", Environment: environment}
		}
	}

	deps := providers.Deps{Logger: zerolog.Nop(), Metrics: h.metrics}
	h.factory = providers.NewFactory(settings, deps, factoryOpts...)
	opts = append([]Option{WithMetrics(h.metrics)}, opts...)
	h.svc = NewPaymentService(h.factory, environment, zerolog.Nop(), opts...)
	return h
}

func (h *harness) totalCalls() int64 {
	var n int64
	for _, m := range h.mocks {
		n += m.Calls()
	}
	return n
}

func validCardRequest() payment.CardPaymentRequest {
	return payment.CardPaymentRequest{
		Amount:      decimal.RequireFromString("150.00"),
		Description: "Plan Y",
		Card: payment.Card{
			Number:      "4111111111111111",
			ExpiryMonth: 12,
			ExpiryYear:  2030,
			CVV:         "123",
			HolderName:  "Maria Silva",
		},
	}
}

type fakeOriginIndex struct {
	mu        sync.Mutex
	origins   map[string]payment.ProviderType
	lookupErr error
}

func newFakeOriginIndex() *fakeOriginIndex {
	return &fakeOriginIndex{origins: make(map[string]payment.ProviderType)}
}

func (f *fakeOriginIndex) Remember(_ context.Context, id string, p payment.ProviderType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.origins[id] = p
	return nil
}

func (f *fakeOriginIndex) Lookup(_ context.Context, id string) (payment.ProviderType, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return "", false, f.lookupErr
	}
	p, ok := f.origins[id]
	return p, ok, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []infraRedis.PaymentEvent
	err    error
}

func (f *fakePublisher) PublishPaymentEvent(_ context.Context, e infraRedis.PaymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

// --- CreatePixPayment Tests ---

func TestCreatePixPayment_AmountAndPendingStatus(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{DefaultPix: pixOne}, []mockDef{pixMock(pixOne)})

	resp, err := h.svc.CreatePixPayment(context.Background(), payment.PixPaymentRequest{
		Amount:      decimal.RequireFromString("29.90"),
		Description: "Plan X",
	})
	require.NoError(t, err)

	assert.True(t, resp.Amount.Equal(decimal.RequireFromString("29.90")))
	assert.Equal(t, payment.StatusPending, resp.Status)
	assert.Equal(t, pixOne, resp.Provider)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.PaymentsTotal.WithLabelValues("pix", "pix_one", "pending")), 0)
}

func TestCreatePixPayment_DefaultProviderDoesNotFailOver(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{
		Order:      []payment.ProviderType{pixOne, pixTwo},
		DefaultPix: pixOne,
	}, []mockDef{pixMock(pixOne), pixMock(pixTwo)})
	h.mocks[pixOne].SetAvailable(false)
	ctx := context.Background()

	resp, err := h.svc.CreatePixPayment(ctx, payment.PixPaymentRequest{
		Amount:      decimal.NewFromInt(50),
		Description: "Plan X",
	})
	require.NoError(t, err)
	assert.Equal(t, pixOne, resp.Provider)

	working, err := h.svc.WorkingProvider(ctx, payment.MethodPix)
	require.NoError(t, err)
	assert.Equal(t, pixTwo, working.Type())
}

func TestCreatePixPayment_NoPixProvider(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{cardMock(cardOne)})

	_, err := h.svc.CreatePixPayment(context.Background(), payment.PixPaymentRequest{
		Amount:      decimal.NewFromInt(10),
		Description: "x",
	})

	var capErr *domainErrors.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, domainErrors.KindUnavailable, domainErrors.Classify(err))
	assert.Zero(t, h.totalCalls())
}

func TestCreatePixPayment_ValidationError(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})

	_, err := h.svc.CreatePixPayment(context.Background(), payment.PixPaymentRequest{
		Amount:      decimal.Zero,
		Description: "x",
	})

	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
	assert.Zero(t, h.totalCalls())
}

func TestCreatePixPayment_SubCentAmountRejected(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})

	for _, amount := range []string{"0.004", "0.005", "10.004"} {
		_, err := h.svc.CreatePixPayment(context.Background(), payment.PixPaymentRequest{
			Amount:      decimal.RequireFromString(amount),
			Description: "x",
		})
		assert.ErrorIs(t, err, domainErrors.ErrValidationFailed, amount)
	}
	assert.Zero(t, h.totalCalls())
}

func TestCreatePixPayment_UpstreamFailureSurfaces(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{{
		providerType: pixOne,
		opts:         []providers.MockProviderOption{providers.WithMethods(payment.MethodPix), providers.WithFailureRate(1)},
	}})

	_, err := h.svc.CreatePixPayment(context.Background(), payment.PixPaymentRequest{
		Amount:      decimal.NewFromInt(10),
		Description: "x",
	})

	assert.ErrorIs(t, err, domainErrors.ErrUpstream)
	assert.Equal(t, domainErrors.KindRetry, domainErrors.Classify(err))
}

func TestCreatePixPayment_RecordsOriginAndEvent(t *testing.T) {
	origins := newFakeOriginIndex()
	events := &fakePublisher{err: errors.New("redis down")}
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)},
		WithOriginIndex(origins), WithEventPublisher(events))

	resp, err := h.svc.CreatePixPayment(context.Background(), payment.PixPaymentRequest{
		Amount:      decimal.NewFromInt(10),
		Description: "x",
	})
	require.NoError(t, err, "a failing event stream must not fail the payment")

	assert.Equal(t, pixOne, origins.origins[resp.ID])
	require.Len(t, events.events, 1)
	assert.Equal(t, infraRedis.EventPaymentCreated, events.events[0].Type)
	assert.Equal(t, "10.00", events.events[0].Data["amount"])
}

// --- ProcessCardPayment Tests ---

func TestProcessCardPayment_Success(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{DefaultCard: cardOne}, []mockDef{pixMock(pixOne), cardMock(cardOne)})
	req := validCardRequest()
	req.Installments = 3

	resp, err := h.svc.ProcessCardPayment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, cardOne, resp.Provider)
	assert.Equal(t, payment.StatusCompleted, resp.Status)
	assert.Equal(t, 3, resp.Installments)
	assert.Zero(t, h.mocks[pixOne].Calls())
}

func TestProcessCardPayment_MethodNotDeclared(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{cardMock(cardOne)})
	req := validCardRequest()
	req.Method = payment.MethodDebitCard

	_, err := h.svc.ProcessCardPayment(context.Background(), req)

	assert.ErrorIs(t, err, domainErrors.ErrMethodNotSupported)
	assert.Zero(t, h.totalCalls())
}

func TestProcessCardPayment_MissingCredentials(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{DefaultCard: payment.ProviderStripe}, nil)

	_, err := h.svc.ProcessCardPayment(context.Background(), validCardRequest())

	assert.ErrorIs(t, err, domainErrors.ErrProviderNotConfigured)
}

// --- CheckPaymentStatus Tests ---

func TestCheckPaymentStatus_AllProvidersNotFound(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne), pixMock(pixTwo), cardMock(cardOne)})

	_, err := h.svc.CheckPaymentStatus(context.Background(), "unknown-id", "")

	var lookupErr *domainErrors.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "unknown-id", lookupErr.PaymentID)
	assert.Len(t, lookupErr.Failures, 3)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	assert.Equal(t, domainErrors.KindNotFound, domainErrors.Classify(err))
	for _, m := range h.mocks {
		assert.EqualValues(t, 1, m.Calls())
	}
}

func TestCheckPaymentStatus_ShortCircuitsOnFirstSuccess(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{
		Order: []payment.ProviderType{pixOne, pixTwo, cardOne},
	}, []mockDef{pixMock(pixOne), pixMock(pixTwo), cardMock(cardOne)})
	h.mocks[pixTwo].SetStatus("pay_2", payment.StatusCompleted)

	resp, err := h.svc.CheckPaymentStatus(context.Background(), "pay_2", "")
	require.NoError(t, err)

	assert.Equal(t, payment.StatusCompleted, resp.Status)
	assert.EqualValues(t, 1, h.mocks[pixOne].Calls())
	assert.EqualValues(t, 1, h.mocks[pixTwo].Calls())
	assert.Zero(t, h.mocks[cardOne].Calls())
}

func TestCheckPaymentStatus_OriginIndexGoesFirst(t *testing.T) {
	origins := newFakeOriginIndex()
	h := newHarness(t, "development", providers.Settings{
		Order: []payment.ProviderType{pixOne, pixTwo, cardOne},
	}, []mockDef{pixMock(pixOne), pixMock(pixTwo), cardMock(cardOne)}, WithOriginIndex(origins))
	h.mocks[cardOne].SetStatus("pay_c", payment.StatusProcessing)
	require.NoError(t, origins.Remember(context.Background(), "pay_c", cardOne))

	resp, err := h.svc.CheckPaymentStatus(context.Background(), "pay_c", "")
	require.NoError(t, err)

	assert.Equal(t, payment.StatusProcessing, resp.Status)
	assert.EqualValues(t, 1, h.totalCalls())
}

func TestCheckPaymentStatus_OriginIndexFailureDegrades(t *testing.T) {
	origins := newFakeOriginIndex()
	origins.lookupErr = errors.New("redis down")
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)}, WithOriginIndex(origins))
	h.mocks[pixOne].SetStatus("pay_1", payment.StatusPending)

	resp, err := h.svc.CheckPaymentStatus(context.Background(), "pay_1", "")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, resp.Status)
}

func TestCheckPaymentStatus_MethodHint(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{DefaultCard: cardOne}, []mockDef{pixMock(pixOne), cardMock(cardOne)})
	h.mocks[cardOne].SetStatus("pay_c", payment.StatusCompleted)

	resp, err := h.svc.CheckPaymentStatus(context.Background(), "pay_c", payment.MethodCreditCard)
	require.NoError(t, err)

	assert.Equal(t, payment.StatusCompleted, resp.Status)
	assert.Zero(t, h.mocks[pixOne].Calls())
}

func TestCheckPaymentStatus_MethodHintSurfacesProviderError(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})

	_, err := h.svc.CheckPaymentStatus(context.Background(), "missing", payment.MethodPix)

	var upstream *domainErrors.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.True(t, upstream.NotFound())
}

func TestCheckPaymentStatus_EmptyID(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})

	_, err := h.svc.CheckPaymentStatus(context.Background(), "", "")

	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
}

// --- ValidateCard / InstallmentOptions Tests ---

func TestValidateCard_UsesProviderRules(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{{
		providerType: cardOne,
		opts:         []providers.MockProviderOption{providers.WithMethods(payment.MethodCreditCard)},
		wrap: func(m *providers.MockProvider) providers.Provider {
			return &cardRules{MockProvider: m, validateFunc: func(string) bool { return false }}
		},
	}})

	assert.False(t, h.svc.ValidateCard("4111111111111111"))
}

func TestValidateCard_FallsBackToLuhn(t *testing.T) {
	for name, defs := range map[string][]mockDef{
		"no card provider":        {pixMock(pixOne)},
		"provider without rules":  {cardMock(cardOne)},
		"no providers configured": nil,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, "development", providers.Settings{}, defs)

			assert.True(t, h.svc.ValidateCard("4111 1111 1111 1111"))
			assert.False(t, h.svc.ValidateCard("4111 1111 1111 1112"))
		})
	}
}

func TestInstallmentOptions_UsesProviderPolicy(t *testing.T) {
	policy := payment.InstallmentPolicy{InterestFree: 2, MonthlyRate: decimal.RequireFromString("0.05")}
	h := newHarness(t, "development", providers.Settings{}, []mockDef{{
		providerType: cardOne,
		opts:         []providers.MockProviderOption{providers.WithMethods(payment.MethodCreditCard)},
		wrap: func(m *providers.MockProvider) providers.Provider {
			return &cardRules{MockProvider: m, policy: policy}
		},
	}})

	options, err := h.svc.InstallmentOptions(decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Len(t, options, payment.MaxInstallments)
	assert.True(t, options[1].InterestRate.IsZero())
	assert.True(t, options[2].InterestRate.Equal(decimal.RequireFromString("0.05")))
}

func TestInstallmentOptions_DefaultSchedule(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})
	amount := decimal.RequireFromString("199.90")

	options, err := h.svc.InstallmentOptions(amount)
	require.NoError(t, err)

	assert.Equal(t, payment.DefaultInstallmentOptions(amount), options)
	for _, o := range options {
		covered := o.InstallmentAmount.Mul(decimal.NewFromInt(int64(o.Installments)))
		assert.True(t, covered.GreaterThanOrEqual(amount))
		if o.Installments <= 6 {
			assert.True(t, o.InterestRate.IsZero())
		}
	}
}

func TestInstallmentOptions_InvalidAmount(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, nil)

	for _, amount := range []string{"-1", "0.004", "10.004"} {
		_, err := h.svc.InstallmentOptions(decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, domainErrors.ErrValidationFailed, amount)
	}
}

// --- SimulatePayment Tests ---

func TestSimulatePayment_ProductionBlockedWithoutNetworkCalls(t *testing.T) {
	h := newHarness(t, "production", providers.Settings{}, []mockDef{pixMock(pixOne), cardMock(cardOne)})
	ctx := context.Background()

	for _, method := range []payment.Method{"", payment.MethodPix} {
		_, err := h.svc.SimulatePayment(ctx, payment.SimulationRequest{PaymentID: "pay_1", Action: payment.SimulateApprove}, method)

		var envErr *domainErrors.EnvironmentViolationError
		require.ErrorAs(t, err, &envErr)
		assert.Equal(t, domainErrors.KindHidden, domainErrors.Classify(err))
	}
	assert.Zero(t, h.totalCalls())
}

func TestSimulatePayment_ProductionSpellingsBlocked(t *testing.T) {
	for _, env := range []string{"Production", "PROD", " prod "} {
		t.Run(env, func(t *testing.T) {
			h := newHarness(t, env, providers.Settings{}, []mockDef{pixMock(pixOne), cardMock(cardOne)})

			_, err := h.svc.SimulatePayment(context.Background(), payment.SimulationRequest{PaymentID: "pay_1", Action: payment.SimulateApprove}, "")

			assert.ErrorIs(t, err, domainErrors.ErrEnvironmentViolation)
			assert.Zero(t, h.totalCalls())
		})
	}
}

func TestSimulatePayment_WithMethod(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})
	h.mocks[pixOne].SetStatus("pay_1", payment.StatusPending)

	resp, err := h.svc.SimulatePayment(context.Background(), payment.SimulationRequest{PaymentID: "pay_1", Action: payment.SimulateApprove}, payment.MethodPix)
	require.NoError(t, err)

	assert.Equal(t, payment.StatusCompleted, resp.Status)
	require.NotNil(t, resp.PaidAt)
}

func TestSimulatePayment_TriesEverySimulator(t *testing.T) {
	events := &fakePublisher{}
	h := newHarness(t, "development", providers.Settings{
		Order: []payment.ProviderType{pixOne, pixTwo},
	}, []mockDef{pixMock(pixOne), pixMock(pixTwo)}, WithEventPublisher(events))
	h.mocks[pixTwo].SetStatus("pay_2", payment.StatusPending)

	resp, err := h.svc.SimulatePayment(context.Background(), payment.SimulationRequest{PaymentID: "pay_2", Action: payment.SimulateReject}, "")
	require.NoError(t, err)

	assert.Equal(t, payment.StatusFailed, resp.Status)
	assert.EqualValues(t, 1, h.mocks[pixOne].Calls())
	require.Len(t, events.events, 1)
	assert.Equal(t, infraRedis.EventPaymentSimulated, events.events[0].Type)
}

func TestSimulatePayment_NoSimulator(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{{
		providerType: cardOne,
		opts:         []providers.MockProviderOption{providers.WithMethods(payment.MethodCreditCard)},
		wrap: func(m *providers.MockProvider) providers.Provider {
			return struct{ providers.CardProvider }{m}
		},
	}})

	_, err := h.svc.SimulatePayment(context.Background(), payment.SimulationRequest{PaymentID: "pay_1", Action: payment.SimulateApprove}, "")

	assert.ErrorIs(t, err, domainErrors.ErrMethodNotSupported)
	assert.Zero(t, h.totalCalls())
}

func TestSimulatePayment_AllSimulatorsFail(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne), pixMock(pixTwo)})

	_, err := h.svc.SimulatePayment(context.Background(), payment.SimulationRequest{PaymentID: "ghost", Action: payment.SimulateApprove}, "")

	var lookupErr *domainErrors.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Len(t, lookupErr.Failures, 2)
}

func TestSimulatePayment_InvalidAction(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne)})

	_, err := h.svc.SimulatePayment(context.Background(), payment.SimulationRequest{PaymentID: "pay_1", Action: "refund"}, "")

	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
	assert.Zero(t, h.totalCalls())
}

// --- Provider listing Tests ---

func TestAvailableProviders_ListsConfiguredProvidersWithMethods(t *testing.T) {
	settings := providers.Settings{Order: []payment.ProviderType{pixOne, cardOne}}
	h := newHarness(t, "development", settings, []mockDef{pixMock(pixOne), cardMock(cardOne)})

	infos := h.svc.AvailableProviders()

	assert.Equal(t, []ProviderInfo{
		{Type: pixOne, Methods: []payment.Method{payment.MethodPix}},
		{Type: cardOne, Methods: []payment.Method{payment.MethodCreditCard}},
	}, infos)
	assert.ElementsMatch(t, []payment.Method{payment.MethodPix, payment.MethodCreditCard}, h.svc.SupportedMethods())
	assert.Zero(t, h.totalCalls())
}

func TestAvailableProviders_NoneConfigured(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, nil)

	assert.Empty(t, h.svc.AvailableProviders())
	assert.Empty(t, h.svc.SupportedMethods())
}

// --- Health Tests ---

func TestCheckProvidersHealth(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne), cardMock(cardOne)})
	h.mocks[cardOne].SetAvailable(false)

	health := h.svc.CheckProvidersHealth(context.Background())

	assert.Equal(t, map[payment.ProviderType]bool{pixOne: true, cardOne: false}, health)
	assert.InDelta(t, 0, testutil.ToFloat64(h.metrics.ProviderHealthy.WithLabelValues("card_one")), 0)
}

func TestWorkingProvider_NoneHealthy(t *testing.T) {
	h := newHarness(t, "development", providers.Settings{}, []mockDef{pixMock(pixOne), pixMock(pixTwo)})
	h.mocks[pixOne].SetAvailable(false)
	h.mocks[pixTwo].SetAvailable(false)

	_, err := h.svc.WorkingProvider(context.Background(), payment.MethodPix)

	assert.ErrorIs(t, err, domainErrors.ErrNoWorkingProvider)
}
