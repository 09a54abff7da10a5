package providers

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderMock is an in-memory gateway for local development and tests.
const ProviderMock payment.ProviderType = "mock"

// MockProvider is a configurable in-memory payment provider.
type MockProvider struct {
	providerType payment.ProviderType
	methods      []payment.Method
	failureRate  float64 // 0.0 to 1.0
	latency      time.Duration
	timeoutRate  float64 // 0.0 to 1.0
	available    atomic.Bool
	calls        atomic.Int64

	mu       sync.Mutex
	payments map[string]*payment.StatusResponse
}

// MockProviderOption configures a MockProvider.
type MockProviderOption func(*MockProvider)

// WithFailureRate sets the probability that a call will return an upstream error.
func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

// WithLatency sets the simulated processing latency.
func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

// WithTimeoutRate sets the probability of a simulated timeout.
func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

// WithMethods sets the declared payment methods.
func WithMethods(methods ...payment.Method) MockProviderOption {
	return func(p *MockProvider) { p.methods = methods }
}

// WithAvailability sets the initial health probe answer.
func WithAvailability(available bool) MockProviderOption {
	return func(p *MockProvider) { p.available.Store(available) }
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(providerType payment.ProviderType, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		providerType: providerType,
		methods:      []payment.Method{payment.MethodPix, payment.MethodCreditCard, payment.MethodDebitCard},
		latency:      0,
		payments:     make(map[string]*payment.StatusResponse),
	}
	p.available.Store(true)
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewMockConstructor adapts NewMockProvider to the factory constructor signature.
func NewMockConstructor(opts ...MockProviderOption) Constructor {
	return func(cfg Config, _ Deps) (Provider, error) {
		return NewMockProvider(ProviderMock, opts...), nil
	}
}

func (p *MockProvider) Type() payment.ProviderType { return p.providerType }

func (p *MockProvider) SupportedMethods() []payment.Method { return p.methods }

// SetAvailable flips the health probe answer.
func (p *MockProvider) SetAvailable(available bool) { p.available.Store(available) }

// Calls returns how many gateway operations were attempted, health probes included.
func (p *MockProvider) Calls() int64 { return p.calls.Load() }

func (p *MockProvider) IsAvailable(ctx context.Context) bool {
	p.calls.Add(1)
	if err := p.wait(ctx); err != nil {
		return false
	}
	return p.available.Load()
}

func (p *MockProvider) CreatePixPayment(ctx context.Context, req payment.PixPaymentRequest) (*payment.PixPaymentResponse, error) {
	if err := p.simulateCall(ctx, "create pix"); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("%s_pix_%s", p.providerType, uuid.New().String()[:8])
	now := time.Now().UTC()
	p.store(&payment.StatusResponse{
		ID:       id,
		Provider: p.providerType,
		Status:   payment.StatusPending,
		Amount:   payment.RoundCurrency(req.Amount),
		Method:   payment.MethodPix,
		Metadata: payment.CopyMetadata(req.Metadata),
	})

	return &payment.PixPaymentResponse{
		ID:          id,
		Provider:    p.providerType,
		QRCode:      "data:image/png;base64,bW9jaw==",
		PaymentCode: "00020126580014br.gov.bcb.pix0136" + id,
		Amount:      payment.RoundCurrency(req.Amount),
		Description: req.Description,
		Status:      payment.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(req.Expiration()),
		Metadata:    payment.CopyMetadata(req.Metadata),
	}, nil
}

func (p *MockProvider) ProcessCardPayment(ctx context.Context, req payment.CardPaymentRequest) (*payment.CardPaymentResponse, error) {
	if err := p.simulateCall(ctx, "create card payment"); err != nil {
		return nil, err
	}

	status := payment.StatusCompleted
	if !payment.ValidateCardNumber(req.Card.Number) {
		status = payment.StatusFailed
	}

	id := fmt.Sprintf("%s_card_%s", p.providerType, uuid.New().String()[:8])
	now := time.Now().UTC()
	st := &payment.StatusResponse{
		ID:       id,
		Provider: p.providerType,
		Status:   status,
		Amount:   payment.RoundCurrency(req.Amount),
		Method:   req.EffectiveMethod(),
		Metadata: payment.CopyMetadata(req.Metadata),
	}
	if status == payment.StatusCompleted {
		st.PaidAt = &now
	}
	p.store(st)

	return &payment.CardPaymentResponse{
		ID:                id,
		Provider:          p.providerType,
		Amount:            payment.RoundCurrency(req.Amount),
		Description:       req.Description,
		Status:            status,
		CreatedAt:         now,
		Installments:      req.EffectiveInstallments(),
		AuthorizationCode: "MOCK01",
		Metadata:          payment.CopyMetadata(req.Metadata),
	}, nil
}

func (p *MockProvider) CheckPaymentStatus(ctx context.Context, paymentID string) (*payment.StatusResponse, error) {
	if err := p.simulateCall(ctx, "check status"); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.payments[paymentID]
	if !ok {
		return nil, &domainErrors.UpstreamError{
			Provider:   string(p.providerType),
			Operation:  "check status",
			StatusCode: 404,
			Body:       `{"error":"payment not found"}`,
		}
	}
	cp := *st
	cp.Metadata = payment.CopyMetadata(st.Metadata)
	return &cp, nil
}

func (p *MockProvider) SimulatePayment(ctx context.Context, paymentID string, action payment.SimulationAction) (*payment.StatusResponse, error) {
	if err := p.simulateCall(ctx, "simulate payment"); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.payments[paymentID]
	if !ok {
		return nil, &domainErrors.UpstreamError{Provider: string(p.providerType), Operation: "simulate payment", StatusCode: 404}
	}
	switch action {
	case payment.SimulateApprove:
		now := time.Now().UTC()
		st.Status = payment.StatusCompleted
		st.PaidAt = &now
	case payment.SimulateReject:
		st.Status = payment.StatusFailed
	}
	cp := *st
	return &cp, nil
}

// SetStatus overrides a stored payment status.
func (p *MockProvider) SetStatus(paymentID string, status payment.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.payments[paymentID]; ok {
		st.Status = status
		return
	}
	p.payments[paymentID] = &payment.StatusResponse{
		ID:       paymentID,
		Provider: p.providerType,
		Status:   status,
		Amount:   decimal.Zero,
	}
}

func (p *MockProvider) store(st *payment.StatusResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments[st.ID] = st
}

func (p *MockProvider) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) simulateCall(ctx context.Context, operation string) error {
	p.calls.Add(1)

	// Simulate latency
	if err := p.wait(ctx); err != nil {
		return err
	}

	// Simulate timeout
	if p.timeoutRate > 0 && rand.Float64() < p.timeoutRate {
		return &domainErrors.TimeoutError{Provider: string(p.providerType), Operation: operation}
	}

	// Simulate failure
	if p.failureRate > 0 && rand.Float64() < p.failureRate {
		return &domainErrors.UpstreamError{
			Provider:   string(p.providerType),
			Operation:  operation,
			StatusCode: 502,
			Body:       fmt.Sprintf("%s: simulated %s failure", p.providerType, operation),
		}
	}
	return nil
}
