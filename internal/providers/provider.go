package providers

import (
	"context"
	"strings"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// Provider is the contract every payment gateway adapter implements.
// Method families are declared through the optional interfaces below.
type Provider interface {
	// Type returns the provider type.
	Type() payment.ProviderType
	// SupportedMethods lists the payment methods the provider accepts.
	SupportedMethods() []payment.Method
	// IsAvailable is a cheap reachability probe. It never returns an error.
	IsAvailable(ctx context.Context) bool
	// CheckPaymentStatus looks a payment up and normalizes its status.
	CheckPaymentStatus(ctx context.Context, paymentID string) (*payment.StatusResponse, error)
}

// PixProvider creates PIX charges.
type PixProvider interface {
	Provider
	CreatePixPayment(ctx context.Context, req payment.PixPaymentRequest) (*payment.PixPaymentResponse, error)
}

// CardProvider charges cards.
type CardProvider interface {
	Provider
	ProcessCardPayment(ctx context.Context, req payment.CardPaymentRequest) (*payment.CardPaymentResponse, error)
}

// CardValidator validates card numbers with gateway rules.
type CardValidator interface {
	ValidateCard(number string) bool
}

// InstallmentCalculator prices installment plans with gateway policy.
type InstallmentCalculator interface {
	InstallmentOptions(amount decimal.Decimal) []payment.InstallmentOption
}

// Simulator forces a payment into a terminal state. Non-production only.
type Simulator interface {
	SimulatePayment(ctx context.Context, paymentID string, action payment.SimulationAction) (*payment.StatusResponse, error)
}

// Config holds credentials and connection settings for one provider.
type Config struct {
	APIKey      string
	BaseURL     string
	Environment string
	Timeout     time.Duration
}

// DefaultTimeout bounds every gateway call unless a provider overrides it.
const DefaultTimeout = 30 * time.Second

// IsProduction reports whether the provider credentials target a live environment.
func (c Config) IsProduction() bool {
	return IsProductionEnvironment(c.Environment)
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Supports reports whether p declares support for method.
func Supports(p Provider, method payment.Method) bool {
	for _, m := range p.SupportedMethods() {
		if m == method {
			return true
		}
	}
	return false
}

// SupportsCard reports whether p accepts any card method.
func SupportsCard(p Provider) bool {
	return Supports(p, payment.MethodCreditCard) || Supports(p, payment.MethodDebitCard)
}

// IsProductionEnvironment reports whether env names a live environment, ignoring case and surrounding space.
func IsProductionEnvironment(env string) bool {
	env = strings.TrimSpace(env)
	return strings.EqualFold(env, "production") || strings.EqualFold(env, "prod")
}
