package payment

import (
	"strings"
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/shopspring/decimal"
)

// Method represents the way a payment is paid
type Method string

const (
	MethodPix        Method = "pix"
	MethodCreditCard Method = "credit_card"
	MethodDebitCard  Method = "debit_card"
)

// ParseMethod parses a method name. An empty string yields an empty method and no error.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "", MethodPix, MethodCreditCard, MethodDebitCard:
		return m, nil
	default:
		return "", errors.NewValidationError("method", "unknown payment method "+s)
	}
}

// IsCard reports whether the method is paid with a card.
func (m Method) IsCard() bool {
	return m == MethodCreditCard || m == MethodDebitCard
}

// Status represents the normalized payment status shared by every provider
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transition is expected from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ProviderType identifies a payment gateway integration
type ProviderType string

const (
	ProviderAbacatePay  ProviderType = "abacatepay"
	ProviderStripe      ProviderType = "stripe"
	ProviderMercadoPago ProviderType = "mercadopago"
)

// SimulationAction is the terminal state a simulated payment is forced into
type SimulationAction string

const (
	SimulateApprove SimulationAction = "approve"
	SimulateReject  SimulationAction = "reject"
)

// Metadata keys with a meaning for some gateways.
const (
	MetadataCoupon        = "coupon"
	MetadataEmail         = "email"
	MetadataPhone         = "phone"
	MetadataCorrelationID = "correlation_id"
)

// DefaultPixExpiration is used when a PIX request does not set its own window.
const DefaultPixExpiration = 30 * time.Minute

// PixPaymentRequest is the input for a PIX charge.
type PixPaymentRequest struct {
	Amount            decimal.Decimal
	Description       string
	CustomerID        string
	Metadata          map[string]string
	ExpirationMinutes int
}

// Validate checks the request invariants.
func (r PixPaymentRequest) Validate() error {
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.NewValidationError("description", "is required")
	}
	if r.ExpirationMinutes < 0 {
		return errors.NewValidationError("expiration_minutes", "must not be negative")
	}
	return nil
}

// Expiration returns the effective expiration window.
func (r PixPaymentRequest) Expiration() time.Duration {
	if r.ExpirationMinutes <= 0 {
		return DefaultPixExpiration
	}
	return time.Duration(r.ExpirationMinutes) * time.Minute
}

// PixPaymentResponse is a PIX charge as reported by a provider.
type PixPaymentResponse struct {
	ID          string
	Provider    ProviderType
	QRCode      string // renderable payload (base64 image or data URI)
	PaymentCode string // copy-paste code
	Amount      decimal.Decimal
	Description string
	Status      Status
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Metadata    map[string]string
}

// Card holds raw card fields. It is only ever forwarded to a gateway.
type Card struct {
	Number      string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
	HolderName  string
}

// String never exposes the PAN or CVV.
func (c Card) String() string {
	return MaskCardNumber(c.Number)
}

// CardPaymentRequest is the input for a card charge.
type CardPaymentRequest struct {
	Amount       decimal.Decimal
	Description  string
	Method       Method // credit_card when empty
	Card         Card
	Installments int
	Metadata     map[string]string
}

// Validate checks the request invariants.
func (r CardPaymentRequest) Validate() error {
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.NewValidationError("description", "is required")
	}
	if r.Method != "" && !r.Method.IsCard() {
		return errors.NewValidationError("method", "must be a card method")
	}
	if NormalizeCardNumber(r.Card.Number) == "" {
		return errors.NewValidationError("card.number", "is required")
	}
	if r.Card.ExpiryMonth < 1 || r.Card.ExpiryMonth > 12 {
		return errors.NewValidationError("card.expiry_month", "must be between 1 and 12")
	}
	if r.Card.ExpiryYear <= 0 {
		return errors.NewValidationError("card.expiry_year", "is required")
	}
	if r.Card.CVV == "" {
		return errors.NewValidationError("card.cvv", "is required")
	}
	if strings.TrimSpace(r.Card.HolderName) == "" {
		return errors.NewValidationError("card.holder_name", "is required")
	}
	if r.Installments < 0 || r.Installments > MaxInstallments {
		return errors.NewValidationError("installments", "must be between 1 and 12")
	}
	return nil
}

// EffectiveMethod returns the card method, defaulting to credit.
func (r CardPaymentRequest) EffectiveMethod() Method {
	if r.Method == "" {
		return MethodCreditCard
	}
	return r.Method
}

// EffectiveInstallments returns the installment count, defaulting to one.
func (r CardPaymentRequest) EffectiveInstallments() int {
	if r.Installments <= 0 {
		return 1
	}
	return r.Installments
}

// CardPaymentResponse is a card charge as reported by a provider.
type CardPaymentResponse struct {
	ID                string
	Provider          ProviderType
	Amount            decimal.Decimal
	Description       string
	Status            Status
	CreatedAt         time.Time
	Installments      int
	AuthorizationCode string
	Metadata          map[string]string
}

// StatusResponse is a normalized status lookup.
type StatusResponse struct {
	ID       string
	Provider ProviderType
	Status   Status
	PaidAt   *time.Time
	Amount   decimal.Decimal
	Method   Method
	Metadata map[string]string
}

// SimulationRequest forces a payment into a terminal state outside production.
type SimulationRequest struct {
	PaymentID string
	Action    SimulationAction
}

// Validate checks the request invariants.
func (r SimulationRequest) Validate() error {
	if strings.TrimSpace(r.PaymentID) == "" {
		return errors.NewValidationError("payment_id", "is required")
	}
	switch r.Action {
	case SimulateApprove, SimulateReject:
		return nil
	default:
		return errors.NewValidationError("action", "must be approve or reject")
	}
}

// CopyMetadata returns a copy of m so responses never alias request maps.
func CopyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ValidateAmount accepts positive amounts expressible in whole cents.
func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return errors.NewValidationError("amount", "must be greater than zero")
	}
	if !a.Equal(RoundCurrency(a)) {
		return errors.NewValidationError("amount", "must not have more than 2 decimal places")
	}
	return nil
}
