package controller

import (
	"time"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// --- Request DTOs ---
// Amounts are decimal major units and accept both JSON numbers and strings ("29.90").
// Domain invariants (amount > 0, Luhn, installment bounds) are checked by the facade.

type CreatePixPaymentRequest struct {
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description" validate:"required,max=255"`
	CustomerID        string            `json:"customer_id,omitempty" validate:"omitempty,max=64"`
	ExpirationMinutes int               `json:"expiration_minutes,omitempty" validate:"gte=0,lte=1440"`
	Metadata          map[string]string `json:"metadata,omitempty" validate:"omitempty,max=20"`
}

type CardRequest struct {
	Number      string `json:"number" validate:"required,max=23"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required,gte=2000"`
	CVV         string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	HolderName  string `json:"holder_name" validate:"required,max=100"`
}

type ProcessCardPaymentRequest struct {
	Amount       decimal.Decimal   `json:"amount"`
	Description  string            `json:"description" validate:"required,max=255"`
	Method       string            `json:"method,omitempty" validate:"omitempty,oneof=credit_card debit_card"`
	Card         CardRequest       `json:"card"`
	Installments int               `json:"installments,omitempty" validate:"gte=0,lte=12"`
	Metadata     map[string]string `json:"metadata,omitempty" validate:"omitempty,max=20"`
}

type SimulatePaymentRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Method string `json:"method,omitempty" validate:"omitempty,oneof=pix credit_card debit_card"`
}

type ValidateCardRequest struct {
	Number string `json:"number" validate:"required,max=23"`
}

// --- Response DTOs ---

type PixPaymentResponse struct {
	ID          string            `json:"id"`
	Provider    string            `json:"provider"`
	QRCode      string            `json:"qr_code"`
	PaymentCode string            `json:"payment_code"`
	Amount      string            `json:"amount"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type CardPaymentResponse struct {
	ID                string            `json:"id"`
	Provider          string            `json:"provider"`
	Amount            string            `json:"amount"`
	Description       string            `json:"description"`
	Status            string            `json:"status"`
	Installments      int               `json:"installments"`
	AuthorizationCode string            `json:"authorization_code,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type StatusResponse struct {
	ID       string            `json:"id"`
	Provider string            `json:"provider"`
	Status   string            `json:"status"`
	Terminal bool              `json:"terminal"`
	Method   string            `json:"method,omitempty"`
	Amount   string            `json:"amount"`
	PaidAt   *time.Time        `json:"paid_at,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ValidateCardResponse struct {
	Valid  bool   `json:"valid"`
	Brand  string `json:"brand,omitempty"`
	Masked string `json:"masked"`
}

type InstallmentOptionResponse struct {
	Installments      int    `json:"installments"`
	InstallmentAmount string `json:"installment_amount"`
	TotalAmount       string `json:"total_amount"`
	InterestRate      string `json:"interest_rate"`
}

type ProviderResponse struct {
	Type    string   `json:"type"`
	Methods []string `json:"methods"`
}

type ProvidersResponse struct {
	Providers        []ProviderResponse `json:"providers"`
	SupportedMethods []string           `json:"supported_methods"`
}

// ErrorResponse carries the message, a stable code and the reaction the UI should take.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind,omitempty"`
}

// --- Conversion helpers ---

func (r CreatePixPaymentRequest) toDomain() payment.PixPaymentRequest {
	return payment.PixPaymentRequest{
		Amount:            r.Amount,
		Description:       r.Description,
		CustomerID:        r.CustomerID,
		Metadata:          r.Metadata,
		ExpirationMinutes: r.ExpirationMinutes,
	}
}

func (r ProcessCardPaymentRequest) toDomain() payment.CardPaymentRequest {
	return payment.CardPaymentRequest{
		Amount:      r.Amount,
		Description: r.Description,
		Method:      payment.Method(r.Method),
		Card: payment.Card{
			Number:      r.Card.Number,
			ExpiryMonth: r.Card.ExpiryMonth,
			ExpiryYear:  r.Card.ExpiryYear,
			CVV:         r.Card.CVV,
			HolderName:  r.Card.HolderName,
		},
		Installments: r.Installments,
		Metadata:     r.Metadata,
	}
}

func FromPixPayment(p *payment.PixPaymentResponse) *PixPaymentResponse {
	return &PixPaymentResponse{
		ID:          p.ID,
		Provider:    string(p.Provider),
		QRCode:      p.QRCode,
		PaymentCode: p.PaymentCode,
		Amount:      formatAmount(p.Amount),
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		ExpiresAt:   p.ExpiresAt,
		Metadata:    p.Metadata,
	}
}

func FromCardPayment(p *payment.CardPaymentResponse) *CardPaymentResponse {
	return &CardPaymentResponse{
		ID:                p.ID,
		Provider:          string(p.Provider),
		Amount:            formatAmount(p.Amount),
		Description:       p.Description,
		Status:            string(p.Status),
		Installments:      p.Installments,
		AuthorizationCode: p.AuthorizationCode,
		CreatedAt:         p.CreatedAt,
		Metadata:          p.Metadata,
	}
}

func FromStatus(s *payment.StatusResponse) *StatusResponse {
	return &StatusResponse{
		ID:       s.ID,
		Provider: string(s.Provider),
		Status:   string(s.Status),
		Terminal: s.Status.IsTerminal(),
		Method:   string(s.Method),
		Amount:   formatAmount(s.Amount),
		PaidAt:   s.PaidAt,
		Metadata: s.Metadata,
	}
}

func FromInstallments(options []payment.InstallmentOption) []InstallmentOptionResponse {
	out := make([]InstallmentOptionResponse, 0, len(options))
	for _, o := range options {
		out = append(out, InstallmentOptionResponse{
			Installments:      o.Installments,
			InstallmentAmount: formatAmount(o.InstallmentAmount),
			TotalAmount:       formatAmount(o.TotalAmount),
			InterestRate:      o.InterestRate.String(),
		})
	}
	return out
}

// formatAmount renders major units with two decimals, "29.90".
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
