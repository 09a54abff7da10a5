package providers

import (
	"strings"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
)

// statusTable maps a gateway status vocabulary (lower-cased) to the shared enum.
type statusTable map[string]payment.Status

// normalize never yields a terminal status for a value it does not know.
func (t statusTable) normalize(raw string) payment.Status {
	if s, ok := t[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return payment.StatusPending
}

var abacatePayStatuses = statusTable{
	"pending":   payment.StatusPending,
	"paid":      payment.StatusCompleted,
	"expired":   payment.StatusCancelled,
	"cancelled": payment.StatusCancelled,
	"refunded":  payment.StatusCancelled,
	"error":     payment.StatusFailed,
}

var stripeStatuses = statusTable{
	"requires_payment_method": payment.StatusFailed,
	"requires_confirmation":   payment.StatusPending,
	"requires_action":         payment.StatusPending,
	"processing":              payment.StatusProcessing,
	"requires_capture":        payment.StatusProcessing,
	"succeeded":               payment.StatusCompleted,
	"canceled":                payment.StatusCancelled,
}

var mercadoPagoStatuses = statusTable{
	"pending":      payment.StatusPending,
	"authorized":   payment.StatusProcessing,
	"in_process":   payment.StatusProcessing,
	"in_mediation": payment.StatusProcessing,
	"approved":     payment.StatusCompleted,
	"rejected":     payment.StatusFailed,
	"cancelled":    payment.StatusCancelled,
	"refunded":     payment.StatusCancelled,
	"charged_back": payment.StatusCancelled,
}

// MapAbacatePayStatus normalizes a PIX gateway status.
func MapAbacatePayStatus(raw string) payment.Status { return abacatePayStatuses.normalize(raw) }

// MapStripeStatus normalizes a card gateway payment intent status.
func MapStripeStatus(raw string) payment.Status { return stripeStatuses.normalize(raw) }

// MapMercadoPagoStatus normalizes a multi-method gateway status.
func MapMercadoPagoStatus(raw string) payment.Status { return mercadoPagoStatuses.normalize(raw) }
