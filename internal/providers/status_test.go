package providers

import (
	"testing"

	"github.com/cassiomorais/giftpay/internal/domain/payment"
	"github.com/stretchr/testify/assert"
)

var canonicalStatuses = []payment.Status{
	payment.StatusPending,
	payment.StatusProcessing,
	payment.StatusCompleted,
	payment.StatusFailed,
	payment.StatusCancelled,
}

func TestStatusTables_MapOntoCanonicalStatuses(t *testing.T) {
	for name, table := range map[string]statusTable{
		"abacatepay":  abacatePayStatuses,
		"stripe":      stripeStatuses,
		"mercadopago": mercadoPagoStatuses,
	} {
		for raw, status := range table {
			assert.Contains(t, canonicalStatuses, status, "%s status %q", name, raw)
		}
	}
}

func TestMapAbacatePayStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want payment.Status
	}{
		{"PENDING", payment.StatusPending},
		{"PAID", payment.StatusCompleted},
		{"EXPIRED", payment.StatusCancelled},
		{"CANCELLED", payment.StatusCancelled},
		{"REFUNDED", payment.StatusCancelled},
		{"ERROR", payment.StatusFailed},
		{" paid ", payment.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapAbacatePayStatus(tt.raw))
		})
	}
}

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want payment.Status
	}{
		{"succeeded", payment.StatusCompleted},
		{"processing", payment.StatusProcessing},
		{"requires_capture", payment.StatusProcessing},
		{"requires_action", payment.StatusPending},
		{"requires_confirmation", payment.StatusPending},
		{"requires_payment_method", payment.StatusFailed},
		{"canceled", payment.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapStripeStatus(tt.raw))
		})
	}
}

func TestMapMercadoPagoStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want payment.Status
	}{
		{"approved", payment.StatusCompleted},
		{"authorized", payment.StatusProcessing},
		{"in_process", payment.StatusProcessing},
		{"in_mediation", payment.StatusProcessing},
		{"pending", payment.StatusPending},
		{"rejected", payment.StatusFailed},
		{"cancelled", payment.StatusCancelled},
		{"refunded", payment.StatusCancelled},
		{"charged_back", payment.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapMercadoPagoStatus(tt.raw))
		})
	}
}

func TestStatusMapping_UnknownDefaultsToPending(t *testing.T) {
	for _, raw := range []string{"", "SETTLED", "approved_later", "PAID_OUT", "42"} {
		assert.Equal(t, payment.StatusPending, MapAbacatePayStatus(raw), raw)
		assert.Equal(t, payment.StatusPending, MapStripeStatus(raw), raw)
		assert.Equal(t, payment.StatusPending, MapMercadoPagoStatus(raw), raw)
		assert.False(t, MapMercadoPagoStatus(raw).IsTerminal())
	}
}
