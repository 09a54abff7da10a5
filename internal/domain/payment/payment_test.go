package payment

import (
	"errors"
	"testing"

	domainErrors "github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCardRequest() CardPaymentRequest {
	return CardPaymentRequest{
		Amount:      decimal.RequireFromString("49.90"),
		Description: "Plan X",
		Card: Card{
			Number:      "4242 4242 4242 4242",
			ExpiryMonth: 12,
			ExpiryYear:  2030,
			CVV:         "123",
			HolderName:  "Maria Silva",
		},
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, Status("PAID").IsTerminal())
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" PIX ")
	require.NoError(t, err)
	assert.Equal(t, MethodPix, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, Method(""), m)

	_, err = ParseMethod("boleto")
	assert.True(t, errors.Is(err, domainErrors.ErrValidationFailed))
}

func TestPixPaymentRequest_Validate(t *testing.T) {
	ok := PixPaymentRequest{Amount: decimal.RequireFromString("29.90"), Description: "Plan X"}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, DefaultPixExpiration, ok.Expiration())

	tests := []struct {
		name  string
		req   PixPaymentRequest
		field string
	}{
		{"zero amount", PixPaymentRequest{Amount: decimal.Zero, Description: "x"}, "amount"},
		{"negative amount", PixPaymentRequest{Amount: decimal.NewFromInt(-1), Description: "x"}, "amount"},
		{"sub-cent amount", PixPaymentRequest{Amount: decimal.RequireFromString("0.004"), Description: "x"}, "amount"},
		{"half-cent amount", PixPaymentRequest{Amount: decimal.RequireFromString("0.005"), Description: "x"}, "amount"},
		{"three decimals", PixPaymentRequest{Amount: decimal.RequireFromString("10.004"), Description: "x"}, "amount"},
		{"blank description", PixPaymentRequest{Amount: decimal.NewFromInt(1), Description: "  "}, "description"},
		{"negative expiration", PixPaymentRequest{Amount: decimal.NewFromInt(1), Description: "x", ExpirationMinutes: -5}, "expiration_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			var ve *domainErrors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCardPaymentRequest_Validate(t *testing.T) {
	req := validCardRequest()
	assert.NoError(t, req.Validate())
	assert.Equal(t, MethodCreditCard, req.EffectiveMethod())
	assert.Equal(t, 1, req.EffectiveInstallments())

	bad := validCardRequest()
	bad.Card.ExpiryMonth = 13
	assert.Error(t, bad.Validate())

	bad = validCardRequest()
	bad.Installments = 13
	assert.Error(t, bad.Validate())

	bad = validCardRequest()
	bad.Method = MethodPix
	assert.Error(t, bad.Validate())
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"29.90", true},
		{"10.000", true},
		{"150", true},
		{"0", false},
		{"-5.00", false},
		{"0.004", false},
		{"0.005", false},
		{"10.004", false},
		{"99.999", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var ve *domainErrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "amount", ve.Field)
		})
	}
}

func TestCardPaymentRequest_Validate_SubCentAmount(t *testing.T) {
	req := validCardRequest()
	req.Amount = decimal.RequireFromString("0.004")

	assert.ErrorIs(t, req.Validate(), domainErrors.ErrValidationFailed)
}

func TestCard_StringIsMasked(t *testing.T) {
	c := validCardRequest().Card
	assert.Equal(t, "****4242", c.String())
	assert.NotContains(t, c.String(), "123")
}

func TestCopyMetadata(t *testing.T) {
	assert.Nil(t, CopyMetadata(nil))

	in := map[string]string{"email": "a@b.c"}
	out := CopyMetadata(in)
	out["email"] = "changed"
	assert.Equal(t, "a@b.c", in["email"])
}

func TestMinorUnits_RoundTrip(t *testing.T) {
	for _, s := range []string{"0.01", "1", "29.90", "99.99", "1234.56", "100000.00"} {
		t.Run(s, func(t *testing.T) {
			amount := decimal.RequireFromString(s)
			cents, err := ToMinorUnits(amount)
			require.NoError(t, err)
			assert.True(t, FromMinorUnits(cents).Equal(amount), "round trip of %s gave %s", s, FromMinorUnits(cents))
		})
	}

	cents, err := ToMinorUnits(decimal.RequireFromString("29.90"))
	require.NoError(t, err)
	assert.Equal(t, int64(2990), cents)

	cents, err = ToMinorUnits(decimal.RequireFromString("10.005"))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), cents)
}
