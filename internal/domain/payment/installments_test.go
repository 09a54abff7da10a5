package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInstallmentOptions(t *testing.T) {
	amount := decimal.RequireFromString("100.00")
	options := DefaultInstallmentOptions(amount)
	require.Len(t, options, MaxInstallments)

	assert.Equal(t, 1, options[0].Installments)
	assert.True(t, options[0].InstallmentAmount.Equal(amount))
	assert.True(t, options[2].InstallmentAmount.Equal(decimal.RequireFromString("33.34")))

	for _, o := range options[:6] {
		assert.True(t, o.InterestRate.IsZero(), "installment %d should be interest-free", o.Installments)
		assert.True(t, o.TotalAmount.Equal(amount))
	}
	for _, o := range options[6:] {
		assert.True(t, o.InterestRate.Equal(decimal.RequireFromString("0.025")))
		assert.True(t, o.TotalAmount.GreaterThan(amount))
	}

	// 100 * 1.025^7 = 118.87
	assert.Equal(t, "118.87", options[6].TotalAmount.StringFixed(2))
}

func TestInstallmentPolicy_Properties(t *testing.T) {
	policies := []InstallmentPolicy{
		DefaultInstallmentPolicy,
		{InterestFree: 3, MonthlyRate: decimal.RequireFromString("0.0299")},
		{InterestFree: 0, MonthlyRate: decimal.RequireFromString("0.05")},
	}
	amounts := []string{"0.01", "1.00", "29.90", "99.99", "1234.57"}

	for _, p := range policies {
		for _, s := range amounts {
			amount := decimal.RequireFromString(s)
			options := p.Schedule(amount)
			require.Len(t, options, MaxInstallments)

			prevTotal := decimal.Zero
			for _, o := range options {
				n := decimal.NewFromInt(int64(o.Installments))
				assert.True(t, o.InstallmentAmount.Mul(n).GreaterThanOrEqual(amount),
					"%s x%d: %s * n < amount", s, o.Installments, o.InstallmentAmount)
				assert.True(t, o.TotalAmount.GreaterThanOrEqual(prevTotal), "totals must not decrease")
				if o.Installments <= p.InterestFree {
					assert.True(t, o.InterestRate.IsZero())
				}
				prevTotal = o.TotalAmount
			}
		}
	}
}

func TestInstallmentPolicy_NonPositiveAmount(t *testing.T) {
	assert.Nil(t, DefaultInstallmentOptions(decimal.Zero))
	assert.Nil(t, DefaultInstallmentOptions(decimal.NewFromInt(-10)))
	// Rounds to zero cents.
	assert.Nil(t, DefaultInstallmentOptions(decimal.RequireFromString("0.004")))
}
