package payment

import (
	"github.com/shopspring/decimal"
)

// MaxInstallments is the largest installment count offered.
const MaxInstallments = 12

// InstallmentOption is one entry of an installment schedule.
type InstallmentOption struct {
	Installments      int
	InstallmentAmount decimal.Decimal
	TotalAmount       decimal.Decimal
	InterestRate      decimal.Decimal // monthly rate, zero when interest-free
}

// InstallmentPolicy is a gateway's pricing for split card payments.
type InstallmentPolicy struct {
	InterestFree int
	MonthlyRate  decimal.Decimal
}

// DefaultInstallmentPolicy applies when no provider schedule is available.
var DefaultInstallmentPolicy = InstallmentPolicy{
	InterestFree: 6,
	MonthlyRate:  decimal.RequireFromString("0.025"),
}

// Schedule returns options for 1..MaxInstallments. Each installment amount is
// rounded up to the cent so that InstallmentAmount*Installments >= TotalAmount.
func (p InstallmentPolicy) Schedule(amount decimal.Decimal) []InstallmentOption {
	base := RoundCurrency(amount)
	if !base.IsPositive() {
		return nil
	}

	growth := decimal.NewFromInt(1).Add(p.MonthlyRate)
	options := make([]InstallmentOption, 0, MaxInstallments)

	compounded := base
	for n := 1; n <= MaxInstallments; n++ {
		compounded = compounded.Mul(growth)

		total := base
		rate := decimal.Zero
		if n > p.InterestFree {
			total = RoundCurrency(compounded)
			rate = p.MonthlyRate
		}

		options = append(options, InstallmentOption{
			Installments:      n,
			InstallmentAmount: total.Div(decimal.NewFromInt(int64(n))).RoundCeil(2),
			TotalAmount:       total,
			InterestRate:      rate,
		})
	}
	return options
}

// DefaultInstallmentOptions is the schedule used without a provider.
func DefaultInstallmentOptions(amount decimal.Decimal) []InstallmentOption {
	return DefaultInstallmentPolicy.Schedule(amount)
}
