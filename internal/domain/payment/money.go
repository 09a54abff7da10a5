package payment

import (
	"fmt"

	"github.com/cassiomorais/giftpay/internal/domain/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (29.90) to integer cents (2990),
// rounding half away from zero at the second decimal place.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	cents := amount.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("%w: %s out of range", errors.ErrInvalidAmount, amount)
	}
	return cents.IntPart(), nil
}

// FromMinorUnits converts integer cents back to a major-unit amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// RoundCurrency rounds to cents.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
