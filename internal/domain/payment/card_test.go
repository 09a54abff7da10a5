package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCardNumber(t *testing.T) {
	valid := []string{
		"4242424242424242",
		"4242 4242 4242 4242",
		"5555-5555-5555-4444",
		"378282246310005",
		"4222222222222",
	}
	for _, n := range valid {
		assert.True(t, ValidateCardNumber(n), n)
	}

	invalid := []string{
		"",
		"4242424242424241",
		"424242424242",         // too short
		"42424242424242424242", // too long
		"4242abcd42424242",
	}
	for _, n := range invalid {
		assert.False(t, ValidateCardNumber(n), n)
	}
}

func TestValidateCardNumber_SingleDigitMutation(t *testing.T) {
	valid := "4111111111111111"
	assert.True(t, ValidateCardNumber(valid))

	for i := 0; i < len(valid); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if valid[i] == d {
				continue
			}
			mutated := []byte(valid)
			mutated[i] = d
			assert.False(t, ValidateCardNumber(string(mutated)), "mutation %s should fail", mutated)
		}
	}
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "****1111", MaskCardNumber("4111 1111 1111 1111"))
	assert.Equal(t, "****", MaskCardNumber("123"))
}

func TestDetectBrand(t *testing.T) {
	tests := map[string]Brand{
		"4111111111111111": BrandVisa,
		"5555555555554444": BrandMastercard,
		"2223003122003222": BrandMastercard,
		"378282246310005":  BrandAmex,
		"6362970000457013": BrandElo,
		"6062825624254001": BrandHipercard,
		"9999999999999999": BrandUnknown,
		"12":               BrandUnknown,
	}
	for number, want := range tests {
		assert.Equal(t, want, DetectBrand(number), number)
	}
}
