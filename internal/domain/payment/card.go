package payment

import (
	"strings"
)

// Card number length bounds after normalization.
const (
	MinCardNumberLength = 13
	MaxCardNumberLength = 19
)

// Brand is a card network
type Brand string

const (
	BrandUnknown    Brand = ""
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "master"
	BrandAmex       Brand = "amex"
	BrandElo        Brand = "elo"
	BrandHipercard  Brand = "hipercard"
)

// NormalizeCardNumber strips spaces and hyphens.
func NormalizeCardNumber(number string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
}

// ValidateCardNumber applies the length bounds and the Luhn checksum. It never panics.
func ValidateCardNumber(number string) bool {
	digits := NormalizeCardNumber(number)
	if len(digits) < MinCardNumberLength || len(digits) > MaxCardNumberLength {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// MaskCardNumber keeps only the last four digits.
func MaskCardNumber(number string) string {
	digits := NormalizeCardNumber(number)
	if len(digits) <= 4 {
		return "****"
	}
	return "****" + digits[len(digits)-4:]
}

var eloPrefixes = []string{
	"401178", "401179", "431274", "438935", "451416", "457393", "457631", "457632",
	"504175", "506699", "5067", "509", "627780", "636297", "636368", "650", "6516", "6550",
}

// DetectBrand guesses the card network from the BIN.
func DetectBrand(number string) Brand {
	digits := NormalizeCardNumber(number)
	if len(digits) < 4 {
		return BrandUnknown
	}

	for _, p := range eloPrefixes {
		if strings.HasPrefix(digits, p) {
			return BrandElo
		}
	}
	if strings.HasPrefix(digits, "606282") || strings.HasPrefix(digits, "3841") {
		return BrandHipercard
	}
	if strings.HasPrefix(digits, "34") || strings.HasPrefix(digits, "37") {
		return BrandAmex
	}
	if digits[0] == '4' {
		return BrandVisa
	}

	prefix2 := atoi(digits[:2])
	prefix4 := atoi(digits[:4])
	if (prefix2 >= 51 && prefix2 <= 55) || (prefix4 >= 2221 && prefix4 <= 2720) {
		return BrandMastercard
	}
	return BrandUnknown
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}
