package shared

import (
	"errors"
	"strings"
)

var ErrInvalidCurrency = errors.New("invalid currency")

// supportedCurrencies are the codes wallets can be opened in
var supportedCurrencies = []string{"USD", "NGN", "GHS", "KES", "UGX", "TZS", "XOF", "XAF"}

// SupportedCurrencies returns a copy of the recognized currency codes
func SupportedCurrencies() []string {
	out := make([]string, len(supportedCurrencies))
	copy(out, supportedCurrencies)
	return out
}

// IsSupportedCurrency reports whether code is a recognized 3-letter currency code
func IsSupportedCurrency(code string) bool {
	for _, c := range supportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// NormalizeCurrency upper-cases code and checks it is supported
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !IsSupportedCurrency(c) {
		return "", ErrInvalidCurrency
	}
	return c, nil
}
