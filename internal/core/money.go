package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts stay within what a float64 can hold so every stored value renders
// to a short string.
const (
	maxAmountDigits   = 32
	maxAmountExponent = 308
)

// ErrAmountRange marks amounts CheckAmount refuses.
var ErrAmountRange = fmt.Errorf("%w: amount out of range", ErrBadInput)

// ParseAmount converts a decimal string into an amount. Signs are kept as
// given; out-of-range values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrBadInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not numeric", ErrBadInput, s)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseLocalAmount is ParseAmount that also takes a lone comma as the
// decimal separator ("12,34"), for hand-typed input.
func ParseLocalAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	return ParseAmount(s)
}

// CheckAmount rejects amounts with more than 32 significant digits or a
// magnitude outside 1e-308..1e308. It never renders d.
func CheckAmount(d decimal.Decimal) error {
	exp := int(d.Exponent())
	coef := d.Coefficient()
	digits := len(coef.Abs(coef).String())

	if digits > maxAmountDigits {
		return fmt.Errorf("%w: more than %d significant digits", ErrAmountRange, maxAmountDigits)
	}
	if exp > maxAmountExponent || exp < -(maxAmountExponent+maxAmountDigits) {
		return ErrAmountRange
	}
	if coef.Sign() != 0 {
		if mag := exp + digits - 1; mag > maxAmountExponent || mag < -maxAmountExponent {
			return ErrAmountRange
		}
	}
	return nil
}

// FormatAmount renders an amount the way it is written to the ledger file.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
