package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var plainDecimal = regexp.MustCompile(`^\d+(\.\d+)?$`)

// FormatUnits renders a smallest-unit integer as a decimal string with decimals fractional places.
// Whole values keep a trailing ".0" (1000000 with 6 decimals is "1.0").
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		raw = new(big.Int)
	}
	s := decimal.NewFromBigInt(raw, -int32(decimals)).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseUnits converts a plain non-negative decimal string to its smallest-unit integer.
// It rejects signs, exponents and more significant fractional digits than decimals allows.
// Trailing zeros past that precision are accepted, so "42.0" parses with 0 decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if !plainDecimal.MatchString(amount) {
		return nil, fmt.Errorf("invalid decimal amount: %q", amount)
	}

	if dot := strings.IndexByte(amount, '.'); dot >= 0 {
		if fraction := amount[dot+1:]; len(fraction) > int(decimals) {
			if strings.TrimRight(fraction[decimals:], "0") != "" {
				return nil, fmt.Errorf("too many decimal places: %d > %d", len(fraction), decimals)
			}
		}
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal amount %q: %w", amount, err)
	}

	return d.Shift(int32(decimals)).BigInt(), nil
}

// FormatFixed renders a smallest-unit integer with exactly places fractional digits, rounding half up
func FormatFixed(raw *big.Int, decimals uint8, places int32) string {
	if raw == nil {
		raw = new(big.Int)
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).StringFixed(places)
}
