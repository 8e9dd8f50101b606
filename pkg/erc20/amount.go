package erc20

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sigweihq/walletkit/pkg/constants"
)

var amountInput = regexp.MustCompile(fmt.Sprintf(`^\d+(\.\d{1,%d})?$`, constants.MaxAmountFractionDigits))

// IsValidAmountInput is the advisory check for a user typed amount.
// It rejects blank input, exponent notation, anything but a plain decimal with at
// most 30 fractional digits, and values that are not strictly positive.
func IsValidAmountInput(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	if strings.ContainsAny(value, "eE") {
		return false
	}
	if !amountInput.MatchString(value) {
		return false
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return d.IsPositive()
}
