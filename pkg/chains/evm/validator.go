package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether s is a 20-byte hex address.
// Mixed case input must also carry a correct EIP-55 checksum; all lower or all upper case skips the check.
func IsValidAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}

	body := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}

	return "0x"+body == common.HexToAddress(s).Hex()
}

// AddressesEqual compares two addresses ignoring EIP-55 case
func AddressesEqual(addr1, addr2 string) bool {
	return strings.EqualFold(addr1, addr2)
}
