package utils

import (
	"fmt"
	"strings"

	"github.com/sigweihq/walletkit/pkg/constants"
)

// ValidateProviderURL validates that a wallet or RPC endpoint URL is secure
// Returns error if URL doesn't use HTTPS (except for localhost/127.0.0.1 for testing)
func ValidateProviderURL(url string) error {
	if !strings.HasPrefix(url, "https://") {
		// Allow http://localhost and http://127.0.0.1 for testing
		if strings.HasPrefix(url, "http://localhost") ||
			strings.HasPrefix(url, "http://127.0.0.1") ||
			strings.HasPrefix(url, "http://[::1]") {
			return nil
		}
		return fmt.Errorf("provider URL must use HTTPS: %s", url)
	}
	return nil
}

// ExplorerTxLink builds a block explorer link for txHash.
// Unknown or zero chain ids fall back to the default explorer.
func ExplorerTxLink(chainID int64, txHash string) string {
	base, ok := constants.ExplorerTxURLs[chainID]
	if !ok {
		base = constants.ExplorerDefaultTxURL
	}
	return base + txHash
}

// ShortenAddress keeps the first prefixLen and last suffixLen characters of address.
// Returns "" for an empty address and the address itself when it is already short.
func ShortenAddress(address string, prefixLen, suffixLen int) string {
	if address == "" {
		return ""
	}
	if len(address) <= prefixLen+suffixLen {
		return address
	}
	return address[:prefixLen] + constants.AddressEllipsis + address[len(address)-suffixLen:]
}
