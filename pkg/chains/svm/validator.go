package svm

import "github.com/gagliardetto/solana-go"

// IsValidAddress reports whether s decodes to a 32-byte base58 public key
func IsValidAddress(s string) bool {
	_, err := solana.PublicKeyFromBase58(s)
	return err == nil
}

// AddressesEqual compares two addresses.
// Solana addresses are case-sensitive (base58 encoding).
func AddressesEqual(addr1, addr2 string) bool {
	return addr1 == addr2
}
