package utils

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/sigweihq/walletkit/pkg/constants"
)

// ParseSolanaPrivateKey parses a hex encoded Solana private key.
// Both the 32-byte seed and the full 64-byte key are accepted.
func ParseSolanaPrivateKey(privateKeyHex string) (solana.PrivateKey, error) {
	// Remove 0x prefix if present
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKeyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	switch len(privateKeyBytes) {
	case ed25519.SeedSize:
		return solana.PrivateKey(ed25519.NewKeyFromSeed(privateKeyBytes)), nil
	case ed25519.PrivateKeySize:
		return solana.PrivateKey(privateKeyBytes), nil
	default:
		return nil, fmt.Errorf("invalid private key length: %d (expected 32 or 64 bytes)", len(privateKeyBytes))
	}
}

// DeriveSolanaAddress derives a Solana address from a hex private key
func DeriveSolanaAddress(privateKeyHex string) (string, error) {
	privateKey, err := ParseSolanaPrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	return privateKey.PublicKey().String(), nil
}

// GenerateSolanaKeypair generates a new Solana keypair and returns its hex seed
func GenerateSolanaKeypair() (privateKeyHex, address string, err error) {
	account := solana.NewWallet()

	// PrivateKey is 64 bytes, first 32 bytes are the seed
	seed := account.PrivateKey[:ed25519.SeedSize]
	privateKeyHex = "0x" + hex.EncodeToString(seed)
	address = account.PublicKey().String()

	return privateKeyHex, address, nil
}

// LamportsToSOL formats a lamport balance as SOL with the fixed display precision
func LamportsToSOL(lamports uint64) string {
	return FormatFixed(new(big.Int).SetUint64(lamports), constants.SolDecimals, constants.SolBalancePlaces)
}
