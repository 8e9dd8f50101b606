package evm

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	checksummed := common.HexToAddress("0x71c7656ec7ab88b098defb751b7401b5f6d8976f").Hex()
	badChecksum := "0x" + strings.ToLower(checksummed[2:22]) + strings.ToUpper(checksummed[22:])
	if badChecksum == checksummed {
		badChecksum = "0x" + strings.ToUpper(checksummed[2:22]) + strings.ToLower(checksummed[22:])
	}

	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"checksummed", checksummed, true},
		{"lower case", "0x71c7656ec7ab88b098defb751b7401b5f6d8976f", true},
		{"upper case body", "0x71C7656EC7AB88B098DEFB751B7401B5F6D8976F", true},
		{"bad checksum", badChecksum, false},
		{"too short", "0x71C7656EC7ab88b098defB751B7401B5f6d897", false},
		{"not hex", "0xZZC7656EC7ab88b098defB751B7401B5f6d8976F", false},
		{"empty", "", false},
		{"solana key", "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidAddress(tt.address))
		})
	}
}

func TestAddressesEqual(t *testing.T) {
	assert.True(t, AddressesEqual("0x71C7656EC7ab88b098defB751B7401B5f6d8976F", "0x71c7656ec7ab88b098defb751b7401b5f6d8976f"))
	assert.False(t, AddressesEqual("0x71C7656EC7ab88b098defB751B7401B5f6d8976F", "0x1111111111111111111111111111111111111111"))
}
