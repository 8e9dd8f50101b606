package chains

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockError is a plain error carrying only a message, like a wallet's untyped rejection
type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// codedError carries a code without being a ProviderError
type codedError struct {
	code int
	msg  string
}

func (e *codedError) Error() string  { return e.msg }
func (e *codedError) ErrorCode() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: KindNone,
		},
		{
			name:     "provider rejection code",
			err:      &ProviderError{Code: 4001, Message: "nope"},
			expected: KindUserRejected,
		},
		{
			name:     "wrapped provider rejection code",
			err:      fmt.Errorf("eth_requestAccounts: %w", ErrUserRejected),
			expected: KindUserRejected,
		},
		{
			name:     "foreign coded error with rejection code",
			err:      &codedError{code: 4001, msg: "request denied"},
			expected: KindUserRejected,
		},
		{
			name:     "other provider code",
			err:      &ProviderError{Code: -32603, Message: "internal error"},
			expected: KindRPCOrContract,
		},
		{
			name:     "user rejected message",
			err:      &mockError{message: "MetaMask Tx Signature: User rejected the transaction."},
			expected: KindUserRejected,
		},
		{
			name:     "user denied message",
			err:      &mockError{message: "User denied account authorization"},
			expected: KindUserRejected,
		},
		{
			name:     "classified error keeps its kind",
			err:      NewError(KindInvalidAddress, "Enter a valid recipient address."),
			expected: KindInvalidAddress,
		},
		{
			name:     "wrapped classified error keeps its kind",
			err:      fmt.Errorf("submit: %w", NewError(KindInsufficientBalance, "Insufficient token balance.")),
			expected: KindInsufficientBalance,
		},
		{
			name:     "network failure",
			err:      errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
			expected: KindRPCOrContract,
		},
		{
			name:     "execution reverted",
			err:      &mockError{message: "execution reverted"},
			expected: KindRPCOrContract,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(ErrUserRejected, KindUserRejected))
	assert.False(t, IsKind(errors.New("boom"), KindUserRejected))
	assert.True(t, IsKind(nil, KindNone))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("no contract code at given address")

	assert.Equal(t, "Token metadata not loaded yet.", NewError(KindTokenNotLoaded, "Token metadata not loaded yet.").Error())
	assert.Equal(t, "read token metadata: no contract code at given address",
		WrapError(KindRPCOrContract, "read token metadata", cause).Error())
	assert.Equal(t, cause.Error(), WrapError(KindRPCOrContract, "", cause).Error())
	assert.ErrorIs(t, WrapError(KindRPCOrContract, "read", cause), cause)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "user-rejected", KindUserRejected.String())
	assert.Equal(t, "transaction-reverted", KindTransactionReverted.String())
	assert.Equal(t, "kind(99)", ErrorKind(99).String())
}
