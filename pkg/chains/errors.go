package chains

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sigweihq/walletkit/pkg/constants"
)

// ErrorKind is the closed taxonomy of wallet, form and transaction failures
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotInstalled
	KindUserRejected
	KindWrongNetwork
	KindInvalidAddress
	KindInvalidAmount
	KindInsufficientBalance
	KindRPCOrContract
	KindTransactionReverted
	KindNotConnected
	KindTokenNotLoaded
)

var kindNames = map[ErrorKind]string{
	KindNone:                "none",
	KindNotInstalled:        "not-installed",
	KindUserRejected:        "user-rejected",
	KindWrongNetwork:        "wrong-network",
	KindInvalidAddress:      "invalid-address",
	KindInvalidAmount:       "invalid-amount",
	KindInsufficientBalance: "insufficient-balance",
	KindRPCOrContract:       "rpc-or-contract",
	KindTransactionReverted: "transaction-reverted",
	KindNotConnected:        "not-connected",
	KindTokenNotLoaded:      "token-not-loaded",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure. Message is what the user sees.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates a classified error with a user facing message
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError classifies an underlying error under kind
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProviderError is a coded error as raised by a wallet (EIP-1193 ProviderRpcError shape).
// It satisfies rpc.Error so JSON-RPC servers forward the code unchanged.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// ErrorCode implements rpc.Error
func (e *ProviderError) ErrorCode() int {
	return e.Code
}

var _ rpc.Error = (*ProviderError)(nil)

// ErrUserRejected is what a wallet returns when the user declines a request
var ErrUserRejected = &ProviderError{Code: constants.UserRejectedCode, Message: "User rejected the request."}

// Classify maps a raw boundary error to its ErrorKind
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}

	var coded rpc.Error
	if errors.As(err, &coded) && coded.ErrorCode() == constants.UserRejectedCode {
		return KindUserRejected
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "user rejected") ||
		strings.Contains(errStr, "user denied") {
		return KindUserRejected
	}

	return KindRPCOrContract
}

// IsKind reports whether err classifies as kind
func IsKind(err error, kind ErrorKind) bool {
	return Classify(err) == kind
}
