package transfer

import (
	"errors"
	"strings"

	"github.com/sigweihq/walletkit/pkg/chains"
)

var (
	// ErrSubmissionInProgress is returned by Submit while a transfer is awaiting or pending
	ErrSubmissionInProgress = errors.New("a transfer is already in progress")
	// ErrResetRequired is returned by Submit after a finished transfer until Reset is called
	ErrResetRequired = errors.New("reset the form before submitting again")
)

// Normalised transaction error messages
const (
	UserRejectedMessage          = "User rejected the request."
	InsufficientGasFundsMessage  = "Insufficient ETH to cover gas."
	InsufficientAllowanceMessage = "Insufficient allowance."
	ExecutionRevertedMessage     = "Contract call reverted."
	TransactionFailedMessage     = "Transaction failed."
)

var txErrorRules = []struct {
	substrings []string
	message    string
}{
	{[]string{"user rejected", "user denied"}, UserRejectedMessage},
	{[]string{"insufficient funds"}, InsufficientGasFundsMessage},
	{[]string{"insufficient allowance"}, InsufficientAllowanceMessage},
	{[]string{"execution reverted"}, ExecutionRevertedMessage},
}

// NormalizeTxError maps a submission or confirmation failure to a user facing message.
// Unknown failures surface their raw message.
func NormalizeTxError(err error) string {
	if err == nil {
		return ""
	}
	if chains.Classify(err) == chains.KindUserRejected {
		return UserRejectedMessage
	}

	message := err.Error()
	if strings.TrimSpace(message) == "" {
		return TransactionFailedMessage
	}

	lower := strings.ToLower(message)
	for _, rule := range txErrorRules {
		for _, s := range rule.substrings {
			if strings.Contains(lower, s) {
				return rule.message
			}
		}
	}
	return message
}
