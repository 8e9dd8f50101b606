package transfer

import (
	"math/big"

	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/chains/evm"
	"github.com/sigweihq/walletkit/pkg/erc20"
	"github.com/sigweihq/walletkit/pkg/utils"
)

// Validation messages, in the order the checks run
const (
	NotConnectedMessage        = "Connect your wallet first."
	NoProviderMessage          = "MetaMask is not detected."
	InvalidTokenMessage        = "Enter a valid token contract address."
	InvalidRecipientMessage    = "Enter a valid recipient address."
	TokenNotLoadedMessage      = "Token metadata not loaded yet."
	InvalidAmountMessage       = "Enter a valid amount greater than zero."
	TooManyDecimalsMessage     = "Amount has more decimal places than the token supports."
	NonPositiveAmountMessage   = "Amount must be greater than zero."
	InsufficientBalanceMessage = "Insufficient token balance."
)

// validate runs the ordered pre-submission checks and returns the amount in the
// token's smallest unit. It makes no network calls.
func validate(form FormState, wallet evm.ConnectionState, provider chains.EthereumProvider) (*big.Int, error) {
	if !wallet.IsConnected() {
		return nil, chains.NewError(chains.KindNotConnected, NotConnectedMessage)
	}
	if provider == nil {
		return nil, chains.NewError(chains.KindNotInstalled, NoProviderMessage)
	}
	if !evm.IsValidAddress(form.TokenAddress) {
		return nil, chains.NewError(chains.KindInvalidAddress, InvalidTokenMessage)
	}
	if !evm.IsValidAddress(form.Recipient) {
		return nil, chains.NewError(chains.KindInvalidAddress, InvalidRecipientMessage)
	}
	if form.TokenMeta == nil {
		return nil, chains.NewError(chains.KindTokenNotLoaded, TokenNotLoadedMessage)
	}
	if !erc20.IsValidAmountInput(form.Amount) {
		return nil, chains.NewError(chains.KindInvalidAmount, InvalidAmountMessage)
	}

	amount, err := utils.ParseUnits(form.Amount, form.TokenMeta.Decimals)
	if err != nil {
		return nil, chains.WrapError(chains.KindInvalidAmount, TooManyDecimalsMessage, err)
	}
	if amount.Sign() <= 0 {
		return nil, chains.NewError(chains.KindInvalidAmount, NonPositiveAmountMessage)
	}

	balance := form.BalanceRaw
	if balance == nil {
		balance = new(big.Int)
	}
	if amount.Cmp(balance) > 0 {
		return nil, chains.NewError(chains.KindInsufficientBalance, InsufficientBalanceMessage)
	}
	return amount, nil
}
