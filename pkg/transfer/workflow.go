package transfer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/chains/evm"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/sigweihq/walletkit/pkg/erc20"
	"github.com/sigweihq/walletkit/pkg/utils"
)

// WalletSource is the EVM connection a workflow transfers from. *evm.Controller implements it.
type WalletSource interface {
	State() evm.ConnectionState
	Provider() chains.EthereumProvider
	Subscribe(ch chan<- evm.ConnectionState) event.Subscription
}

// TokenClient reads and transfers ERC-20 tokens. *erc20.Client implements it.
type TokenClient interface {
	GetTokenMeta(ctx context.Context, caller ethereum.ContractCaller, tokenAddress string) (*erc20.TokenMeta, error)
	GetTokenBalance(ctx context.Context, caller ethereum.ContractCaller, tokenAddress, owner string, decimals uint8) (*erc20.Balance, error)
	TransferToken(ctx context.Context, sender chains.TransactionSender, from common.Address, tokenAddress, to, amountHuman string, decimals uint8) (common.Hash, error)
}

var (
	_ WalletSource = (*evm.Controller)(nil)
	_ TokenClient  = (*erc20.Client)(nil)
)

// Config tunes confirmation waiting
type Config struct {
	ReceiptPollInterval time.Duration
	ConfirmationTimeout time.Duration // zero waits until the submit context is done
}

// DefaultConfig returns the polling defaults
func DefaultConfig() Config {
	return Config{ReceiptPollInterval: constants.ReceiptPollInterval}
}

// account identifies whose token data is loaded
type account struct {
	address string
	chainID int64
}

// same reports whether b is this account on this chain; address case is ignored
func (a account) same(b account) bool {
	return a.chainID == b.chainID && evm.AddressesEqual(a.address, b.address)
}

// Workflow drives the ERC-20 transfer form: token loading, validation, submission and confirmation
type Workflow struct {
	wallet WalletSource
	tokens TokenClient
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	form    FormState
	owner   account
	loadSeq uint64 // bumped whenever token data is cleared
	txSeq   uint64 // bumped by Reset to orphan an in-flight submission

	pubMu sync.Mutex
	feed  event.FeedOf[FormState]

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWorkflow creates an empty form bound to wallet
func NewWorkflow(wallet WalletSource, tokens TokenClient, config Config, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if config.ReceiptPollInterval <= 0 {
		config.ReceiptPollInterval = constants.ReceiptPollInterval
	}
	state := wallet.State()
	return &Workflow{
		wallet: wallet,
		tokens: tokens,
		config: config,
		logger: logger,
		form:   FormState{Phase: PhaseIdle},
		owner:  account{address: state.Address, chainID: state.ChainID},
		done:   make(chan struct{}),
	}
}

// Start follows wallet state changes until Close
func (w *Workflow) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		updates := make(chan evm.ConnectionState, 16)
		sub := w.wallet.Subscribe(updates)

		loopCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		go w.watchWallet(loopCtx, sub, updates)
	})
}

// Close stops following the wallet
func (w *Workflow) Close() {
	w.closeOnce.Do(func() {
		w.startOnce.Do(func() { close(w.done) })
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
	})
}

// SetTokenAddress sets the token field, clears the data loaded for the previous token
// and loads metadata and balance for the new one when it is a valid address.
// A load overtaken by a newer change is discarded.
func (w *Workflow) SetTokenAddress(ctx context.Context, address string) {
	w.mu.Lock()
	w.form.TokenAddress = address
	w.form.clearToken()
	w.form.FormError = ""
	w.loadSeq++
	seq := w.loadSeq
	w.mu.Unlock()
	w.publish()

	w.loadToken(ctx, seq)
}

// SetRecipient sets the recipient field
func (w *Workflow) SetRecipient(recipient string) {
	w.mu.Lock()
	w.form.Recipient = recipient
	w.mu.Unlock()
	w.publish()
}

// SetAmount sets the amount field
func (w *Workflow) SetAmount(amount string) {
	w.mu.Lock()
	w.form.Amount = amount
	w.mu.Unlock()
	w.publish()
}

// SetMax fills the amount with the whole loaded balance
func (w *Workflow) SetMax() {
	w.mu.Lock()
	if w.form.BalanceFormatted == "" {
		w.mu.Unlock()
		return
	}
	w.form.Amount = w.form.BalanceFormatted
	w.mu.Unlock()
	w.publish()
}

// HandleWalletChange clears token data when the account or chain changed and reloads it for the new one
func (w *Workflow) HandleWalletChange(ctx context.Context, state evm.ConnectionState) {
	next := account{address: state.Address, chainID: state.ChainID}

	w.mu.Lock()
	if next.same(w.owner) {
		w.mu.Unlock()
		return
	}
	w.owner = next
	w.form.clearToken()
	w.loadSeq++
	seq := w.loadSeq
	w.mu.Unlock()
	w.publish()

	w.logger.Debug("Wallet changed, reloading token data", "address", state.Address, "chainID", state.ChainID)
	w.loadToken(ctx, seq)
}

// Submit validates the form and, when every check passes, transfers the tokens and waits for inclusion.
// Validation failures are returned as *chains.Error and leave the phase idle.
func (w *Workflow) Submit(ctx context.Context) error {
	wallet := w.wallet.State()
	provider := w.wallet.Provider()

	w.mu.Lock()
	switch {
	case w.form.Phase.Busy():
		w.mu.Unlock()
		return ErrSubmissionInProgress
	case w.form.Phase.Done():
		w.mu.Unlock()
		return ErrResetRequired
	}

	w.form.FormError = ""
	w.form.TxError = ""
	amount, err := validate(w.form, wallet, provider)
	if err != nil {
		w.form.FormError = formMessage(err)
		w.mu.Unlock()
		w.publish()
		return err
	}

	form := w.form.clone()
	txSeq := w.txSeq
	loadSeq := w.loadSeq
	w.form.Phase = PhaseAwaiting
	w.mu.Unlock()
	w.publish()

	w.logger.Info("Submitting token transfer",
		"token", form.TokenAddress,
		"to", form.Recipient,
		"amount", amount.String(),
		"symbol", form.TokenMeta.Symbol)

	from := common.HexToAddress(wallet.Address)
	hash, err := w.tokens.TransferToken(ctx, provider, from, form.TokenAddress, form.Recipient, form.Amount, form.TokenMeta.Decimals)
	if err != nil {
		return w.fail(txSeq, err, NormalizeTxError(err))
	}

	if !w.updateTx(txSeq, func(f *FormState) {
		f.Phase = PhasePending
		f.TxHash = hash.Hex()
	}) {
		w.logger.Debug("Form reset during submission", "txHash", hash.Hex())
		return nil
	}

	waitCtx := ctx
	if w.config.ConfirmationTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, w.config.ConfirmationTimeout)
		defer cancel()
	}

	receipt, err := evm.WaitMined(waitCtx, provider, hash, w.config.ReceiptPollInterval, w.logger)
	if err != nil {
		return w.fail(txSeq, err, NormalizeTxError(err))
	}
	if !evm.IsSuccessful(receipt) {
		reverted := chains.NewError(chains.KindTransactionReverted, constants.TransactionRevertedMessage)
		return w.fail(txSeq, reverted, reverted.Message)
	}

	w.updateTx(txSeq, func(f *FormState) { f.Phase = PhaseSuccess })
	w.logger.Info("Token transfer confirmed", "txHash", hash.Hex(), "block", receipt.BlockNumber)

	w.reloadBalance(ctx, provider, loadSeq, form.TokenAddress, wallet.Address, form.TokenMeta.Decimals)
	return nil
}

// Reset clears every form field and returns to idle
func (w *Workflow) Reset() {
	w.mu.Lock()
	w.form = FormState{Phase: PhaseIdle}
	w.loadSeq++
	w.txSeq++
	w.mu.Unlock()
	w.publish()
}

// ExplorerURL links the submitted transaction on the block explorer of the wallet's chain, or "" before submission
func (w *Workflow) ExplorerURL() string {
	w.mu.Lock()
	hash := w.form.TxHash
	w.mu.Unlock()

	if hash == "" {
		return ""
	}
	return utils.ExplorerTxLink(w.wallet.State().ChainID, hash)
}

// State returns the current form snapshot
func (w *Workflow) State() FormState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.clone()
}

// Subscribe delivers every form change. The channel should be buffered.
func (w *Workflow) Subscribe(ch chan<- FormState) event.Subscription {
	return w.feed.Subscribe(ch)
}

func (w *Workflow) watchWallet(ctx context.Context, sub event.Subscription, updates <-chan evm.ConnectionState) {
	defer close(w.done)
	defer sub.Unsubscribe()

	for {
		select {
		case state := <-updates:
			w.HandleWalletChange(ctx, state)
		case err := <-sub.Err():
			if err != nil {
				w.logger.Warn("Wallet subscription ended", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Workflow) loadToken(ctx context.Context, seq uint64) {
	wallet := w.wallet.State()
	provider := w.wallet.Provider()

	w.mu.Lock()
	token := w.form.TokenAddress
	w.mu.Unlock()

	if provider == nil || !wallet.Status.HasAccount() || !evm.IsValidAddress(token) {
		return
	}
	if !w.update(seq, func(f *FormState) { f.LoadingToken = true }) {
		return
	}

	meta, balance, err := w.fetchToken(ctx, provider, token, wallet.Address)
	applied := w.update(seq, func(f *FormState) {
		f.LoadingToken = false
		if err != nil {
			f.FormError = err.Error()
			return
		}
		f.TokenMeta = meta
		f.BalanceRaw = balance.Raw
		f.BalanceFormatted = balance.Formatted
	})
	if !applied {
		w.logger.Debug("Discarding stale token data", "token", token)
		return
	}
	if err != nil {
		w.logger.Warn("Failed to load token data", "token", token, "error", err)
	}
}

func (w *Workflow) fetchToken(ctx context.Context, caller ethereum.ContractCaller, token, owner string) (*erc20.TokenMeta, *erc20.Balance, error) {
	meta, err := w.tokens.GetTokenMeta(ctx, caller, token)
	if err != nil {
		return nil, nil, err
	}
	balance, err := w.tokens.GetTokenBalance(ctx, caller, token, owner, meta.Decimals)
	if err != nil {
		return nil, nil, err
	}
	return meta, balance, nil
}

func (w *Workflow) reloadBalance(ctx context.Context, caller ethereum.ContractCaller, seq uint64, token, owner string, decimals uint8) {
	balance, err := w.tokens.GetTokenBalance(ctx, caller, token, owner, decimals)
	if err != nil {
		w.logger.Warn("Failed to reload token balance after transfer", "token", token, "error", err)
		return
	}
	w.update(seq, func(f *FormState) {
		f.BalanceRaw = balance.Raw
		f.BalanceFormatted = balance.Formatted
	})
}

func (w *Workflow) fail(txSeq uint64, err error, message string) error {
	w.updateTx(txSeq, func(f *FormState) {
		f.Phase = PhaseFailed
		f.TxError = message
	})
	w.logger.Warn("Token transfer failed", "error", err)
	return err
}

// update applies fn unless the token data was cleared since seq was taken
func (w *Workflow) update(seq uint64, fn func(*FormState)) bool {
	w.mu.Lock()
	if seq != w.loadSeq {
		w.mu.Unlock()
		return false
	}
	fn(&w.form)
	w.mu.Unlock()
	w.publish()
	return true
}

// updateTx applies fn unless the form was reset since txSeq was taken
func (w *Workflow) updateTx(txSeq uint64, fn func(*FormState)) bool {
	w.mu.Lock()
	if txSeq != w.txSeq {
		w.mu.Unlock()
		return false
	}
	fn(&w.form)
	w.mu.Unlock()
	w.publish()
	return true
}

func (w *Workflow) publish() {
	w.pubMu.Lock()
	defer w.pubMu.Unlock()
	w.feed.Send(w.State())
}

func formMessage(err error) string {
	var kindErr *chains.Error
	if errors.As(err, &kindErr) && kindErr.Message != "" {
		return kindErr.Message
	}
	return err.Error()
}
