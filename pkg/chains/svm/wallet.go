package svm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gagliardetto/solana-go"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/sigweihq/walletkit/pkg/utils"
)

// ApprovalFunc decides whether a connection request for account is granted
type ApprovalFunc func(ctx context.Context, account solana.PublicKey) bool

// ErrNotTrusted is returned by a trusted-only connect before the first approval
var ErrNotTrusted = &chains.ProviderError{Code: constants.UserRejectedCode, Message: "Wallet has not approved this application yet."}

// KeypairWallet implements chains.SolanaWallet over a local keypair.
// It behaves like an extension wallet: connections need approval once, after which
// trusted-only connects succeed silently.
type KeypairWallet struct {
	approve ApprovalFunc
	logger  *slog.Logger

	mu        sync.Mutex
	key       solana.PrivateKey
	trusted   bool
	connected bool

	accountFeed    event.FeedOf[*solana.PublicKey]
	disconnectFeed event.FeedOf[struct{}]
}

var _ chains.SolanaWallet = (*KeypairWallet)(nil)

// NewKeypairWallet creates a wallet for key. A nil approve grants every request.
func NewKeypairWallet(key solana.PrivateKey, approve ApprovalFunc, logger *slog.Logger) *KeypairWallet {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeypairWallet{
		key:     key,
		approve: approve,
		logger:  logger,
	}
}

// LoadKeypairWallet reads a solana-keygen JSON keypair file
func LoadKeypairWallet(path string, approve ApprovalFunc, logger *slog.Logger) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, err
	}
	return NewKeypairWallet(key, approve, logger), nil
}

// NewKeypairWalletFromHex creates a wallet from a hex seed or full private key
func NewKeypairWalletFromHex(privateKeyHex string, approve ApprovalFunc, logger *slog.Logger) (*KeypairWallet, error) {
	key, err := utils.ParseSolanaPrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return NewKeypairWallet(key, approve, logger), nil
}

// PublicKey returns the active account
func (w *KeypairWallet) PublicKey() solana.PublicKey {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.key.PublicKey()
}

// Connect implements chains.SolanaWallet
func (w *KeypairWallet) Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, error) {
	w.mu.Lock()
	account := w.key.PublicKey()
	trusted := w.trusted
	w.mu.Unlock()

	if !trusted {
		if onlyIfTrusted {
			return solana.PublicKey{}, ErrNotTrusted
		}
		if w.approve != nil && !w.approve(ctx, account) {
			w.logger.Info("Connection request rejected", "account", account.String())
			return solana.PublicKey{}, chains.ErrUserRejected
		}
	}

	w.mu.Lock()
	w.trusted = true
	w.connected = true
	w.mu.Unlock()

	return account, nil
}

// Disconnect implements chains.SolanaWallet. The application stays trusted.
func (w *KeypairWallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	return nil
}

// SwitchAccount replaces the active keypair and notifies a connected application
func (w *KeypairWallet) SwitchAccount(key solana.PrivateKey) {
	w.mu.Lock()
	w.key = key
	connected := w.connected
	w.mu.Unlock()

	if connected {
		account := key.PublicKey()
		w.accountFeed.Send(&account)
	}
}

// Lock disconnects from the wallet side, as when the user locks the extension
func (w *KeypairWallet) Lock() {
	w.mu.Lock()
	connected := w.connected
	w.connected = false
	w.mu.Unlock()

	if connected {
		w.disconnectFeed.Send(struct{}{})
	}
}

// DropAccount reports that the application no longer has an account, like
// switching to an account that never approved it
func (w *KeypairWallet) DropAccount() {
	w.mu.Lock()
	connected := w.connected
	w.mu.Unlock()

	if connected {
		w.accountFeed.Send(nil)
	}
}

// Revoke forgets the approval; the next connect needs approval again
func (w *KeypairWallet) Revoke() {
	w.mu.Lock()
	w.trusted = false
	w.mu.Unlock()
	w.Lock()
}

// SubscribeAccountChanged implements chains.SolanaWallet
func (w *KeypairWallet) SubscribeAccountChanged(ch chan<- *solana.PublicKey) event.Subscription {
	return w.accountFeed.Subscribe(ch)
}

// SubscribeDisconnect implements chains.SolanaWallet
func (w *KeypairWallet) SubscribeDisconnect(ch chan<- struct{}) event.Subscription {
	return w.disconnectFeed.Subscribe(ch)
}
