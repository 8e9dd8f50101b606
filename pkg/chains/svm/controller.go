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

// Controller owns the Solana connection state.
// Results of async operations are applied only if no newer operation started meanwhile.
type Controller struct {
	wallet   chains.SolanaWallet
	balances chains.BalanceFetcher
	logger   *slog.Logger

	mu    sync.Mutex
	state ConnectionState
	seq   uint64

	pubMu sync.Mutex
	feed  event.FeedOf[ConnectionState]

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewController creates a controller in the idle state.
// A nil wallet models a missing extension.
func NewController(wallet chains.SolanaWallet, balances chains.BalanceFetcher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		wallet:   wallet,
		balances: balances,
		logger:   logger,
		state:    ConnectionState{Status: StatusIdle},
		done:     make(chan struct{}),
	}
}

// Start subscribes to wallet notifications until Close
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		if c.wallet == nil {
			close(c.done)
			return
		}

		accountCh := make(chan *solana.PublicKey, 8)
		disconnectCh := make(chan struct{}, 8)
		accountSub := c.wallet.SubscribeAccountChanged(accountCh)
		disconnectSub := c.wallet.SubscribeDisconnect(disconnectCh)

		loopCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		go c.eventLoop(loopCtx, accountSub, disconnectSub, accountCh, disconnectCh)
	})
}

// Close stops reacting to wallet notifications
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.startOnce.Do(func() { close(c.done) })
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
	})
}

// Connect requests a connection, prompting if needed, and loads the balance
func (c *Controller) Connect(ctx context.Context) ConnectionState {
	if c.wallet == nil {
		c.mu.Lock()
		c.seq++
		c.state = ConnectionState{Status: StatusNotInstalled, Error: constants.PhantomNotDetectedMessage}
		c.mu.Unlock()
		c.publish()
		return c.State()
	}

	c.mu.Lock()
	if c.state.Status == StatusConnecting {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.seq++
	seq := c.seq
	c.state = ConnectionState{Status: StatusConnecting}
	c.mu.Unlock()
	c.publish()

	next, err := c.load(ctx, false)
	if err != nil {
		return c.commit(seq, failedState(err))
	}

	c.logger.Info("Solana wallet connected", "address", next.Address, "network", next.NetworkName)
	return c.commit(seq, next)
}

// ConnectIfTrusted connects without prompting when the wallet already trusts this application.
// When it does not, the state is left untouched.
func (c *Controller) ConnectIfTrusted(ctx context.Context) ConnectionState {
	if c.wallet == nil {
		return c.State()
	}

	c.mu.Lock()
	if c.state.Status != StatusIdle {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	next, err := c.load(ctx, true)
	if err != nil {
		c.logger.Debug("Trusted connect skipped", "error", err)
		return c.State()
	}
	return c.commit(seq, next)
}

// Disconnect asks the wallet to disconnect and always ends idle, whatever the wallet answers
func (c *Controller) Disconnect(ctx context.Context) {
	if c.wallet != nil {
		if err := c.wallet.Disconnect(ctx); err != nil {
			c.logger.Warn("Wallet disconnect failed", "error", err)
		}
	}
	c.reset()
	c.logger.Info("Solana wallet disconnected")
}

// RefreshBalance re-reads the lamport balance while connected.
// A failed refresh leaves the state untouched.
func (c *Controller) RefreshBalance(ctx context.Context) {
	c.mu.Lock()
	if c.state.Status != StatusConnected || c.state.Address == "" {
		c.mu.Unlock()
		return
	}
	seq := c.seq
	address := c.state.Address
	c.mu.Unlock()

	if !IsValidAddress(address) {
		c.logger.Warn("Stored address is not a public key", "address", address)
		return
	}

	lamports, err := c.balances.GetBalance(ctx, solana.MustPublicKeyFromBase58(address))
	if err != nil {
		c.logger.Warn("Failed to refresh SOL balance", "address", address, "error", err)
		return
	}

	c.mu.Lock()
	if c.seq != seq || !AddressesEqual(c.state.Address, address) {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale balance refresh", "address", address)
		return
	}
	c.state.Balance = utils.LamportsToSOL(lamports)
	c.mu.Unlock()
	c.publish()
}

// State returns the current connection snapshot
func (c *Controller) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DisplayAddress returns the shortened address, or "" without one
func (c *Controller) DisplayAddress() string {
	return utils.ShortenAddress(c.State().Address, constants.SolanaAddressPrefixLen, constants.SolanaAddressSuffixLen)
}

// Subscribe delivers every committed state. The channel should be buffered.
func (c *Controller) Subscribe(ch chan<- ConnectionState) event.Subscription {
	return c.feed.Subscribe(ch)
}

func (c *Controller) load(ctx context.Context, onlyIfTrusted bool) (ConnectionState, error) {
	account, err := c.wallet.Connect(ctx, onlyIfTrusted)
	if err != nil {
		return ConnectionState{}, err
	}

	lamports, err := c.balances.GetBalance(ctx, account)
	if err != nil {
		return ConnectionState{}, err
	}

	return ConnectionState{
		Status:      StatusConnected,
		Address:     account.String(),
		Balance:     utils.LamportsToSOL(lamports),
		NetworkName: constants.SolanaNetworkName,
	}, nil
}

func (c *Controller) eventLoop(
	ctx context.Context,
	accountSub, disconnectSub event.Subscription,
	accountCh <-chan *solana.PublicKey,
	disconnectCh <-chan struct{},
) {
	defer close(c.done)
	defer accountSub.Unsubscribe()
	defer disconnectSub.Unsubscribe()

	for {
		select {
		case account := <-accountCh:
			c.handleAccountChanged(ctx, account)
		case <-disconnectCh:
			c.reset()
			c.logger.Info("Solana wallet reported disconnect")
		case err := <-accountSub.Err():
			if err != nil {
				c.logger.Warn("Account subscription ended", "error", err)
			}
			return
		case err := <-disconnectSub.Err():
			if err != nil {
				c.logger.Warn("Disconnect subscription ended", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleAccountChanged switches to the new account at once and then loads its balance
func (c *Controller) handleAccountChanged(ctx context.Context, account *solana.PublicKey) {
	if account == nil {
		c.reset()
		c.logger.Info("Solana wallet dropped the account")
		return
	}

	c.mu.Lock()
	c.seq++
	c.state = ConnectionState{
		Status:      StatusConnected,
		Address:     account.String(),
		NetworkName: constants.SolanaNetworkName,
	}
	c.mu.Unlock()
	c.publish()

	c.RefreshBalance(ctx)
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.seq++
	c.state = ConnectionState{Status: StatusIdle}
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) commit(seq uint64, next ConnectionState) ConnectionState {
	c.mu.Lock()
	if seq != c.seq {
		current := c.state
		c.mu.Unlock()
		c.logger.Debug("Discarding stale connection result", "status", next.Status, "current", current.Status)
		return current
	}
	c.state = next
	c.mu.Unlock()
	c.publish()
	return next
}

func (c *Controller) publish() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.feed.Send(c.State())
}

func failedState(err error) ConnectionState {
	status := StatusError
	if chains.Classify(err) == chains.KindUserRejected {
		status = StatusRejected
	}
	return ConnectionState{Status: status, Error: err.Error()}
}
