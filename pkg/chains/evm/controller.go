package evm

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/sigweihq/walletkit/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var errNoAccounts = errors.New("wallet returned no accounts")

// ErrWrongNetwork is reported for an account on a chain outside constants.SupportedNetworks
var ErrWrongNetwork = chains.NewError(chains.KindWrongNetwork, constants.WrongNetworkMessage)

// Controller owns the EVM connection state and mediates every call to the wallet.
//
// Each operation that changes state takes a sequence number when it starts and
// commits its result only if no newer operation has started since. Event
// handlers follow the same rule, so a slow connect can never overwrite a
// disconnect or chain switch that happened while it was in flight.
type Controller struct {
	provider chains.EthereumProvider
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
// A nil provider models a missing wallet: Connect reports StatusNotInstalled.
func NewController(provider chains.EthereumProvider, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		provider: provider,
		logger:   logger,
		state:    ConnectionState{Status: StatusIdle},
		done:     make(chan struct{}),
	}
}

// Start runs the passive bootstrap and begins reacting to wallet events.
// Already authorized accounts are loaded without passing through StatusConnecting.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		if c.provider == nil {
			close(c.done)
			return
		}

		accountsCh := make(chan []common.Address, 8)
		chainCh := make(chan *big.Int, 8)
		accountsSub := c.provider.SubscribeAccountsChanged(accountsCh)
		chainSub := c.provider.SubscribeChainChanged(chainCh)

		c.bootstrap(ctx)

		loopCtx, cancel := context.WithCancel(ctx)
		c.cancel = cancel
		go c.eventLoop(loopCtx, accountsSub, chainSub, accountsCh, chainCh)
	})
}

// Close stops reacting to wallet events
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.startOnce.Do(func() { close(c.done) })
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
	})
}

// Connect asks the wallet for account access and loads the account.
// Failures are captured in the returned state, never returned as errors.
func (c *Controller) Connect(ctx context.Context) ConnectionState {
	if c.provider == nil {
		c.mu.Lock()
		c.seq++
		c.state.Status = StatusNotInstalled
		c.state.Error = constants.MetaMaskNotDetectedMessage
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

	accounts, err := c.provider.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errNoAccounts
	}
	if err != nil {
		return c.commit(seq, failedState(err))
	}

	next, err := c.loadAccountData(ctx, accounts[0])
	if err != nil {
		return c.commit(seq, failedState(err))
	}

	if next.Status == StatusConnected {
		c.logger.Info("Wallet connected", "address", next.Address, "chainID", next.ChainID)
	} else {
		c.logger.Info("Wallet connected on unsupported network", "address", next.Address, "chainID", next.ChainID)
	}
	return c.commit(seq, next)
}

// Disconnect resets the local state to idle. Browser style wallets have no programmatic disconnect.
func (c *Controller) Disconnect() {
	c.reset()
	c.logger.Info("Wallet disconnected")
}

// RefreshBalance re-reads the native balance while connected.
// A failed refresh leaves the state untouched.
func (c *Controller) RefreshBalance(ctx context.Context) {
	c.mu.Lock()
	if c.state.Status != StatusConnected || c.provider == nil {
		c.mu.Unlock()
		return
	}
	seq := c.seq
	address := common.HexToAddress(c.state.Address)
	c.mu.Unlock()

	wei, err := c.provider.BalanceAt(ctx, address, nil)
	if err != nil {
		c.logger.Warn("Failed to refresh balance", "address", address.Hex(), "error", err)
		return
	}

	c.mu.Lock()
	if c.seq != seq || c.state.Status != StatusConnected {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale balance refresh", "address", address.Hex())
		return
	}
	c.state.Balance = utils.FormatUnits(wei, constants.EtherDecimals)
	c.mu.Unlock()
	c.publish()
}

// State returns the current connection snapshot
func (c *Controller) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Provider returns the wallet handle, nil when no wallet is installed
func (c *Controller) Provider() chains.EthereumProvider {
	return c.provider
}

// DisplayAddress returns the shortened address, or "" without one
func (c *Controller) DisplayAddress() string {
	return utils.ShortenAddress(c.State().Address, constants.EVMAddressPrefixLen, constants.EVMAddressSuffixLen)
}

// Subscribe delivers every committed state. The channel should be buffered;
// delivery blocks until every subscriber has received the state.
func (c *Controller) Subscribe(ch chan<- ConnectionState) event.Subscription {
	return c.feed.Subscribe(ch)
}

func (c *Controller) bootstrap(ctx context.Context) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		c.logger.Debug("Passive account lookup failed", "error", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	next, err := c.loadAccountData(ctx, accounts[0])
	if err != nil {
		c.logger.Warn("Failed to restore authorized account", "address", accounts[0].Hex(), "error", err)
		return
	}
	c.commit(seq, next)
}

func (c *Controller) eventLoop(
	ctx context.Context,
	accountsSub, chainSub event.Subscription,
	accountsCh <-chan []common.Address,
	chainCh <-chan *big.Int,
) {
	defer close(c.done)
	defer accountsSub.Unsubscribe()
	defer chainSub.Unsubscribe()

	for {
		select {
		case accounts := <-accountsCh:
			c.handleAccountsChanged(ctx, accounts)
		case chainID := <-chainCh:
			c.handleChainChanged(ctx, chainID)
		case err := <-accountsSub.Err():
			if err != nil {
				c.logger.Warn("Accounts subscription ended", "error", err)
			}
			return
		case err := <-chainSub.Err():
			if err != nil {
				c.logger.Warn("Chain subscription ended", "error", err)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) handleAccountsChanged(ctx context.Context, accounts []common.Address) {
	if len(accounts) == 0 {
		c.reset()
		c.logger.Info("Wallet reported no accounts")
		return
	}

	c.mu.Lock()
	if !c.state.Status.HasAccount() {
		c.mu.Unlock()
		c.logger.Debug("Ignoring account change without an active session", "address", accounts[0].Hex())
		return
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.reload(ctx, seq, accounts[0])
}

func (c *Controller) handleChainChanged(ctx context.Context, chainID *big.Int) {
	c.mu.Lock()
	if !c.state.Status.HasAccount() {
		c.mu.Unlock()
		c.logger.Debug("Ignoring chain change without an active session", "chainID", chainID)
		return
	}
	c.seq++
	seq := c.seq
	address := common.HexToAddress(c.state.Address)
	c.mu.Unlock()

	c.reload(ctx, seq, address)
}

// reload runs account loading through the network gate for an event
func (c *Controller) reload(ctx context.Context, seq uint64, address common.Address) {
	next, err := c.loadAccountData(ctx, address)
	if err != nil {
		c.logger.Warn("Failed to reload account", "address", address.Hex(), "error", err)
		c.commit(seq, failedState(err))
		return
	}
	c.commit(seq, next)
}

// loadAccountData reads chain id and balance in parallel and applies the network gate
func (c *Controller) loadAccountData(ctx context.Context, address common.Address) (ConnectionState, error) {
	var (
		chainID *big.Int
		wei     *big.Int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chainID, err = c.provider.ChainID(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		wei, err = c.provider.BalanceAt(gctx, address, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return ConnectionState{}, err
	}

	id := chainID.Int64()
	state := ConnectionState{
		Status:      StatusConnected,
		Address:     address.Hex(),
		ChainID:     id,
		NetworkName: networkName(id),
		Balance:     utils.FormatUnits(wei, constants.EtherDecimals),
	}
	if !constants.IsSupportedChain(id) {
		state.Status = StatusWrongNetwork
		state.Error = ErrWrongNetwork.Error()
	}
	return state, nil
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.seq++
	c.state = ConnectionState{Status: StatusIdle}
	c.mu.Unlock()
	c.publish()
}

// commit applies next if seq is still the latest operation and returns the resulting state
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
