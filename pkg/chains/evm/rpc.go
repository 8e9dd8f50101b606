package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/sigweihq/walletkit/pkg/utils"
)

// ProviderConfig controls the account/chain watcher of a JSON-RPC wallet
type ProviderConfig struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// DefaultProviderConfig returns the watcher defaults
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		PollInterval:   constants.ProviderPollInterval,
		RequestTimeout: constants.ProviderRequestTimeout,
	}
}

// Provider implements chains.EthereumProvider for a wallet reachable over JSON-RPC.
// The wallet holds the keys: eth_requestAccounts may prompt and eth_sendTransaction is signed wallet side.
// Account and chain notifications come from a polling watcher started with Start.
type Provider struct {
	endpoint string
	client   *rpc.Client
	eth      *ethclient.Client
	config   ProviderConfig
	logger   *slog.Logger

	accountsFeed event.FeedOf[[]common.Address]
	chainFeed    event.FeedOf[*big.Int]

	mu       sync.Mutex
	accounts []common.Address
	chainID  *big.Int
	primed   bool

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

var _ chains.EthereumProvider = (*Provider)(nil)

// Dial connects to a wallet endpoint. Plain HTTP is only accepted for loopback hosts.
func Dial(ctx context.Context, endpoint string, config ProviderConfig, logger *slog.Logger) (*Provider, error) {
	if err := utils.ValidateProviderURL(endpoint); err != nil {
		return nil, err
	}

	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, &RPCError{Endpoint: endpoint, Err: err}
	}

	provider := NewProvider(client, config, logger)
	provider.endpoint = endpoint
	return provider, nil
}

// NewProvider wraps an existing RPC client
func NewProvider(client *rpc.Client, config ProviderConfig, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultProviderConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}

	return &Provider{
		endpoint: "inproc",
		client:   client,
		eth:      ethclient.NewClient(client),
		config:   config,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RequestAccounts implements chains.EthereumProvider
func (p *Provider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}

	// the caller learns about these accounts from the result, not from the watcher
	p.mu.Lock()
	if p.primed {
		p.accounts = slices.Clone(accounts)
	}
	p.mu.Unlock()

	return accounts, nil
}

// Accounts implements chains.EthereumProvider
func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ChainID implements chains.EthereumProvider
func (p *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.eth.ChainID(ctx)
}

// BalanceAt implements chains.EthereumProvider
func (p *Provider) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return p.eth.BalanceAt(ctx, account, blockNumber)
}

// CallContract implements ethereum.ContractCaller
func (p *Provider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return p.eth.CallContract(ctx, msg, blockNumber)
}

// SendTransaction implements chains.TransactionSender.
// Gas and nonce are left for the wallet to fill in.
func (p *Provider) SendTransaction(ctx context.Context, tx chains.TxRequest) (common.Hash, error) {
	args := map[string]interface{}{
		"from": tx.From,
		"to":   tx.To,
		"data": hexutil.Bytes(tx.Data),
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		args["value"] = (*hexutil.Big)(tx.Value)
	}

	var hash common.Hash
	if err := p.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// TransactionReceipt implements chains.EthereumProvider
func (p *Provider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return patchedTransactionReceipt(ctx, p.client, txHash)
}

// SubscribeAccountsChanged implements chains.EthereumProvider
func (p *Provider) SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription {
	return p.accountsFeed.Subscribe(ch)
}

// SubscribeChainChanged implements chains.EthereumProvider
func (p *Provider) SubscribeChainChanged(ch chan<- *big.Int) event.Subscription {
	return p.chainFeed.Subscribe(ch)
}

// Start launches the account/chain watcher. The first poll only records a baseline.
func (p *Provider) Start() {
	p.startOnce.Do(func() {
		go p.watch()
	})
}

// Close stops the watcher and closes the connection
func (p *Provider) Close() {
	p.startOnce.Do(func() {
		close(p.done)
	})
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	select {
	case <-p.done:
	case <-time.After(p.config.RequestTimeout):
		p.logger.Warn("Wallet watcher did not stop in time", "endpoint", p.endpoint)
	}
	p.client.Close()
}

func (p *Provider) watch() {
	defer close(p.done)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-ticker.C:
			p.poll()
		case <-p.stop:
			return
		}
	}
}

// poll compares the wallet's accounts and chain with the last seen values and publishes changes
func (p *Provider) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.RequestTimeout)
	defer cancel()

	accounts, err := p.Accounts(ctx)
	if err != nil {
		p.logger.Debug("Wallet account poll failed", "endpoint", p.endpoint, "error", err)
		return
	}
	chainID, err := p.ChainID(ctx)
	if err != nil {
		p.logger.Debug("Wallet chain poll failed", "endpoint", p.endpoint, "error", err)
		return
	}

	p.mu.Lock()
	primed := p.primed
	accountsChanged := primed && !slices.Equal(p.accounts, accounts)
	chainChanged := primed && p.chainID.Cmp(chainID) != 0
	p.accounts = accounts
	p.chainID = chainID
	p.primed = true
	p.mu.Unlock()

	if chainChanged {
		p.logger.Info("Wallet chain changed", "chainID", chainID)
		p.chainFeed.Send(new(big.Int).Set(chainID))
	}
	if accountsChanged {
		p.logger.Info("Wallet accounts changed", "count", len(accounts))
		p.accountsFeed.Send(slices.Clone(accounts))
	}
}

// patchedTransactionReceipt gets a transaction receipt, tolerating logs that carry blockTimestamp
func patchedTransactionReceipt(ctx context.Context, client *rpc.Client, txHash common.Hash) (*ethtypes.Receipt, error) {
	var raw json.RawMessage
	err := client.CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ethereum.NotFound
	}

	cleaned, err := stripBlockTimestampFromLogs(raw)
	if err != nil {
		return nil, err
	}

	var receipt ethtypes.Receipt
	err = json.Unmarshal(cleaned, &receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode receipt %s: %w", txHash.Hex(), err)
	}

	return &receipt, nil
}

// stripBlockTimestampFromLogs removes the blockTimestamp field from transaction logs
func stripBlockTimestampFromLogs(raw json.RawMessage) ([]byte, error) {
	var receiptMap map[string]interface{}
	if err := json.Unmarshal(raw, &receiptMap); err != nil {
		return nil, err
	}

	logs, ok := receiptMap["logs"].([]interface{})
	if ok {
		for _, log := range logs {
			logMap, ok := log.(map[string]interface{})
			if ok {
				delete(logMap, "blockTimestamp")
			}
		}
	}

	return json.Marshal(receiptMap)
}
