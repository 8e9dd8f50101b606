package chains

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/gagliardetto/solana-go"
)

// EthereumProvider is the injected EVM wallet boundary (EIP-1193 style).
// Controllers receive it at construction; a nil provider means no wallet is installed.
type EthereumProvider interface {
	// RequestAccounts asks the wallet for account access and may prompt the user
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Accounts returns the already authorized accounts without prompting
	Accounts(ctx context.Context) ([]common.Address, error)

	// ChainID returns the chain the wallet is currently on
	ChainID(ctx context.Context) (*big.Int, error)

	// BalanceAt returns the native balance in wei (nil block = latest)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)

	// TransactionReceipt returns ethereum.NotFound while the transaction is not included
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)

	// SubscribeAccountsChanged delivers the full account list on every change
	SubscribeAccountsChanged(ch chan<- []common.Address) event.Subscription

	// SubscribeChainChanged delivers the new chain id on every change
	SubscribeChainChanged(ch chan<- *big.Int) event.Subscription

	ethereum.ContractCaller
	TransactionSender
}

// TransactionSender submits a transaction through the wallet's signing authority
type TransactionSender interface {
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
}

// TxRequest is an unsigned transaction handed to the wallet for signing and broadcast
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// SolanaWallet is the injected Solana wallet boundary (Phantom style)
type SolanaWallet interface {
	// Connect requests a connection; onlyIfTrusted never prompts and fails when not yet trusted
	Connect(ctx context.Context, onlyIfTrusted bool) (solana.PublicKey, error)

	// Disconnect drops the wallet-side connection
	Disconnect(ctx context.Context) error

	// SubscribeAccountChanged delivers the new key, or nil when the wallet drops the account
	SubscribeAccountChanged(ch chan<- *solana.PublicKey) event.Subscription

	// SubscribeDisconnect fires when the wallet disconnects on its own
	SubscribeDisconnect(ch chan<- struct{}) event.Subscription
}

// BalanceFetcher queries a lamport balance from a Solana cluster
type BalanceFetcher interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}
