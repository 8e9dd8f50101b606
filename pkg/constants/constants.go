package constants

import "time"

const (
	DelayBetweenRPCCalls      = 200              // delay in milliseconds between RPC calls
	TransactionReceiptTimeout = 2 * time.Second  // timeout for a single receipt lookup
	CallContractTimeout       = 10 * time.Second // timeout for contract call
	ReceiptPollInterval       = 2 * time.Second  // interval between receipt lookups while waiting for inclusion
	ProviderPollInterval      = 1 * time.Second  // interval between account/chain polls of a JSON-RPC wallet
	ProviderRequestTimeout    = 5 * time.Second  // timeout for a single watcher poll
	WalletPromptTimeout       = 2 * time.Minute  // upper bound applied by the example wiring to wallet prompts
	SolanaBalanceCommitment   = "confirmed"      // commitment used for lamport balance queries
	UserRejectedCode          = 4001             // EIP-1193 / Phantom user rejection code
	EtherDecimals             = 18               // native EVM currency decimals
	SolDecimals               = 9                // lamports per SOL exponent
	SolBalancePlaces          = 4                // fixed places shown for SOL balances
	MaxAmountFractionDigits   = 30               // longest fractional part accepted by the amount predicate
	ExplorerDefaultTxURL      = "https://etherscan.io/tx/"
	UnknownNetworkName        = "unknown"
)

// EVM chain ids
const (
	ChainIDMainnet int64 = 1
	ChainIDGoerli  int64 = 5
	ChainIDPolygon int64 = 137
	ChainIDMumbai  int64 = 80001
	ChainIDSepolia int64 = 11155111
)

// Network Types
const (
	NetworkSolana       = "solana"
	NetworkSolanaDevnet = "solana-devnet"
)

// SupportedNetworks is the network gate: chain id -> display name.
var SupportedNetworks = map[int64]string{
	ChainIDMainnet: "Ethereum Mainnet",
	ChainIDSepolia: "Sepolia Testnet",
}

var ExplorerTxURLs = map[int64]string{
	ChainIDMainnet: "https://etherscan.io/tx/",
	ChainIDSepolia: "https://sepolia.etherscan.io/tx/",
	ChainIDGoerli:  "https://goerli.etherscan.io/tx/",
	ChainIDPolygon: "https://polygonscan.com/tx/",
	ChainIDMumbai:  "https://mumbai.polygonscan.com/tx/",
}

// Solana cluster the controller is pinned to
const (
	SolanaCluster     = NetworkSolanaDevnet
	SolanaNetworkName = "Solana Devnet"
)

var OfficialRPCEndpoints = map[string][]string{
	NetworkSolana:       {"https://api.mainnet-beta.solana.com"},
	NetworkSolanaDevnet: {"https://api.devnet.solana.com"},
}

// Address display
const (
	EVMAddressPrefixLen    = 6
	EVMAddressSuffixLen    = 4
	SolanaAddressPrefixLen = 4
	SolanaAddressSuffixLen = 4
	AddressEllipsis        = "…"
)

// User facing messages
const (
	MetaMaskNotDetectedMessage = "MetaMask is not detected. Install it to continue."
	PhantomNotDetectedMessage  = "Phantom wallet is not detected."
	WrongNetworkMessage        = "Switch to Ethereum Mainnet or Sepolia to continue."
	TransactionRevertedMessage = "Transaction failed or was reverted."
	MetaMaskInstallURL         = "https://metamask.io/download/"
	PhantomInstallURL          = "https://phantom.app/download"
)

// IsSupportedChain reports whether chainID passes the network gate.
func IsSupportedChain(chainID int64) bool {
	_, ok := SupportedNetworks[chainID]
	return ok
}
