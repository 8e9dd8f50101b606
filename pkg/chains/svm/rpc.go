package svm

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
)

// RPCClient implements chains.BalanceFetcher against one Solana cluster
type RPCClient struct {
	network   string
	endpoints []string
	clients   []*rpc.Client
}

// NewRPCClient creates a balance client over the given cluster endpoints
func NewRPCClient(network string, endpoints []string) *RPCClient {
	clients := make([]*rpc.Client, len(endpoints))
	for i, endpoint := range endpoints {
		clients[i] = rpc.New(endpoint)
	}
	return &RPCClient{
		network:   network,
		endpoints: endpoints,
		clients:   clients,
	}
}

// Verify RPCClient implements interface
var _ chains.BalanceFetcher = (*RPCClient)(nil)

// Network returns the cluster this client queries
func (r *RPCClient) Network() string {
	return r.network
}

// GetBalance implements chains.BalanceFetcher
// Uses random start position for load balancing across RPC endpoints
func (r *RPCClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	if len(r.clients) == 0 {
		return 0, fmt.Errorf("no RPC endpoints available for network %s", r.network)
	}

	// Start at a random position for load balancing
	startIdx := rand.Intn(len(r.clients))
	var lastErr error

	for i := 0; i < len(r.clients); i++ {
		if i > 0 {
			delay := time.Duration(i*constants.DelayBetweenRPCCalls) * time.Millisecond
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
			}
		}

		// Wrap around using modulo for round-robin
		idx := (startIdx + i) % len(r.clients)

		callCtx, cancel := context.WithTimeout(ctx, constants.CallContractTimeout)
		out, err := r.clients[idx].GetBalance(callCtx, account, rpc.CommitmentType(constants.SolanaBalanceCommitment))
		cancel()

		if err != nil {
			lastErr = &RPCError{Endpoint: r.endpoints[idx], Err: err}
			continue
		}

		return out.Value, nil
	}

	return 0, fmt.Errorf("all RPC endpoints failed for network %s: %w", r.network, lastErr)
}

// RPCError represents an RPC-related error
type RPCError struct {
	Endpoint string
	Err      error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error on %s: %v", e.Endpoint, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
