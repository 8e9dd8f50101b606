package svm

import (
	"fmt"
	"log/slog"

	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/sigweihq/walletkit/pkg/utils"
)

// NewClusterRPCClient builds the balance client for network.
// With no endpoints given it falls back to the official endpoints for the network.
func NewClusterRPCClient(logger *slog.Logger, network string, endpoints ...string) (*RPCClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if len(endpoints) == 0 {
		officialEps, ok := constants.OfficialRPCEndpoints[network]
		if !ok {
			return nil, fmt.Errorf("no endpoints provided for SVM network %s", network)
		}
		endpoints = officialEps
		logger.Info("using official endpoints for SVM network", "network", network)
	}

	for _, endpoint := range endpoints {
		if err := utils.ValidateProviderURL(endpoint); err != nil {
			return nil, err
		}
	}

	return NewRPCClient(network, endpoints), nil
}

// NewClusterController wires wallet to the pinned cluster (constants.SolanaCluster)
func NewClusterController(wallet chains.SolanaWallet, logger *slog.Logger, endpoints ...string) (*Controller, error) {
	client, err := NewClusterRPCClient(logger, constants.SolanaCluster, endpoints...)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Solana balance client ready", "network", client.Network(), "endpoints", len(client.endpoints))
	return NewController(wallet, client, logger), nil
}
