package evm

import (
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
)

// Status is the EVM connection status
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusWrongNetwork Status = "wrong-network"
	StatusNotInstalled Status = "not-installed"
	StatusRejected     Status = "rejected"
	StatusError        Status = "error"
)

// Advisory returns the fixed user facing line for the status
func (s Status) Advisory() string {
	switch s {
	case StatusNotInstalled:
		return "MetaMask is not installed. Add the extension to continue."
	case StatusWrongNetwork:
		return constants.WrongNetworkMessage
	case StatusRejected:
		return "Request was rejected. Please try again."
	case StatusError:
		return "Something went wrong. Retry or check RPC settings."
	case StatusConnecting:
		return "Opening MetaMask…"
	case StatusConnected:
		return "You are connected."
	default:
		return "Connect your wallet to view balances and start building."
	}
}

// InstallURL returns the wallet download link when the status calls for one
func (s Status) InstallURL() string {
	if s == StatusNotInstalled {
		return constants.MetaMaskInstallURL
	}
	return ""
}

// HasAccount reports whether the status carries a loaded account
func (s Status) HasAccount() bool {
	return s == StatusConnected || s == StatusWrongNetwork
}

// ConnectionState is a snapshot of the EVM wallet connection.
// Address, ChainID, NetworkName and Balance are set only while HasAccount is true.
type ConnectionState struct {
	Status      Status
	Address     string
	ChainID     int64
	NetworkName string
	Balance     string // ether units
	Error       string
}

// IsConnected reports whether the wallet is connected to a supported network
func (s ConnectionState) IsConnected() bool {
	return s.Status == StatusConnected && s.Address != ""
}

// Err returns the failure behind the state as a *chains.Error, or nil when nothing failed
func (s ConnectionState) Err() error {
	switch s.Status {
	case StatusWrongNetwork:
		return ErrWrongNetwork
	case StatusNotInstalled:
		return chains.NewError(chains.KindNotInstalled, s.Status.Advisory())
	case StatusRejected:
		return chains.NewError(chains.KindUserRejected, s.Error)
	case StatusError:
		return chains.NewError(chains.KindRPCOrContract, s.Error)
	default:
		return nil
	}
}

func networkName(chainID int64) string {
	if name, ok := constants.SupportedNetworks[chainID]; ok {
		return name
	}
	return constants.UnknownNetworkName
}
