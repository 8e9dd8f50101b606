package svm

import "github.com/sigweihq/walletkit/pkg/constants"

// Status is the Solana connection status
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusNotInstalled Status = "not-installed"
	StatusRejected     Status = "rejected"
	StatusError        Status = "error"
)

// Advisory returns the fixed user facing line for the status
func (s Status) Advisory() string {
	switch s {
	case StatusNotInstalled:
		return "Phantom wallet is not installed."
	case StatusRejected:
		return "Request was rejected. Try again."
	case StatusError:
		return "Something went wrong. Retry or check RPC."
	case StatusConnecting:
		return "Opening Phantom…"
	case StatusConnected:
		return "You are connected to Solana."
	default:
		return "Connect Phantom to check your SOL balance."
	}
}

// InstallURL returns the wallet download link when the status calls for one
func (s Status) InstallURL() string {
	if s == StatusNotInstalled {
		return constants.PhantomInstallURL
	}
	return ""
}

// ConnectionState is a snapshot of the Solana wallet connection
type ConnectionState struct {
	Status      Status
	Address     string // base58
	Balance     string // SOL, fixed places
	NetworkName string
	Error       string
}
