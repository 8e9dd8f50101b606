package transfer

import (
	"math/big"

	"github.com/sigweihq/walletkit/pkg/erc20"
)

// Phase is the transaction lifecycle of a submission
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseAwaiting Phase = "awaiting" // waiting for the wallet to sign
	PhasePending  Phase = "pending"  // submitted, waiting for inclusion
	PhaseSuccess  Phase = "success"
	PhaseFailed   Phase = "failed"
)

// Busy reports whether a submission is in flight
func (p Phase) Busy() bool {
	return p == PhaseAwaiting || p == PhasePending
}

// Done reports whether the phase needs a reset before the next submission
func (p Phase) Done() bool {
	return p == PhaseSuccess || p == PhaseFailed
}

// FormState is a snapshot of the transfer form.
// FormError holds validation and token loading failures; TxError holds submission failures.
type FormState struct {
	TokenAddress string
	Recipient    string
	Amount       string

	TokenMeta        *erc20.TokenMeta
	BalanceRaw       *big.Int
	BalanceFormatted string
	LoadingToken     bool

	Phase  Phase
	TxHash string

	FormError string
	TxError   string
}

func (s FormState) clone() FormState {
	if s.TokenMeta != nil {
		meta := *s.TokenMeta
		s.TokenMeta = &meta
	}
	if s.BalanceRaw != nil {
		s.BalanceRaw = new(big.Int).Set(s.BalanceRaw)
	}
	return s
}

func (s *FormState) clearToken() {
	s.TokenMeta = nil
	s.BalanceRaw = nil
	s.BalanceFormatted = ""
	s.LoadingToken = false
}
