package svm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBalances serves lamport balances from memory
type fakeBalances struct {
	mu       sync.Mutex
	lamports map[solana.PublicKey]uint64
	err      error
	calls    int
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{lamports: make(map[solana.PublicKey]uint64)}
}

func (f *fakeBalances) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.lamports[account], nil
}

func (f *fakeBalances) set(account solana.PublicKey, lamports uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lamports[account] = lamports
	f.err = err
}

// brokenDisconnectWallet fails every disconnect
type brokenDisconnectWallet struct {
	*KeypairWallet
}

func (w *brokenDisconnectWallet) Disconnect(ctx context.Context) error {
	return errors.New("wallet crashed")
}

func newTestWallet(t *testing.T, approve ApprovalFunc) *KeypairWallet {
	t.Helper()
	return NewKeypairWallet(solana.NewWallet().PrivateKey, approve, nil)
}

func TestNewControllerIsIdle(t *testing.T) {
	controller := NewController(newTestWallet(t, nil), newFakeBalances(), nil)

	state := controller.State()
	assert.Equal(t, StatusIdle, state.Status)
	assert.Empty(t, state.Address)
	assert.Empty(t, state.Balance)
	assert.Empty(t, controller.DisplayAddress())
}

func TestConnectWithoutWallet(t *testing.T) {
	controller := NewController(nil, newFakeBalances(), nil)

	state := controller.Connect(context.Background())
	assert.Equal(t, StatusNotInstalled, state.Status)
	assert.Equal(t, constants.PhantomNotDetectedMessage, state.Error)
	assert.Empty(t, state.Address)
	assert.Equal(t, constants.PhantomInstallURL, state.Status.InstallURL())

	controller.Disconnect(context.Background())
	assert.Equal(t, ConnectionState{Status: StatusIdle}, controller.State())
}

func TestConnect(t *testing.T) {
	t.Run("connected with fixed cluster and SOL balance", func(t *testing.T) {
		wallet := newTestWallet(t, nil)
		balances := newFakeBalances()
		balances.set(wallet.PublicKey(), 1_500_000_000, nil)
		controller := NewController(wallet, balances, nil)

		state := controller.Connect(context.Background())

		assert.Equal(t, StatusConnected, state.Status)
		assert.Equal(t, wallet.PublicKey().String(), state.Address)
		assert.Equal(t, "1.5000", state.Balance)
		assert.Equal(t, "Solana Devnet", state.NetworkName)
		assert.Empty(t, state.Error)
	})

	t.Run("rejected by the user", func(t *testing.T) {
		wallet := newTestWallet(t, func(ctx context.Context, account solana.PublicKey) bool { return false })
		controller := NewController(wallet, newFakeBalances(), nil)

		state := controller.Connect(context.Background())

		assert.Equal(t, StatusRejected, state.Status)
		assert.Equal(t, chains.ErrUserRejected.Message, state.Error)
		assert.Empty(t, state.Address)
	})

	t.Run("balance lookup failure", func(t *testing.T) {
		wallet := newTestWallet(t, nil)
		balances := newFakeBalances()
		balances.set(wallet.PublicKey(), 0, errors.New("429 Too Many Requests"))
		controller := NewController(wallet, balances, nil)

		state := controller.Connect(context.Background())

		assert.Equal(t, StatusError, state.Status)
		assert.Equal(t, "429 Too Many Requests", state.Error)
		assert.Empty(t, state.Address)
	})
}

func TestConnectReentrancyAndStaleResult(t *testing.T) {
	gate := make(chan struct{})
	wallet := newTestWallet(t, func(ctx context.Context, account solana.PublicKey) bool {
		<-gate
		return true
	})
	controller := NewController(wallet, newFakeBalances(), nil)

	result := make(chan ConnectionState, 1)
	go func() {
		result <- controller.Connect(context.Background())
	}()

	require.Eventually(t, func() bool {
		return controller.State().Status == StatusConnecting
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StatusConnecting, controller.Connect(context.Background()).Status)

	controller.Disconnect(context.Background())
	close(gate)

	assert.Equal(t, StatusIdle, (<-result).Status)
	assert.Equal(t, StatusIdle, controller.State().Status)
}

func TestDisconnectSwallowsWalletFailure(t *testing.T) {
	wallet := &brokenDisconnectWallet{KeypairWallet: newTestWallet(t, nil)}
	controller := NewController(wallet, newFakeBalances(), nil)
	require.Equal(t, StatusConnected, controller.Connect(context.Background()).Status)

	assert.NotPanics(t, func() { controller.Disconnect(context.Background()) })
	assert.Equal(t, ConnectionState{Status: StatusIdle}, controller.State())
}

func TestRefreshBalance(t *testing.T) {
	wallet := newTestWallet(t, nil)
	balances := newFakeBalances()
	controller := NewController(wallet, balances, nil)

	controller.RefreshBalance(context.Background())
	assert.Zero(t, balances.calls, "refresh must be a no-op while idle")

	balances.set(wallet.PublicKey(), 1_000_000_000, nil)
	before := controller.Connect(context.Background())
	require.Equal(t, "1.0000", before.Balance)

	balances.set(wallet.PublicKey(), 2_345_670_000, nil)
	controller.RefreshBalance(context.Background())
	after := controller.State()
	assert.Equal(t, "2.3457", after.Balance)
	before.Balance = after.Balance
	assert.Equal(t, before, after)

	balances.set(wallet.PublicKey(), 0, errors.New("timeout"))
	controller.RefreshBalance(context.Background())
	assert.Equal(t, after, controller.State())
}

func TestRefreshBalanceSkipsInvalidAddress(t *testing.T) {
	balances := newFakeBalances()
	controller := NewController(newTestWallet(t, nil), balances, nil)
	controller.state = ConnectionState{Status: StatusConnected, Address: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F", Balance: "1.0000"}

	assert.NotPanics(t, func() { controller.RefreshBalance(context.Background()) })
	assert.Zero(t, balances.calls)
	assert.Equal(t, "1.0000", controller.State().Balance)
}

func TestConnectIfTrusted(t *testing.T) {
	wallet := newTestWallet(t, nil)
	balances := newFakeBalances()
	controller := NewController(wallet, balances, nil)

	// never approved: stays idle without prompting
	assert.Equal(t, StatusIdle, controller.ConnectIfTrusted(context.Background()).Status)

	require.Equal(t, StatusConnected, controller.Connect(context.Background()).Status)
	controller.Disconnect(context.Background())

	updates := make(chan ConnectionState, 4)
	sub := controller.Subscribe(updates)
	defer sub.Unsubscribe()

	state := controller.ConnectIfTrusted(context.Background())
	assert.Equal(t, StatusConnected, state.Status)
	require.Len(t, updates, 1)
	assert.Equal(t, StatusConnected, (<-updates).Status)
}

func TestWalletEvents(t *testing.T) {
	wallet := newTestWallet(t, nil)
	balances := newFakeBalances()
	controller := NewController(wallet, balances, nil)
	controller.Start(context.Background())
	defer controller.Close()

	require.Equal(t, StatusConnected, controller.Connect(context.Background()).Status)

	next := solana.NewWallet().PrivateKey
	balances.set(next.PublicKey(), 3_000_000_000, nil)
	wallet.SwitchAccount(next)
	require.Eventually(t, func() bool {
		s := controller.State()
		return s.Address == next.PublicKey().String() && s.Balance == "3.0000"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusConnected, controller.State().Status)

	wallet.DropAccount()
	require.Eventually(t, func() bool {
		return controller.State().Status == StatusIdle
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, StatusConnected, controller.Connect(context.Background()).Status)
	wallet.Lock()
	require.Eventually(t, func() bool {
		return controller.State().Status == StatusIdle
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, controller.State().Address)
}

func TestDisplayAddress(t *testing.T) {
	wallet := newTestWallet(t, nil)
	controller := NewController(wallet, newFakeBalances(), nil)
	controller.Connect(context.Background())

	address := wallet.PublicKey().String()
	assert.Equal(t, address[:4]+"…"+address[len(address)-4:], controller.DisplayAddress())
}

func TestStatusAdvisory(t *testing.T) {
	assert.Equal(t, "Phantom wallet is not installed.", StatusNotInstalled.Advisory())
	assert.Equal(t, "Opening Phantom…", StatusConnecting.Advisory())
	assert.Equal(t, "Connect Phantom to check your SOL balance.", StatusIdle.Advisory())
	assert.Empty(t, StatusConnected.InstallURL())
}

func TestCloseWithoutStart(t *testing.T) {
	controller := NewController(newTestWallet(t, nil), newFakeBalances(), nil)
	controller.Close()
	controller.Close()
}
