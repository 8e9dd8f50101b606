package svm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypairWalletApproval(t *testing.T) {
	approved := false
	wallet := NewKeypairWallet(solana.NewWallet().PrivateKey, func(ctx context.Context, account solana.PublicKey) bool {
		return approved
	}, nil)
	ctx := context.Background()

	_, err := wallet.Connect(ctx, true)
	assert.ErrorIs(t, err, ErrNotTrusted)
	assert.Equal(t, chains.KindUserRejected, chains.Classify(err))

	_, err = wallet.Connect(ctx, false)
	assert.Equal(t, chains.KindUserRejected, chains.Classify(err))

	approved = true
	account, err := wallet.Connect(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), account)

	// trust survives a disconnect
	require.NoError(t, wallet.Disconnect(ctx))
	approved = false
	account, err = wallet.Connect(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), account)

	wallet.Revoke()
	_, err = wallet.Connect(ctx, true)
	assert.ErrorIs(t, err, ErrNotTrusted)
}

func TestKeypairWalletNotifications(t *testing.T) {
	wallet := NewKeypairWallet(solana.NewWallet().PrivateKey, nil, nil)

	accounts := make(chan *solana.PublicKey, 2)
	disconnects := make(chan struct{}, 1)
	accountSub := wallet.SubscribeAccountChanged(accounts)
	defer accountSub.Unsubscribe()
	disconnectSub := wallet.SubscribeDisconnect(disconnects)
	defer disconnectSub.Unsubscribe()

	// nothing is announced before the application connects
	wallet.SwitchAccount(solana.NewWallet().PrivateKey)
	wallet.Lock()
	assert.Empty(t, accounts)
	assert.Empty(t, disconnects)

	_, err := wallet.Connect(context.Background(), false)
	require.NoError(t, err)

	next := solana.NewWallet().PrivateKey
	wallet.SwitchAccount(next)
	require.Len(t, accounts, 1)
	assert.Equal(t, next.PublicKey(), *<-accounts)

	wallet.DropAccount()
	require.Len(t, accounts, 1)
	assert.Nil(t, <-accounts)

	wallet.Lock()
	assert.Len(t, disconnects, 1)
}

func TestLoadKeypairWallet(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	raw := make([]int, len(key))
	for i, b := range key {
		raw[i] = int(b)
	}
	content, err := json.Marshal(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	wallet, err := LoadKeypairWallet(path, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), wallet.PublicKey())

	_, err = LoadKeypairWallet(filepath.Join(t.TempDir(), "missing.json"), nil, nil)
	assert.Error(t, err)
}

func TestNewKeypairWalletFromHex(t *testing.T) {
	seedHex, address, err := utils.GenerateSolanaKeypair()
	require.NoError(t, err)

	wallet, err := NewKeypairWalletFromHex(seedHex, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, address, wallet.PublicKey().String())

	_, err = NewKeypairWalletFromHex("0x1234", nil, nil)
	assert.Error(t, err)
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress(solana.NewWallet().PublicKey().String()))
	assert.True(t, IsValidAddress("11111111111111111111111111111111"))
	assert.False(t, IsValidAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"))
	assert.False(t, IsValidAddress(""))
	assert.True(t, AddressesEqual("abc", "abc"))
	assert.False(t, AddressesEqual("abc", "ABC"))
}
