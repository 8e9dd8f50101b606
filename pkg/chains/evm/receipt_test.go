package evm

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sigweihq/walletkit/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitMined(t *testing.T) {
	provider := newFakeProvider(constants.ChainIDMainnet)
	txHash := common.HexToHash("0x0c")

	go func() {
		time.Sleep(30 * time.Millisecond)
		provider.set(func(f *fakeProvider) {
			f.receipts[txHash] = &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed, TxHash: txHash}
		})
	}()

	receipt, err := WaitMined(context.Background(), provider, txHash, 5*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, txHash, receipt.TxHash)
	assert.False(t, IsSuccessful(receipt))
}

func TestWaitMinedHonoursContext(t *testing.T) {
	provider := newFakeProvider(constants.ChainIDMainnet)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := WaitMined(ctx, provider, common.HexToHash("0x0d"), 5*time.Millisecond, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsSuccessful(t *testing.T) {
	assert.True(t, IsSuccessful(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}))
	assert.False(t, IsSuccessful(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed}))
	assert.False(t, IsSuccessful(nil))
}
