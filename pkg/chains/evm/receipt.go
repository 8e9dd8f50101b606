package evm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sigweihq/walletkit/pkg/constants"
)

// ReceiptReader looks up transaction receipts
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// WaitMined polls for the receipt of txHash until it is included or ctx is done.
// Lookup failures are retried; the caller bounds the wait through ctx.
func WaitMined(ctx context.Context, reader ReceiptReader, txHash common.Hash, interval time.Duration, logger *slog.Logger) (*ethtypes.Receipt, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = constants.ReceiptPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		lookupCtx, cancel := context.WithTimeout(ctx, constants.TransactionReceiptTimeout)
		receipt, err := reader.TransactionReceipt(lookupCtx, txHash)
		cancel()

		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			logger.Debug("Receipt lookup failed", "txHash", txHash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsSuccessful reports whether the receipt carries the success status
func IsSuccessful(receipt *ethtypes.Receipt) bool {
	return receipt != nil && receipt.Status == ethtypes.ReceiptStatusSuccessful
}
