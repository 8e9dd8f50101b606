package erc20

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sigweihq/walletkit/pkg/chains"
	"github.com/sigweihq/walletkit/pkg/chains/evm"
	"github.com/sigweihq/walletkit/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidTokenAddress     = chains.NewError(chains.KindInvalidAddress, "Invalid token address")
	ErrInvalidRecipientAddress = chains.NewError(chains.KindInvalidAddress, "Invalid recipient address")
	ErrInvalidOwnerAddress     = chains.NewError(chains.KindInvalidAddress, "Invalid owner address")

	errEmptyResult = errors.New("empty call result (is the address a contract?)")
)

// TokenMeta describes an ERC-20 token
type TokenMeta struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Balance is a token balance in smallest units and formatted with the token's decimals
type Balance struct {
	Raw       *big.Int
	Formatted string
}

// Client reads and transfers ERC-20 tokens through a caller supplied provider.
// It keeps no state between calls.
type Client struct {
	logger *slog.Logger
}

// NewClient creates an ERC-20 client
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{logger: logger}
}

// GetTokenMeta reads name, symbol and decimals in parallel.
// Either all three reads succeed or an error is returned.
func (c *Client) GetTokenMeta(ctx context.Context, caller ethereum.ContractCaller, tokenAddress string) (*TokenMeta, error) {
	if !evm.IsValidAddress(tokenAddress) {
		return nil, ErrInvalidTokenAddress
	}
	token := common.HexToAddress(tokenAddress)

	var meta TokenMeta
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.call(gctx, caller, token, &meta.Name, "name")
	})
	g.Go(func() error {
		return c.call(gctx, caller, token, &meta.Symbol, "symbol")
	})
	g.Go(func() error {
		return c.call(gctx, caller, token, &meta.Decimals, "decimals")
	})
	if err := g.Wait(); err != nil {
		return nil, chains.WrapError(chains.KindRPCOrContract, "failed to read token metadata", err)
	}

	return &meta, nil
}

// GetTokenBalance reads the owner's raw balance and formats it with decimals
func (c *Client) GetTokenBalance(ctx context.Context, caller ethereum.ContractCaller, tokenAddress, owner string, decimals uint8) (*Balance, error) {
	if !evm.IsValidAddress(tokenAddress) {
		return nil, ErrInvalidTokenAddress
	}
	if !evm.IsValidAddress(owner) {
		return nil, ErrInvalidOwnerAddress
	}

	raw := new(big.Int)
	if err := c.call(ctx, caller, common.HexToAddress(tokenAddress), &raw, "balanceOf", common.HexToAddress(owner)); err != nil {
		return nil, chains.WrapError(chains.KindRPCOrContract, "failed to read token balance", err)
	}

	return &Balance{
		Raw:       raw,
		Formatted: utils.FormatUnits(raw, decimals),
	}, nil
}

// TransferToken submits transfer(to, amount) signed by from and returns the transaction hash.
// It does not wait for inclusion.
func (c *Client) TransferToken(
	ctx context.Context,
	sender chains.TransactionSender,
	from common.Address,
	tokenAddress, to, amountHuman string,
	decimals uint8,
) (common.Hash, error) {
	if !evm.IsValidAddress(tokenAddress) {
		return common.Hash{}, ErrInvalidTokenAddress
	}
	if !evm.IsValidAddress(to) {
		return common.Hash{}, ErrInvalidRecipientAddress
	}

	amount, err := utils.ParseUnits(amountHuman, decimals)
	if err != nil {
		return common.Hash{}, chains.WrapError(chains.KindInvalidAmount, "Invalid amount", err)
	}

	data, err := erc20ABI.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack transfer call: %w", err)
	}

	token := common.HexToAddress(tokenAddress)
	hash, err := sender.SendTransaction(ctx, chains.TxRequest{
		From: from,
		To:   token,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, err
	}

	c.logger.Info("Token transfer submitted",
		"token", token.Hex(),
		"to", common.HexToAddress(to).Hex(),
		"amount", amount.String(),
		"txHash", hash.Hex())
	return hash, nil
}

// call runs a read-only method and decodes its single return value into out
func (c *Client) call(ctx context.Context, caller ethereum.ContractCaller, token common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", method, err)
	}
	if len(result) == 0 {
		return fmt.Errorf("%s: %w", method, errEmptyResult)
	}

	if err := erc20ABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
