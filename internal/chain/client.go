// Package chain adapts go-ethereum to the kudos and token contracts: typed
// reads, signed writes, receipt polling and log subscriptions.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"celokudos/internal/chain/retry"
	"celokudos/internal/contract"
	"celokudos/internal/metrics"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultPollInterval is how often WaitMined asks for a receipt
const DefaultPollInterval = 2 * time.Second

// ErrReverted marks a read the contract rejected, such as an unknown kudos id
var ErrReverted = errors.New("contract call reverted")

// revertErrorCode is the JSON-RPC error code nodes use for reverted calls
const revertErrorCode = 3

// Backend is everything the client needs from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Config holds the addresses and tuning of a Client
type Config struct {
	KudosAddress common.Address
	TokenAddress common.Address
	PollInterval time.Duration
	Retry        retry.Config
}

// Client talks to the kudos contract and its payment token
type Client struct {
	backend      Backend
	kudos        *bind.BoundContract
	token        *bind.BoundContract
	kudosAddress common.Address
	tokenAddress common.Address
	strategy     retry.Strategy
	pollInterval time.Duration
}

// Dial connects to an RPC endpoint
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", rpcURL, err)
	}
	return client, nil
}

// NewClient binds the kudos and token contracts on backend
func NewClient(backend Backend, cfg Config) (*Client, error) {
	kudosABI, err := contract.KudosABI()
	if err != nil {
		return nil, err
	}
	tokenABI, err := contract.TokenABI()
	if err != nil {
		return nil, err
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Client{
		backend:      backend,
		kudos:        bind.NewBoundContract(cfg.KudosAddress, kudosABI, backend, backend, backend),
		token:        bind.NewBoundContract(cfg.TokenAddress, tokenABI, backend, backend, backend),
		kudosAddress: cfg.KudosAddress,
		tokenAddress: cfg.TokenAddress,
		strategy:     retry.NewStrategy(cfg.Retry),
		pollInterval: pollInterval,
	}, nil
}

// KudosAddress returns the bound kudos contract address
func (c *Client) KudosAddress() common.Address { return c.kudosAddress }

// TokenAddress returns the bound token contract address
func (c *Client) TokenAddress() common.Address { return c.tokenAddress }

// call runs a read through the retry strategy and records metrics
func (c *Client) call(ctx context.Context, bound *bind.BoundContract, method string, args ...interface{}) ([]interface{}, error) {
	start := time.Now()
	var out []interface{}

	err := c.strategy.Execute(ctx, func() error {
		out = nil
		return bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	})

	metrics.ReadDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReadCalls.WithLabelValues(method, "error").Inc()
		if isRevert(err) {
			return nil, fmt.Errorf("failed to call %s: %w: %w", method, ErrReverted, err)
		}
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	metrics.ReadCalls.WithLabelValues(method, "ok").Inc()

	return out, nil
}

// transact submits a signed write. Writes are never retried.
func (c *Client) transact(ctx context.Context, session *wallet.Session, bound *bind.BoundContract, method string, args ...interface{}) (common.Hash, error) {
	opts, err := session.TransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to submit %s: %w", method, err)
	}

	slog.Debug("Transaction submitted",
		"method", method,
		"tx_hash", tx.Hash().Hex(),
		"nonce", tx.Nonce(),
		"gas", tx.Gas(),
	)

	return tx.Hash(), nil
}

// WaitMined polls until the transaction has a receipt or ctx ends
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			slog.Debug("Receipt not yet available", "tx_hash", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// ChainID returns the chain id reported by the node
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

// BlockNumber returns the latest block number
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
