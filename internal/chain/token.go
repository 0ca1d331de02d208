package chain

import (
	"context"
	"fmt"
	"math/big"

	"celokudos/internal/contract"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Allowance reads how much of the token spender may pull from owner
func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.token, contract.MethodAllowance, owner, spender)
	if err != nil {
		return nil, err
	}
	nums, err := bigInts(contract.MethodAllowance, out, 1)
	if err != nil {
		return nil, err
	}
	return nums[0], nil
}

// BalanceOf reads the token balance of account
func (c *Client) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.token, contract.MethodBalanceOf, account)
	if err != nil {
		return nil, err
	}
	nums, err := bigInts(contract.MethodBalanceOf, out, 1)
	if err != nil {
		return nil, err
	}
	return nums[0], nil
}

// TokenSymbol reads the token symbol
func (c *Client) TokenSymbol(ctx context.Context) (string, error) {
	out, err := c.call(ctx, c.token, contract.MethodSymbol)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", fmt.Errorf("unexpected %s output length %d", contract.MethodSymbol, len(out))
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// TokenDecimals reads the token precision
func (c *Client) TokenDecimals(ctx context.Context) (uint8, error) {
	out, err := c.call(ctx, c.token, contract.MethodDecimals)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("unexpected %s output length %d", contract.MethodDecimals, len(out))
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// Approve submits an approval of amount to spender, signed by session
func (c *Client) Approve(ctx context.Context, session *wallet.Session, spender common.Address, amount *big.Int) (common.Hash, error) {
	return c.transact(ctx, session, c.token, contract.MethodApprove, spender, amount)
}
