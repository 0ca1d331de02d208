package kudos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientFunds - the token balance is below the amount
	ErrInsufficientFunds = errors.New("insufficient token balance")
	// ErrTokenDecimals - the token does not use the precision amounts are parsed with
	ErrTokenDecimals = errors.New("unexpected token decimals")
)

// Funds reads what the sender holds. *chain.Client satisfies it.
type Funds interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context) (uint8, error)
}

// CheckFunds verifies that the token uses Decimals and that the session
// holds amount. It only runs when CanSend accepts the input; SendKudos
// reports the precise validation error otherwise. Failed reads are logged
// and never block a submission.
func CheckFunds(ctx context.Context, funds Funds, session *wallet.Session, amount string) error {
	if !CanSend(session, amount) {
		return nil
	}
	value, err := ParseAmount(amount)
	if err != nil {
		return err
	}

	decimals, err := funds.TokenDecimals(ctx)
	if err != nil {
		slog.Warn("Token decimals read failed", "error", err)
	} else if decimals != Decimals {
		return fmt.Errorf("%w: token has %d, amounts use %d", ErrTokenDecimals, decimals, Decimals)
	}

	balance, err := funds.BalanceOf(ctx, session.Address())
	if err != nil {
		slog.Warn("Token balance read failed", "error", err)
		return nil
	}
	if balance.Cmp(value) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, FormatAmount(balance), FormatAmount(value))
	}
	return nil
}
