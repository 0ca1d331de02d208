package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"celokudos/internal/contract"
	"celokudos/internal/models"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// kudosTuple mirrors the CeloKudos.Kudos struct returned by getKudosById
type kudosTuple struct {
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
	Message   string
	Timestamp *big.Int
	IsPublic  bool
}

// KudosByID reads a single kudos record
func (c *Client) KudosByID(ctx context.Context, id *big.Int) (*models.Kudos, error) {
	out, err := c.call(ctx, c.kudos, contract.MethodGetKudosByID, id)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", contract.MethodGetKudosByID, len(out))
	}

	raw := *abi.ConvertType(out[0], new(kudosTuple)).(*kudosTuple)
	if raw.Timestamp == nil || !raw.Timestamp.IsInt64() {
		return nil, fmt.Errorf("kudos %s has an out of range timestamp %v", id, raw.Timestamp)
	}
	return &models.Kudos{
		ID:        new(big.Int).Set(id),
		Sender:    raw.Sender,
		Recipient: raw.Recipient,
		Amount:    raw.Amount,
		Message:   raw.Message,
		Timestamp: time.Unix(raw.Timestamp.Int64(), 0).UTC(),
		IsPublic:  raw.IsPublic,
	}, nil
}

// KudosSent reads a page of ids of kudos sent by user
func (c *Client) KudosSent(ctx context.Context, user common.Address, offset, limit uint64) ([]*big.Int, error) {
	return c.ids(ctx, contract.MethodGetKudosSent, user, new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
}

// KudosReceived reads a page of ids of kudos received by user
func (c *Client) KudosReceived(ctx context.Context, user common.Address, offset, limit uint64) ([]*big.Int, error) {
	return c.ids(ctx, contract.MethodGetKudosReceived, user, new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
}

// PublicKudos reads a page of ids of public kudos
func (c *Client) PublicKudos(ctx context.Context, offset, limit uint64) ([]*big.Int, error) {
	return c.ids(ctx, contract.MethodGetPublicKudos, new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
}

func (c *Client) ids(ctx context.Context, method string, args ...interface{}) ([]*big.Int, error) {
	out, err := c.call(ctx, c.kudos, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s output length %d", method, len(out))
	}
	return *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int), nil
}

// UserStats reads the aggregates of a single address
func (c *Client) UserStats(ctx context.Context, user common.Address) (*models.UserStats, error) {
	out, err := c.call(ctx, c.kudos, contract.MethodGetUserStats, user)
	if err != nil {
		return nil, err
	}
	nums, err := bigInts(contract.MethodGetUserStats, out, 4)
	if err != nil {
		return nil, err
	}

	return &models.UserStats{
		ReceivedCount: nums[0],
		SentCount:     nums[1],
		TotalReceived: nums[2],
		TotalSent:     nums[3],
	}, nil
}

// PlatformStats reads the global aggregates
func (c *Client) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	out, err := c.call(ctx, c.kudos, contract.MethodGetPlatformStats)
	if err != nil {
		return nil, err
	}
	nums, err := bigInts(contract.MethodGetPlatformStats, out, 3)
	if err != nil {
		return nil, err
	}

	return &models.PlatformStats{
		TotalKudos:  nums[0],
		TotalAmount: nums[1],
		UserCount:   nums[2],
	}, nil
}

// TotalKudos reads the number of kudos ever sent
func (c *Client) TotalKudos(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, c.kudos, contract.MethodGetTotalKudos)
	if err != nil {
		return nil, err
	}
	nums, err := bigInts(contract.MethodGetTotalKudos, out, 1)
	if err != nil {
		return nil, err
	}
	return nums[0], nil
}

// Owner reads the contract owner
func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	return c.address(ctx, contract.MethodOwner)
}

// LinkedToken reads the payment token address stored in the contract
func (c *Client) LinkedToken(ctx context.Context) (common.Address, error) {
	return c.address(ctx, contract.MethodTokenAddress)
}

func (c *Client) address(ctx context.Context, method string) (common.Address, error) {
	out, err := c.call(ctx, c.kudos, method)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("unexpected %s output length %d", method, len(out))
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// SendKudos submits a sendKudos transaction signed by session
func (c *Client) SendKudos(ctx context.Context, session *wallet.Session, recipient common.Address, amount *big.Int, message string, isPublic bool) (common.Hash, error) {
	return c.transact(ctx, session, c.kudos, contract.MethodSendKudos, recipient, amount, message, isPublic)
}

func bigInts(method string, out []interface{}, n int) ([]*big.Int, error) {
	if len(out) != n {
		return nil, fmt.Errorf("unexpected %s output length %d, want %d", method, len(out), n)
	}
	nums := make([]*big.Int, n)
	for i, v := range out {
		nums[i] = *abi.ConvertType(v, new(*big.Int)).(**big.Int)
	}
	return nums, nil
}
