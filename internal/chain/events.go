package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"celokudos/internal/contract"
	"celokudos/internal/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

type kudosSentLog struct {
	KudosId   *big.Int
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
	Message   string
	IsPublic  bool
}

type kudosReceivedLog struct {
	KudosId   *big.Int
	Recipient common.Address
	Sender    common.Address
	Amount    *big.Int
}

// WatchKudosSent streams decoded KudosSent events into sink
func (c *Client) WatchKudosSent(ctx context.Context, sink chan<- *models.KudosEvent) (event.Subscription, error) {
	return c.watch(ctx, contract.EventKudosSent, sink, DecodeKudosSent)
}

// WatchKudosReceived streams decoded KudosReceived events into sink
func (c *Client) WatchKudosReceived(ctx context.Context, sink chan<- *models.KudosEvent) (event.Subscription, error) {
	return c.watch(ctx, contract.EventKudosReceived, sink, DecodeKudosReceived)
}

func (c *Client) watch(ctx context.Context, name string, sink chan<- *models.KudosEvent, decode func(types.Log) (*models.KudosEvent, error)) (event.Subscription, error) {
	logs, sub, err := c.kudos.WatchLogs(&bind.WatchOpts{Context: ctx}, name)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", name, err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case raw := <-logs:
				ev, err := decode(raw)
				if err != nil {
					slog.Warn("Skipping undecodable log",
						"event", name,
						"tx_hash", raw.TxHash.Hex(),
						"error", err,
					)
					continue
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// DecodeKudosSent decodes a raw KudosSent log
func DecodeKudosSent(raw types.Log) (*models.KudosEvent, error) {
	var out kudosSentLog
	if err := unpackLog(contract.EventKudosSent, &out, raw); err != nil {
		return nil, err
	}

	ev := newEvent(models.EventTypeKudosSent, raw)
	ev.KudosID = out.KudosId
	ev.Sender = out.Sender
	ev.Recipient = out.Recipient
	ev.Amount = out.Amount
	ev.Message = out.Message
	ev.IsPublic = out.IsPublic
	return ev, nil
}

// DecodeKudosReceived decodes a raw KudosReceived log
func DecodeKudosReceived(raw types.Log) (*models.KudosEvent, error) {
	var out kudosReceivedLog
	if err := unpackLog(contract.EventKudosReceived, &out, raw); err != nil {
		return nil, err
	}

	ev := newEvent(models.EventTypeKudosReceived, raw)
	ev.KudosID = out.KudosId
	ev.Sender = out.Sender
	ev.Recipient = out.Recipient
	ev.Amount = out.Amount
	return ev, nil
}

func newEvent(eventType string, raw types.Log) *models.KudosEvent {
	return &models.KudosEvent{
		EventType:   eventType,
		TxHash:      raw.TxHash,
		BlockNumber: raw.BlockNumber,
		LogIndex:    raw.Index,
		Removed:     raw.Removed,
		ObservedAt:  time.Now().UTC(),
	}
}

// unpackLog decodes data and indexed topics of a kudos contract log into out
func unpackLog(name string, out interface{}, raw types.Log) error {
	parsed, err := contract.KudosABI()
	if err != nil {
		return err
	}
	ev, ok := parsed.Events[name]
	if !ok {
		return fmt.Errorf("event %s not in abi", name)
	}
	if len(raw.Topics) == 0 || raw.Topics[0] != ev.ID {
		return fmt.Errorf("log is not a %s event", name)
	}

	if len(raw.Data) > 0 {
		if err := parsed.UnpackIntoInterface(out, name, raw.Data); err != nil {
			return fmt.Errorf("failed to unpack %s data: %w", name, err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, raw.Topics[1:]); err != nil {
		return fmt.Errorf("failed to parse %s topics: %w", name, err)
	}
	return nil
}
