package chain

import (
	"math/big"
	"testing"

	"celokudos/internal/contract"
	"celokudos/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	logSender    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	logRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func kudosLog(t *testing.T, name string, first, second common.Address, values ...interface{}) types.Log {
	t.Helper()
	parsed, err := contract.KudosABI()
	require.NoError(t, err)
	ev := parsed.Events[name]

	data, err := ev.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)

	return types.Log{
		Address: testKudos,
		Topics: []common.Hash{
			ev.ID,
			common.BigToHash(big.NewInt(9)),
			common.BytesToHash(first.Bytes()),
			common.BytesToHash(second.Bytes()),
		},
		Data:        data,
		BlockNumber: 1234,
		TxHash:      common.HexToHash("0xfeed"),
		Index:       3,
	}
}

func TestDecodeKudosSent(t *testing.T) {
	raw := kudosLog(t, contract.EventKudosSent, logSender, logRecipient, big.NewInt(2e18), "thanks", true)

	ev, err := DecodeKudosSent(raw)
	require.NoError(t, err)

	assert.Equal(t, models.EventTypeKudosSent, ev.EventType)
	assert.Equal(t, int64(9), ev.KudosID.Int64())
	assert.Equal(t, logSender, ev.Sender)
	assert.Equal(t, logRecipient, ev.Recipient)
	assert.Equal(t, int64(2e18), ev.Amount.Int64())
	assert.Equal(t, "thanks", ev.Message)
	assert.True(t, ev.IsPublic)
	assert.Equal(t, uint64(1234), ev.BlockNumber)
	assert.Equal(t, uint(3), ev.LogIndex)
	assert.Equal(t, raw.TxHash, ev.TxHash)
	assert.False(t, ev.ObservedAt.IsZero())
}

func TestDecodeKudosReceived(t *testing.T) {
	// recipient is the second indexed topic on this event
	raw := kudosLog(t, contract.EventKudosReceived, logRecipient, logSender, big.NewInt(7))

	ev, err := DecodeKudosReceived(raw)
	require.NoError(t, err)

	assert.Equal(t, models.EventTypeKudosReceived, ev.EventType)
	assert.Equal(t, int64(9), ev.KudosID.Int64())
	assert.Equal(t, logSender, ev.Sender)
	assert.Equal(t, logRecipient, ev.Recipient)
	assert.Equal(t, int64(7), ev.Amount.Int64())
	assert.Empty(t, ev.Message)
}

func TestDecode_WrongEvent(t *testing.T) {
	raw := kudosLog(t, contract.EventKudosReceived, logRecipient, logSender, big.NewInt(7))

	_, err := DecodeKudosSent(raw)
	assert.Error(t, err)

	raw.Topics = nil
	_, err = DecodeKudosReceived(raw)
	assert.Error(t, err)
}
