package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event types as emitted by the contract
const (
	EventTypeKudosSent     = "KudosSent"
	EventTypeKudosReceived = "KudosReceived"
)

// KudosEvent is a decoded KudosSent or KudosReceived log
type KudosEvent struct {
	// Identification
	EventType string   `json:"event_type"`
	KudosID   *big.Int `json:"kudos_id"`

	// Event data
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
	Message   string         `json:"message,omitempty"`   // KudosSent only
	IsPublic  bool           `json:"is_public,omitempty"` // KudosSent only

	// Transaction context
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	LogIndex    uint        `json:"log_index"`
	Removed     bool        `json:"removed,omitempty"` // Log reverted by a reorg
	ObservedAt  time.Time   `json:"observed_at"`
}
