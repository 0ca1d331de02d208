package models

import (
	"math/big"
	"time"
)

// UserStats are the per-address aggregates maintained by the contract
type UserStats struct {
	ReceivedCount *big.Int `json:"received_count"`
	SentCount     *big.Int `json:"sent_count"`
	TotalReceived *big.Int `json:"total_received"` // Token base units
	TotalSent     *big.Int `json:"total_sent"`     // Token base units
}

// PlatformStats are the global aggregates maintained by the contract
type PlatformStats struct {
	TotalKudos  *big.Int `json:"total_kudos"`
	TotalAmount *big.Int `json:"total_amount"` // Token base units
	UserCount   *big.Int `json:"user_count"`
}

// StatsSnapshot is a point-in-time copy of PlatformStats kept in the journal
type StatsSnapshot struct {
	ID          int64         `json:"id"`
	TakenAt     time.Time     `json:"taken_at"`
	BlockNumber uint64        `json:"block_number,omitempty"`
	Stats       PlatformStats `json:"stats"`
}
