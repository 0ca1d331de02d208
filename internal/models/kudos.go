package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kudos represents a kudos record as stored by the contract
type Kudos struct {
	// Identification (assigned by the contract)
	ID *big.Int `json:"id"`

	// Participants
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`

	// Payload
	Amount    *big.Int  `json:"amount"` // Token base units (18 decimals)
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsPublic  bool      `json:"is_public"`
}

// SendRequest is the user input for a kudos submission
// Amount is a human decimal string, converted to base units at submission
type SendRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Message   string `json:"message"`
	IsPublic  bool   `json:"is_public"`
}
