// Package wallet owns the connected-account session. A Session is passed
// explicitly to every operation that needs an address or a signer.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNotConnected is returned when a signer is requested from a session without one
	ErrNotConnected = errors.New("wallet not connected")
	// ErrNoConnector is returned when no configured connector can produce a session
	ErrNoConnector = errors.New("no wallet connector available")
)

// Session is a connected wallet: an address plus the key that signs for it
type Session struct {
	mu sync.RWMutex

	address   common.Address
	chainID   *big.Int
	connector string
	auto      bool
	key       *ecdsa.PrivateKey
}

// NewSession creates a signing session for the given key
func NewSession(key *ecdsa.PrivateKey, chainID *big.Int, connector string, auto bool) *Session {
	return &Session{
		address:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:   new(big.Int).Set(chainID),
		connector: connector,
		auto:      auto,
		key:       key,
	}
}

// NewWatchSession creates a read-only session bound to an address.
// It reports Connected but cannot sign.
func NewWatchSession(address common.Address) *Session {
	return &Session{address: address, connector: "watch"}
}

// Connected reports whether the session has an account
func (s *Session) Connected() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address != (common.Address{})
}

// Address returns the connected address, zero when disconnected
func (s *Session) Address() common.Address {
	if s == nil {
		return common.Address{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Connector returns the name of the connector that opened the session
func (s *Session) Connector() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connector
}

// AutoConnected reports whether the session was opened without user interaction
func (s *Session) AutoConnected() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auto
}

// CanSign reports whether the session holds a signing key
func (s *Session) CanSign() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// TransactOpts builds a transactor bound to ctx for a single write
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if s == nil {
		return nil, ErrNotConnected
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, ErrNotConnected
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Disconnect drops the key and the address
func (s *Session) Disconnect() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
	s.address = common.Address{}
}
