package kudos

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Leg names one of the two transactions of a submission
type Leg string

const (
	LegApproval Leg = "approval"
	LegSend     Leg = "send"
)

// TxStatus is the lifecycle of a single transaction leg
type TxStatus int

const (
	TxIdle       TxStatus = iota // Not started
	TxPending                    // Waiting for the wallet to sign and broadcast
	TxConfirming                 // Broadcast, waiting for inclusion
	TxConfirmed                  // Included with a successful receipt
	TxFailed                     // Rejected, failed to broadcast or reverted
)

func (s TxStatus) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxPending:
		return "pending"
	case TxConfirming:
		return "confirming"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow
func (s TxStatus) Terminal() bool {
	return s == TxConfirmed || s == TxFailed
}

// TxState is the observable state of one leg
type TxState struct {
	Status TxStatus
	Hash   common.Hash
	Err    error
}

// Update is delivered to subscribers on every transition
type Update struct {
	Leg   Leg
	State TxState
}

// Tracker holds the per-leg state of submissions. It is owned by the caller
// and handed to SendKudos with WithTracker.
type Tracker struct {
	mu     sync.Mutex
	states map[Leg]TxState
	subs   map[int]chan Update
	nextID int
}

// NewTracker creates a Tracker with both legs idle
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[Leg]TxState),
		subs:   make(map[int]chan Update),
	}
}

// State returns the current state of a leg
func (t *Tracker) State(leg Leg) TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[leg]
}

// Subscribe returns a channel of updates and a func to stop receiving them.
// Updates are dropped for a subscriber whose buffer is full; State always
// reflects the latest transition.
func (t *Tracker) Subscribe(buffer int) (<-chan Update, func()) {
	ch := make(chan Update, buffer)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// Reset returns both legs to idle
func (t *Tracker) Reset() {
	t.set(LegApproval, TxState{Status: TxIdle})
	t.set(LegSend, TxState{Status: TxIdle})
}

func (t *Tracker) set(leg Leg, state TxState) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[leg] = state
	for _, ch := range t.subs {
		select {
		case ch <- Update{Leg: leg, State: state}:
		default:
		}
	}
}
