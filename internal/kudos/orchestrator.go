// Package kudos sequences a kudos submission: allowance check, optional
// token approval, then the sendKudos call.
package kudos

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"celokudos/internal/metrics"
	"celokudos/internal/models"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// Status is a human-readable progress message reported during a submission
type Status string

const (
	StatusApproving      Status = "approving"
	StatusSending        Status = "sending"
	StatusSent           Status = "sent"
	StatusApprovalFailed Status = "approval failed"
	StatusSendFailed     Status = "send failed"
)

// StatusFunc receives progress messages
type StatusFunc func(Status)

// Ledger is the chain surface a submission needs
type Ledger interface {
	// Allowance reads the token allowance granted by owner to spender
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	// Approve submits a token approval signed by the session
	Approve(ctx context.Context, session *wallet.Session, spender common.Address, amount *big.Int) (common.Hash, error)

	// SendKudos submits the kudos transaction signed by the session
	SendKudos(ctx context.Context, session *wallet.Session, recipient common.Address, amount *big.Int, message string, isPublic bool) (common.Hash, error)

	// WaitMined blocks until the transaction has a receipt
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Result describes what a successful submission put on chain
type Result struct {
	ID         uuid.UUID
	Amount     *big.Int
	ApprovalTx common.Hash // Zero when the allowance already covered the amount
	SendTx     common.Hash
}

// Approved reports whether an approval transaction was issued
func (r *Result) Approved() bool {
	return r.ApprovalTx != (common.Hash{})
}

// SendOption customises a single submission
type SendOption func(*sendConfig)

type sendConfig struct {
	onStatus StatusFunc
	tracker  *Tracker
}

// WithStatus reports progress to fn
func WithStatus(fn StatusFunc) SendOption {
	return func(c *sendConfig) {
		if fn != nil {
			c.onStatus = fn
		}
	}
}

// WithTracker records per-leg transaction state in t, including the
// confirmation of the send leg after SendKudos returns
func WithTracker(t *Tracker) SendOption {
	return func(c *sendConfig) {
		c.tracker = t
	}
}

// DefaultConfirmTimeout bounds the background wait for the send receipt
const DefaultConfirmTimeout = 5 * time.Minute

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithConfirmTimeout limits how long the send leg is followed after
// SendKudos returns. Non-positive values keep the default.
func WithConfirmTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.confirmTimeout = d
		}
	}
}

// Orchestrator submits kudos against a single kudos contract
type Orchestrator struct {
	ledger         Ledger
	kudosContract  common.Address
	confirmTimeout time.Duration
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(ledger Ledger, kudosContract common.Address, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:         ledger,
		kudosContract:  kudosContract,
		confirmTimeout: DefaultConfirmTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendKudos validates the request, approves the kudos contract to spend the
// amount if the current allowance is short, and submits sendKudos.
// Steps run strictly in order and nothing is retried.
func (o *Orchestrator) SendKudos(ctx context.Context, session *wallet.Session, req models.SendRequest, opts ...SendOption) (*Result, error) {
	cfg := sendConfig{onStatus: func(Status) {}}
	for _, opt := range opts {
		opt(&cfg)
	}

	recipient, amount, err := Validate(session, req)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result := &Result{ID: uuid.New(), Amount: amount}
	owner := session.Address()
	log := slog.With(
		"submission_id", result.ID.String(),
		"sender", owner.Hex(),
		"recipient", recipient.Hex(),
		"amount", FormatAmount(amount),
	)
	cfg.tracker.Reset()

	log.Debug("Submitting kudos", "is_public", req.IsPublic)

	// A failed read counts as zero allowance: the flow asks for approval
	// rather than assuming one exists.
	allowance, err := o.ledger.Allowance(ctx, owner, o.kudosContract)
	if err != nil {
		metrics.AllowanceReadFailures.Inc()
		log.Warn("Allowance read failed, treating as zero", "error", err)
		allowance = new(big.Int)
	}

	if allowance.Cmp(amount) < 0 {
		hash, err := o.approve(ctx, session, amount, cfg, log)
		if err != nil {
			metrics.SubmissionsTotal.WithLabelValues("approval_failed").Inc()
			return nil, err
		}
		result.ApprovalTx = hash
	} else {
		metrics.ApprovalsSkipped.Inc()
		log.Debug("Allowance covers amount, skipping approval", "allowance", allowance.String())
	}

	cfg.onStatus(StatusSending)
	cfg.tracker.set(LegSend, TxState{Status: TxPending})

	hash, err := o.ledger.SendKudos(ctx, session, recipient, amount, req.Message, req.IsPublic)
	if err != nil {
		cfg.tracker.set(LegSend, TxState{Status: TxFailed, Err: err})
		cfg.onStatus(StatusSendFailed)
		metrics.SubmissionsTotal.WithLabelValues("send_failed").Inc()
		log.Error("sendKudos transaction failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	metrics.TransactionsSubmitted.WithLabelValues(string(LegSend)).Inc()

	result.SendTx = hash
	cfg.tracker.set(LegSend, TxState{Status: TxConfirming, Hash: hash})
	cfg.onStatus(StatusSent)
	metrics.SubmissionsTotal.WithLabelValues("sent").Inc()

	log.Info("Kudos sent",
		"tx_hash", hash.Hex(),
		"approval_tx", result.ApprovalTx.Hex(),
	)

	if cfg.tracker != nil {
		// outlives the caller's context, but not confirmTimeout
		confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.confirmTimeout)
		go func() {
			defer cancel()
			o.confirm(confirmCtx, cfg.tracker, LegSend, hash, log)
		}()
	}

	return result, nil
}

// approve submits the approval and waits for its receipt; the kudos
// contract can only pull tokens once the allowance is on chain
func (o *Orchestrator) approve(ctx context.Context, session *wallet.Session, amount *big.Int, cfg sendConfig, log *slog.Logger) (common.Hash, error) {
	cfg.onStatus(StatusApproving)
	cfg.tracker.set(LegApproval, TxState{Status: TxPending})

	fail := func(hash common.Hash, err error) (common.Hash, error) {
		cfg.tracker.set(LegApproval, TxState{Status: TxFailed, Hash: hash, Err: err})
		cfg.onStatus(StatusApprovalFailed)
		log.Error("Approval failed", "tx_hash", hash.Hex(), "error", err)
		return common.Hash{}, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}

	hash, err := o.ledger.Approve(ctx, session, o.kudosContract, amount)
	if err != nil {
		return fail(common.Hash{}, err)
	}
	metrics.TransactionsSubmitted.WithLabelValues(string(LegApproval)).Inc()
	cfg.tracker.set(LegApproval, TxState{Status: TxConfirming, Hash: hash})
	log.Info("Approval submitted", "tx_hash", hash.Hex())

	receipt, err := o.ledger.WaitMined(ctx, hash)
	if err != nil {
		return fail(hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(hash, fmt.Errorf("approval reverted in block %s", receipt.BlockNumber))
	}

	cfg.tracker.set(LegApproval, TxState{Status: TxConfirmed, Hash: hash})
	return hash, nil
}

// confirm follows a submitted leg to its receipt
func (o *Orchestrator) confirm(ctx context.Context, tracker *Tracker, leg Leg, hash common.Hash, log *slog.Logger) {
	receipt, err := o.ledger.WaitMined(ctx, hash)
	if err != nil {
		tracker.set(leg, TxState{Status: TxFailed, Hash: hash, Err: err})
		log.Error("Failed to confirm transaction", "leg", leg, "tx_hash", hash.Hex(), "error", err)
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		err := fmt.Errorf("transaction reverted in block %s", receipt.BlockNumber)
		tracker.set(leg, TxState{Status: TxFailed, Hash: hash, Err: err})
		log.Error("Transaction reverted", "leg", leg, "tx_hash", hash.Hex())
		return
	}

	tracker.set(leg, TxState{Status: TxConfirmed, Hash: hash})
	log.Info("Transaction confirmed", "leg", leg, "tx_hash", hash.Hex(), "block", receipt.BlockNumber)
}

// Validate checks a request against the session without touching the
// network and returns the parsed recipient and base-unit amount
func Validate(session *wallet.Session, req models.SendRequest) (common.Address, *big.Int, error) {
	if !session.Connected() || !session.CanSign() {
		return common.Address{}, nil, ErrNotConnected
	}

	recipientStr := strings.TrimSpace(req.Recipient)
	if recipientStr == "" || strings.TrimSpace(req.Amount) == "" || strings.TrimSpace(req.Message) == "" {
		return common.Address{}, nil, ErrInvalidInput
	}
	if !common.IsHexAddress(recipientStr) {
		return common.Address{}, nil, fmt.Errorf("%w: invalid recipient address %q", ErrInvalidInput, recipientStr)
	}

	recipient := common.HexToAddress(recipientStr)
	if recipient == session.Address() {
		return common.Address{}, nil, ErrSelfSend
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}

	return recipient, amount, nil
}

// CanSend reports whether a signing session exists and the amount parses
func CanSend(session *wallet.Session, amount string) bool {
	if !session.Connected() || !session.CanSign() {
		return false
	}
	_, err := ParseAmount(amount)
	return err == nil
}
