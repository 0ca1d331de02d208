// Package ui is the terminal presentation of the kudos client: the send
// form state machine and renderers for records and stats.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"celokudos/internal/kudos"
	"celokudos/internal/models"
	"celokudos/internal/wallet"
)

// ErrBusy is returned by Submit while a submission is in flight
var ErrBusy = errors.New("a submission is already in progress")

// Phase is the state of the form's current submission
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseApproving
	PhaseSending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseApproving:
		return "approving"
	case PhaseSending:
		return "sending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Busy reports whether a submission is in flight
func (p Phase) Busy() bool {
	return p == PhaseSubmitting || p == PhaseApproving || p == PhaseSending
}

// Status lines shown under the form
const (
	StatusSending    = "Sending..."
	StatusSent       = "Kudos sent!"
	StatusFailedText = "Failed to send kudos: "
)

// Sender submits kudos. *kudos.Orchestrator satisfies it.
type Sender interface {
	SendKudos(ctx context.Context, session *wallet.Session, req models.SendRequest, opts ...kudos.SendOption) (*kudos.Result, error)
}

// Form collects the send inputs and tracks one submission at a time
type Form struct {
	Recipient string
	Amount    string
	Message   string
	IsPublic  bool

	sender  Sender
	session *wallet.Session
	tracker *kudos.Tracker
	onPhase func(Phase)

	mu     sync.Mutex
	phase  Phase
	status string
	result *kudos.Result
}

// FormOption configures a Form
type FormOption func(*Form)

// WithPhaseFunc reports every phase change to fn. fn runs under the form
// lock and must not call back into the form.
func WithPhaseFunc(fn func(Phase)) FormOption {
	return func(f *Form) {
		f.onPhase = fn
	}
}

// WithFormTracker passes t to every submission
func WithFormTracker(t *kudos.Tracker) FormOption {
	return func(f *Form) {
		f.tracker = t
	}
}

// NewForm creates an idle form. Kudos are public unless unchecked.
func NewForm(sender Sender, session *wallet.Session, opts ...FormOption) *Form {
	f := &Form{
		IsPublic: true,
		sender:   sender,
		session:  session,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Phase returns the current phase
func (f *Form) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Status returns the status line, empty before the first submission
func (f *Form) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Result returns the outcome of the last successful submission
func (f *Form) Result() *kudos.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// CanSubmit reports whether the submit action is enabled
func (f *Form) CanSubmit() bool {
	return !f.Phase().Busy()
}

// ButtonLabel is the submit action's label for the current phase
func (f *Form) ButtonLabel() string {
	if f.Phase().Busy() {
		return StatusSending
	}
	return "Send Kudos"
}

// Request returns the inputs as a send request
func (f *Form) Request() models.SendRequest {
	return models.SendRequest{
		Recipient: f.Recipient,
		Amount:    f.Amount,
		Message:   f.Message,
		IsPublic:  f.IsPublic,
	}
}

// Submit runs one submission to completion. It is refused with ErrBusy
// while another submission is in flight.
func (f *Form) Submit(ctx context.Context) (*kudos.Result, error) {
	f.mu.Lock()
	if f.phase.Busy() {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.result = nil
	f.status = StatusSending
	f.transition(PhaseSubmitting)
	req := f.Request()
	f.mu.Unlock()

	opts := []kudos.SendOption{kudos.WithStatus(f.onStatus)}
	if f.tracker != nil {
		opts = append(opts, kudos.WithTracker(f.tracker))
	}

	result, err := f.sender.SendKudos(ctx, f.session, req, opts...)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.status = StatusFailedText + err.Error()
		f.transition(PhaseFailed)
		return nil, err
	}
	f.result = result
	f.status = StatusSent
	f.transition(PhaseSucceeded)
	return result, nil
}

// onStatus maps orchestrator progress onto phases. Failure statuses are
// ignored here: the returned error settles the submission.
func (f *Form) onStatus(status kudos.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch status {
	case kudos.StatusApproving:
		f.transition(PhaseApproving)
	case kudos.StatusSending:
		f.transition(PhaseSending)
	}
}

// transition must be called with mu held
func (f *Form) transition(next Phase) {
	if f.phase == next {
		return
	}
	f.phase = next
	if f.onPhase != nil {
		f.onPhase(next)
	}
}

// Render writes the button label and status line
func (f *Form) Render(w io.Writer) {
	fmt.Fprintf(w, "[%s]\n", f.ButtonLabel())
	if status := f.Status(); status != "" {
		fmt.Fprintln(w, status)
	}
}
