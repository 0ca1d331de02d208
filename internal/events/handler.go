package events

import (
	"context"
	"log/slog"

	"celokudos/internal/metrics"
	"celokudos/internal/models"
)

// Handler defines the interface that every event consumer must implement
type Handler interface {
	// Handle processes a single observed event
	// A returned error is logged and never stops the observer
	Handle(ctx context.Context, event *models.KudosEvent) error

	// Name returns the handler name for logging
	Name() string
}

// LogHandler logs every event and does nothing else
type LogHandler struct{}

// Name implements Handler
func (LogHandler) Name() string { return "log" }

// Handle implements Handler
func (LogHandler) Handle(ctx context.Context, event *models.KudosEvent) error {
	attrs := []any{
		"kudos_id", event.KudosID.String(),
		"sender", event.Sender.Hex(),
		"recipient", event.Recipient.Hex(),
		"amount", event.Amount.String(),
		"tx_hash", event.TxHash.Hex(),
		"block", event.BlockNumber,
	}
	if event.EventType == models.EventTypeKudosSent {
		attrs = append(attrs, "message", event.Message, "is_public", event.IsPublic)
	}
	if event.Removed {
		attrs = append(attrs, "removed", true)
	}

	slog.Info(event.EventType+" event", attrs...)
	return nil
}

// Journal is the storage the JournalHandler appends to
type Journal interface {
	SaveKudosEvent(ctx context.Context, event *models.KudosEvent) error
}

// JournalHandler appends events to the event journal
type JournalHandler struct {
	journal Journal
}

// NewJournalHandler creates a handler writing to journal
func NewJournalHandler(journal Journal) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// Name implements Handler
func (h *JournalHandler) Name() string { return "journal" }

// Handle implements Handler
func (h *JournalHandler) Handle(ctx context.Context, event *models.KudosEvent) error {
	if err := h.journal.SaveKudosEvent(ctx, event); err != nil {
		return err
	}
	metrics.EventsJournaled.WithLabelValues(event.EventType).Inc()
	return nil
}
