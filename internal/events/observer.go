// Package events observes KudosSent and KudosReceived logs and hands them to
// handlers. Observers are fire-and-forget: nothing they do feeds back into
// the send flow or into query results.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"celokudos/internal/metrics"
	"celokudos/internal/models"

	"github.com/ethereum/go-ethereum/event"
)

// ErrAlreadyStarted is returned by Start on a running observer
var ErrAlreadyStarted = errors.New("observer already started")

// Source produces decoded contract events
type Source interface {
	WatchKudosSent(ctx context.Context, sink chan<- *models.KudosEvent) (event.Subscription, error)
	WatchKudosReceived(ctx context.Context, sink chan<- *models.KudosEvent) (event.Subscription, error)
}

// Observer subscribes to both kudos events and dispatches them to handlers
type Observer struct {
	source   Source
	handlers []Handler

	mu     sync.Mutex
	cancel context.CancelFunc
	subs   []event.Subscription
	wg     sync.WaitGroup
}

// NewObserver creates an observer. Without handlers it only logs.
func NewObserver(source Source, handlers ...Handler) *Observer {
	if len(handlers) == 0 {
		handlers = []Handler{LogHandler{}}
	}
	return &Observer{
		source:   source,
		handlers: handlers,
	}
}

// Handlers returns the registered handlers (for inspection/testing)
func (o *Observer) Handlers() []Handler {
	return o.handlers
}

// Start attaches to KudosSent and KudosReceived
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	sink := make(chan *models.KudosEvent, 64)

	sent, err := o.source.WatchKudosSent(ctx, sink)
	if err != nil {
		cancel()
		return err
	}
	received, err := o.source.WatchKudosReceived(ctx, sink)
	if err != nil {
		sent.Unsubscribe()
		cancel()
		return err
	}

	o.cancel = cancel
	o.subs = []event.Subscription{sent, received}

	o.wg.Add(1)
	go o.run(ctx, sink, sent.Err(), received.Err())

	slog.Info("Event observer started", "handlers", len(o.handlers))
	return nil
}

// Stop detaches from both events and waits for in-flight dispatch
func (o *Observer) Stop() {
	o.mu.Lock()
	if o.cancel == nil {
		o.mu.Unlock()
		return
	}
	for _, sub := range o.subs {
		sub.Unsubscribe()
	}
	o.cancel()
	o.cancel = nil
	o.subs = nil
	o.mu.Unlock()

	o.wg.Wait()
	slog.Info("Event observer stopped")
}

func (o *Observer) run(ctx context.Context, sink <-chan *models.KudosEvent, sentErr, receivedErr <-chan error) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-sentErr:
			if ok && err != nil {
				o.subscriptionFailed(models.EventTypeKudosSent, err)
			}
			sentErr = nil
		case err, ok := <-receivedErr:
			if ok && err != nil {
				o.subscriptionFailed(models.EventTypeKudosReceived, err)
			}
			receivedErr = nil
		case ev := <-sink:
			o.dispatch(ctx, ev)
		}
	}
}

func (o *Observer) dispatch(ctx context.Context, ev *models.KudosEvent) {
	metrics.EventsObserved.WithLabelValues(ev.EventType).Inc()

	for _, handler := range o.handlers {
		if err := handler.Handle(ctx, ev); err != nil {
			metrics.ErrorsTotal.WithLabelValues("events").Inc()
			slog.Error("Event handler failed",
				"handler", handler.Name(),
				"event", ev.EventType,
				"tx_hash", ev.TxHash.Hex(),
				"error", err,
			)
			// Continue with the other handlers
		}
	}
}

func (o *Observer) subscriptionFailed(name string, err error) {
	metrics.ErrorsTotal.WithLabelValues("events").Inc()
	slog.Error("Event subscription ended", "event", name, "error", err)
}
