package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

type subscription struct {
	id      uint64
	handler EventHandler
	types   []TaskEventType // empty means every type
}

func (s subscription) wants(t TaskEventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

// InMemoryEventEmitter delivers task events synchronously to its
// subscribers, in subscription order, on the emitting goroutine. Registry
// events are emitted from batch workers, so a panicking handler is recovered
// and reported as that handler's error.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no subscribers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{logger: logger.With("component", "task_events")}
}

// Subscribe delivers events of the given types to handler, or every event
// when no types are given. The returned func removes the subscription and is
// safe to call more than once.
func (e *InMemoryEventEmitter) Subscribe(handler EventHandler, types ...TaskEventType) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription{id: id, handler: handler, types: slices.Clone(types)})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.subs = slices.DeleteFunc(e.subs, func(s subscription) bool { return s.id == id })
	}
}

// Subscribers reports how many subscriptions are active.
func (e *InMemoryEventEmitter) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// EmitEvent hands event to every matching subscriber. A failing subscriber
// does not stop delivery to the rest; all failures are returned joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskEvent) error {
	e.mu.RLock()
	subs := slices.Clone(e.subs)
	e.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if !s.wants(event.Type) {
			continue
		}
		if err := deliver(ctx, s.handler, event); err != nil {
			e.logger.Error("task event handler failed",
				slog.Uint64("subscription", s.id),
				slog.String("event_type", string(event.Type)),
				slog.String("task_id", event.TaskID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, h EventHandler, event *TaskEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("event handler panicked: %v", p)
		}
	}()
	return h.HandleEvent(ctx, event)
}
