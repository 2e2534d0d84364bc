package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventStore persists analytics events.
type EventStore interface {
	AppendEvent(ctx context.Context, evt Event) error
}

// Recorder observes events that were accepted, e.g. to count them.
type Recorder interface {
	RecordEvent(evt Event)
}

// Emitter is a Tracker backed by an EventStore.
type Emitter struct {
	store    EventStore
	recorder Recorder
	clock    func() time.Time
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithRecorder attaches a recorder notified after each stored event.
func WithRecorder(recorder Recorder) EmitterOption {
	return func(e *Emitter) {
		e.recorder = recorder
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) EmitterOption {
	return func(e *Emitter) {
		e.clock = clock
	}
}

// NewEmitter creates a new event emitter.
func NewEmitter(store EventStore, opts ...EmitterOption) *Emitter {
	e := &Emitter{store: store, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// SendEvent records an event. It is a no-op when the store is nil.
func (e *Emitter) SendEvent(ctx context.Context, evt Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	evt.Action = strings.TrimSpace(evt.Action)
	evt.Category = strings.TrimSpace(evt.Category)
	if evt.Action == "" || evt.Category == "" {
		return fmt.Errorf("event action and category are required")
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	if err := e.store.AppendEvent(ctx, evt); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if e.recorder != nil {
		e.recorder.RecordEvent(evt)
	}
	return nil
}
