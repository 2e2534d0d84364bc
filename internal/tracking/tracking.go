// Package tracking records analytics events such as experiment enrollments.
package tracking

import (
	"context"
	"time"
)

// Event is one analytics event.
type Event struct {
	Action    string
	Category  string
	Timestamp time.Time
}

// Tracker accepts analytics events.
type Tracker interface {
	SendEvent(ctx context.Context, evt Event) error
}

// TrackerFunc adapts a function to Tracker.
type TrackerFunc func(ctx context.Context, evt Event) error

// SendEvent calls f.
func (f TrackerFunc) SendEvent(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Discard drops every event.
var Discard Tracker = TrackerFunc(func(context.Context, Event) error { return nil })
