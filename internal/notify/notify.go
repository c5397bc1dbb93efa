// Package notify carries fire-and-forget badge and toast events from the
// session core to whatever view layer is listening.
package notify

import (
	"context"
	"time"
)

// Event names a state change the view may react to.
type Event string

const (
	EventCartUpdated        Event = "cart.updated"
	EventWishlistUpdated    Event = "wishlist.updated"
	EventComparisonUpdated  Event = "comparison.updated"
	EventComparisonRejected Event = "comparison.rejected"
	EventCheckoutState      Event = "checkout.state"
	EventCheckoutConfirmed  Event = "checkout.confirmed"
	EventCheckoutFailed     Event = "checkout.failed"
	EventThemeChanged       Event = "theme.changed"
	EventPersistenceFailed  Event = "storage.write_failed"
)

// Level mirrors the toast styles the storefront renders.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Payload is the body of a notification.
type Payload struct {
	Level   Level          `json:"level"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Notification is a recorded event.
type Notification struct {
	Event   Event     `json:"event"`
	Payload Payload   `json:"payload"`
	At      time.Time `json:"at"`
}

// Sink receives notifications. Implementations must not block.
type Sink interface {
	Notify(ctx context.Context, event Event, payload Payload)
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, event Event, payload Payload)

func (f Func) Notify(ctx context.Context, event Event, payload Payload) {
	if f != nil {
		f(ctx, event, payload)
	}
}

// Discard drops every notification.
var Discard Sink = Func(nil)

type multi []Sink

// Multi fans a notification out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, event Event, payload Payload) {
	for _, s := range m {
		s.Notify(ctx, event, payload)
	}
}
