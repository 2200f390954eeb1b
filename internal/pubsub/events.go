// Package pubsub fans typed snapshots out to subscribers and turns a
// subscription into Bubble Tea commands.
package pubsub

import (
	"context"
	"time"
)

// EventType tells a subscriber why an event was published.
type EventType string

const (
	// InitialEvent is the first snapshot a source publishes.
	InitialEvent EventType = "initial"
	// UpdatedEvent follows any later change.
	UpdatedEvent EventType = "updated"
)

// Event is one published payload. Seq increases by one per Publish on a
// broker, so a subscriber can tell how many events it missed.
type Event[T any] struct {
	Type    EventType
	Seq     uint64
	Payload T
	At      time.Time
}

// Subscriber hands out event channels that close when ctx ends.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}
