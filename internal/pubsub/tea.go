package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Listener holds one subscription for the life of a Bubble Tea model. Each
// Next command yields at most one Event; return Next again from Update after
// handling it to keep listening.
type Listener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewListener subscribes to src until ctx ends.
func NewListener[T any](ctx context.Context, src Subscriber[T]) *Listener[T] {
	return &Listener[T]{ctx: ctx, ch: src.Subscribe(ctx)}
}

// Next waits for the following event. The command yields nil once the
// subscription is over, which ends the listen loop.
func (l *Listener[T]) Next() tea.Cmd {
	ctx, ch := l.ctx, l.ch
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return ev
		}
	}
}
