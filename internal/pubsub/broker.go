package pubsub

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 16

type subscriber[T any] struct {
	ch   chan Event[T]
	stop func() bool
}

// offer queues ev, evicting the oldest queued event when the buffer is full.
// It reports whether an event was evicted. Callers hold the broker lock, so
// the evict-then-send pair never races another offer.
func (s *subscriber[T]) offer(ev Event[T]) (evicted bool) {
	for {
		select {
		case s.ch <- ev:
			return evicted
		default:
		}
		select {
		case <-s.ch:
			evicted = true
		default:
		}
	}
}

// Broker delivers events to every subscriber without blocking the publisher.
// A slow subscriber loses its oldest queued events, never the newest one.
type Broker[T any] struct {
	mu      sync.Mutex
	subs    map[uint64]*subscriber[T]
	nextID  uint64
	seq     uint64
	latest  *Event[T]
	dropped uint64
	closed  bool

	bufferSize int
	replay     bool
	now        func() time.Time
}

// Option configures a Broker.
type Option func(*brokerConfig)

type brokerConfig struct {
	bufferSize int
	replay     bool
}

// WithBuffer sets how many events each subscriber may have queued.
func WithBuffer(size int) Option {
	return func(c *brokerConfig) { c.bufferSize = size }
}

// WithReplayLatest hands the most recent event to each new subscriber, so a
// view subscribing late still starts from the current snapshot.
func WithReplayLatest() Option {
	return func(c *brokerConfig) { c.replay = true }
}

// NewBroker creates a broker.
func NewBroker[T any](opts ...Option) *Broker[T] {
	c := brokerConfig{bufferSize: defaultBufferSize}
	for _, opt := range opts {
		opt(&c)
	}
	return &Broker[T]{
		subs:       make(map[uint64]*subscriber[T]),
		bufferSize: max(c.bufferSize, 1),
		replay:     c.replay,
		now:        time.Now,
	}
}

// Subscribe returns a channel of events. It is closed when ctx ends or the
// broker closes; subscribing to a closed broker yields a closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber[T]{ch: make(chan Event[T], b.bufferSize)}
	if b.replay && b.latest != nil {
		sub.ch <- *b.latest
	}
	b.subs[id] = sub
	sub.stop = context.AfterFunc(ctx, func() { b.unsubscribe(id) })
	return sub.ch
}

func (b *Broker[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish stamps payload with the next sequence number and delivers it.
// Publishing after Close is a no-op.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.seq++
	ev := Event[T]{Type: eventType, Seq: b.seq, Payload: payload, At: b.now()}
	if b.replay {
		b.latest = &ev
	}
	for _, sub := range b.subs {
		if sub.offer(ev) {
			b.dropped++
		}
	}
}

// Close ends every subscription. It is safe to call more than once.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.stop()
		close(sub.ch)
		delete(b.subs, id)
	}
}

// SubscriberCount returns the number of open subscriptions.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many queued events were evicted from slow subscribers.
func (b *Broker[T]) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
