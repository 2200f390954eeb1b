// Package debounce coalesces bursts of events into a single call.
//
// Every Trigger restarts the countdown; when the countdown elapses without a
// new Trigger the callback runs once with the most recent value. Earlier
// values are dropped.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used for the availability check.
const DefaultDelay = 300 * time.Millisecond

// Debouncer delays calls to fn until Trigger has been quiet for delay.
// Safe for concurrent use. fn runs on a timer goroutine.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	value   T
	pending bool
	seq     uint64 // bumped on every Trigger/Cancel; stale timers compare against it
	stopped bool
}

// New creates a debouncer. A non-positive delay falls back to DefaultDelay.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Delay returns the configured quiet period.
func (d *Debouncer[T]) Delay() time.Duration {
	return d.delay
}

// Trigger records v as the pending value and restarts the countdown.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.seq++
	d.value = v
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Pending reports whether a value is waiting for the countdown.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops the pending value. Returns false if nothing was pending.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clearLocked()
}

// Stop cancels any pending value and ignores future Triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.stopped = true
}

func (d *Debouncer[T]) clearLocked() bool {
	was := d.pending
	d.seq++
	d.pending = false
	var zero T
	d.value = zero
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return was
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	var zero T
	d.value = zero
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}
