// Package debounce delays a rapidly changing value until it stops changing.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used by the browse view.
const DefaultDelay = 1000 * time.Millisecond

// Debouncer holds at most one pending value and one timer. Each Submit
// replaces the pending value and restarts the timer; when the timer expires
// without a newer Submit, the callback receives the last submitted value.
//
// The callback runs on the timer's goroutine. A superseded value is never
// delivered.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fire    func(T)
	timer   *time.Timer
	gen     uint64
	latest  T
	pending bool
	stopped bool
}

// New creates a Debouncer that calls onStabilized after delay of quiet.
func New[T any](delay time.Duration, onStabilized func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{
		delay: delay,
		fire:  onStabilized,
	}
}

// Submit records v as the latest value and restarts the quiet period.
// Submit after Stop is ignored.
func (d *Debouncer[T]) Submit(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.latest = v
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.expire(gen) })
}

func (d *Debouncer[T]) expire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.latest
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fire(v)
}

// Flush delivers the pending value immediately, skipping the rest of the
// quiet period. It reports whether a value was delivered.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	v := d.latest
	d.pending = false
	d.mu.Unlock()

	d.fire(v)
	return true
}

// Pending reports whether a value is waiting for its quiet period to end.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels the pending timer and disables the Debouncer. It is safe to
// call more than once.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
