// Package autosave implements the draft auto-save engine: a quiet-period
// debouncer feeding a per-key serialized save loop with explicit save-status
// tracking. The engine never retries on its own; the next edit is the retry.
package autosave

import (
	"sync"
	"time"
)

// Debouncer coalesces a rapidly changing value: fn receives the most recent
// value only once the input has been quiet for the full delay. Nothing is
// emitted until the first Update, and Close cancels any pending emission.
type Debouncer[T any] struct {
	mu     sync.Mutex
	delay  time.Duration
	timer  *time.Timer
	latest T
	fn     func(T)
	closed bool
}

func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Update replaces the pending value and restarts the quiet period.
func (d *Debouncer[T]) Update(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.latest = v
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	v := d.latest
	fn := d.fn
	d.mu.Unlock()

	fn(v)
}

// Flush emits the pending value immediately if a timer is armed.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.closed || d.timer == nil || !d.timer.Stop() {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	v := d.latest
	fn := d.fn
	d.mu.Unlock()

	fn(v)
}

// Close cancels any pending emission. Further Updates are ignored.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
