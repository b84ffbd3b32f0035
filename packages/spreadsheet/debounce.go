package spreadsheet

import (
	"sync"
	"time"
)

// DefaultDebounce is how long edit input must stay idle before the preview
// is recomputed.
const DefaultDebounce = 500 * time.Millisecond

// Timer is the part of *time.Timer the grid uses.
type Timer interface {
	Stop() bool
}

// Clock schedules the debounced preview; tests substitute a fake.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// debouncer runs a callback once its input has been idle for delay. Every
// Enqueue restarts the wait, and the callback is told which generation it
// belongs to so a caller that takes other locks first can still drop a run
// that was superseded in the meantime.
type debouncer struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	timer Timer
	gen   uint64
}

func newDebouncer(clock Clock, delay time.Duration) *debouncer {
	return &debouncer{clock: clock, delay: delay}
}

func (d *debouncer) Enqueue(fn func(gen uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() {
		if !d.Latest(gen) {
			return
		}
		fn(gen)
	})
}

// Latest reports whether gen is still the most recent Enqueue.
func (d *debouncer) Latest(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}

// Stop cancels the pending run, if any.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
