package tablesync

import (
	"sync"
	"time"
)

// Debouncer runs fn once the window has elapsed without another Trigger.
// Each Trigger cancels the pending run and schedules a new one.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	fn      func()
	timer   *time.Timer
	gen     uint64 // identifies the most recently scheduled run
	pending bool
	stopped bool
}

// NewDebouncer creates a debouncer that calls fn after window of quiet.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

// Trigger cancels any pending run and schedules fn after the window.
func (d *Debouncer) Trigger() {
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
	d.pending = true
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		// A timer that already fired may be waiting on the lock while a newer
		// Trigger or Cancel runs; only the latest generation may proceed.
		if d.stopped || !d.pending || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.mu.Unlock()

		d.fn()
	})
}

// Cancel drops the pending run, if any, and reports whether one was dropped.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending run; later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() bool {
	if !d.pending {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending = false
	return true
}
