package chat

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into one, run after a quiet
// period. The directory search uses it to bound read volume against
// the store while a user is still typing.
type Debouncer struct {
	mu    sync.Mutex
	after time.Duration
	timer *time.Timer
}

func NewDebouncer(after time.Duration) *Debouncer {
	return &Debouncer{after: after}
}

// Do schedules fn, replacing any previously scheduled call.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.after, fn)
}

// Stop drops any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
