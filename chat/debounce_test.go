package chat

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Do(func() { calls.Add(1) })
	}

	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d; want 1 for a burst inside the quiet period", got)
	}
}

func TestDebouncerRunsAgainAfterQuietPeriod(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	d.Do(func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)
	d.Do(func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d; want 2", got)
	}
}

func TestDebouncerStopDropsPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Do(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d; want 0 after Stop", got)
	}
}
