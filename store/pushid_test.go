package store

import (
	"sort"
	"strings"
	"testing"
	"time"
)

func TestNewPushIDShape(t *testing.T) {
	id := NewPushID(time.Now())
	if len(id) != 20 {
		t.Fatalf("NewPushID length = %d; want 20", len(id))
	}
	for _, r := range id {
		if !strings.ContainsRune(pushAlphabet, r) {
			t.Errorf("NewPushID produced %q, which is outside the alphabet", r)
		}
	}
}

func TestNewPushIDOrderedAcrossMilliseconds(t *testing.T) {
	base := time.Now()
	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, NewPushID(base.Add(time.Duration(i)*time.Millisecond)))
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("ids generated at increasing times are not lexicographically sorted: %v", ids)
	}
}

func TestNewPushIDMonotonicWithinMillisecond(t *testing.T) {
	now := time.Now()
	prev := NewPushID(now)
	for i := 0; i < 100; i++ {
		id := NewPushID(now)
		if id <= prev {
			t.Fatalf("same-millisecond id %q is not greater than previous %q", id, prev)
		}
		if id[:8] != prev[:8] {
			t.Fatalf("timestamp prefix changed within one millisecond: %q vs %q", id[:8], prev[:8])
		}
		prev = id
	}
}

func TestNewPushIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewPushID(now)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
