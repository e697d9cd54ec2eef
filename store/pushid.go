package store

import (
	"crypto/rand"
	"sync"
	"time"
)

// Push ids are 20 characters: 8 encoding the millisecond timestamp
// followed by 12 random characters. The alphabet is ordered by ASCII
// value so ids sort lexicographically by creation time; ids generated
// within the same millisecond reuse the previous random suffix
// incremented by one, keeping them monotonic.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

var pushMu sync.Mutex
var lastPushMs int64
var lastRand [12]int

// NewPushID returns a fresh push id for the given creation time.
func NewPushID(now time.Time) string {
	pushMu.Lock()
	defer pushMu.Unlock()

	ms := now.UnixMilli()
	if ms != lastPushMs {
		lastPushMs = ms
		var buf [12]byte
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand is documented never to fail on supported
			// platforms; fall back to the clock if it somehow does.
			for i := range buf {
				buf[i] = byte(ms >> (i % 8))
			}
		}
		for i := range lastRand {
			lastRand[i] = int(buf[i]) % 64
		}
	} else {
		// Same millisecond: increment the suffix.
		for i := 11; i >= 0; i-- {
			if lastRand[i] != 63 {
				lastRand[i]++
				break
			}
			lastRand[i] = 0
		}
	}

	id := make([]byte, 20)
	for i := 7; i >= 0; i-- {
		id[i] = pushAlphabet[ms%64]
		ms /= 64
	}
	for i, r := range lastRand {
		id[8+i] = pushAlphabet[r]
	}
	return string(id)
}
