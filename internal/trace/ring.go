package trace

import (
	"sync"
	"time"
)

// DefaultRingSize is the default ring capacity.
const DefaultRingSize = 256

// Ring is a fixed-size circular buffer of Events.
// Goroutine-safe: preference writes record from command goroutines.
type Ring struct {
	mu    sync.Mutex
	buf   []Event
	head  int // next write position
	count int
	stats map[Kind]int
}

// NewRing creates a ring with the given capacity.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{
		buf:   make([]Event, size),
		stats: make(map[Kind]int),
	}
}

// Record stores e, overwriting the oldest event when full. Sets Time if zero.
// A nil Ring ignores the call.
func (r *Ring) Record(e Event) {
	if r == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.stats[e.Kind]++
}

// Last returns the n most recent events, oldest first.
func (r *Ring) Last(n int) []Event {
	if r == nil || n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	out := make([]Event, n)
	start := (r.head - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Stats returns lifetime counts per kind, including evicted events.
func (r *Ring) Stats() map[Kind]int {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[Kind]int, len(r.stats))
	for k, v := range r.stats {
		cp[k] = v
	}
	return cp
}

// Len returns the number of events currently held.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	if r == nil {
		return 0
	}
	return len(r.buf)
}
