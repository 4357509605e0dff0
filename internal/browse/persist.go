package browse

import (
	"sync"

	"github.com/stucon/stucon/internal/session"
)

// prefsWriter orders preference writes issued from concurrent commands.
// Each write carries the sequence number it was issued with; a write whose
// number is older than the last one stored is dropped, so the store always
// ends with the newest selection regardless of completion order.
type prefsWriter struct {
	prefs Prefs

	mu      sync.Mutex
	issued  uint64 // touched only from Update
	written uint64
	stopped bool
}

// next returns the sequence number for a new write.
func (w *prefsWriter) next() uint64 {
	w.issued++
	return w.issued
}

// write stores p unless a newer write already landed or the writer was
// stopped. It reports whether p was stored.
func (w *prefsWriter) write(seq uint64, p session.Preferences) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || seq <= w.written {
		return false, nil
	}
	w.written = seq
	if err := w.prefs.SetFilterPreferences(p); err != nil {
		return false, err
	}
	return true, nil
}

// stop waits for a write in progress and drops every later one.
func (w *prefsWriter) stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}
