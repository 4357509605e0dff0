// Package trace records what the browse controller did with the catalog:
// requests issued, responses applied, responses discarded as stale, and
// preference writes. Events live in a fixed-size ring that backs the debug
// overlay; durable logging goes through internal/logging.
package trace

import "time"

// Kind identifies the category of a trace event.
// Dot-delimited: "<subsystem>.<action>".
type Kind string

const (
	KindRequest  Kind = "catalog.request"
	KindApplied  Kind = "catalog.applied"
	KindFailed   Kind = "catalog.failed"
	KindStale    Kind = "catalog.stale"
	KindNoop     Kind = "page.noop"
	KindPrefs    Kind = "prefs.write"
	KindPrefsErr Kind = "prefs.error"
)

// Event is one trace record. Every field except Kind and Time is optional.
type Event struct {
	Time  time.Time
	Kind  Kind
	Op    string // "schemes", "branches", "subjects", "documents"
	Gen   uint64 // request generation for Op
	Dur   time.Duration
	Count int
	Err   string
	Msg   string
}
