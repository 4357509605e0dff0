package browse

import (
	"time"

	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/session"
)

// PrefsLoaded carries the persisted selection read at startup.
type PrefsLoaded struct {
	Epoch uint64 // controller that asked
	Prefs session.Preferences
	Err   error
}

// SchemesLoaded is sent when a scheme list request finishes.
type SchemesLoaded struct {
	Gen     uint64
	Options []catalog.Option
	Dur     time.Duration
	Err     error
}

// BranchesLoaded is sent when a branch list request finishes.
type BranchesLoaded struct {
	Gen     uint64
	Scheme  string // scope the list was requested for
	Options []catalog.Option
	Dur     time.Duration
	Err     error
}

// SubjectsLoaded is sent when a subject list request finishes.
type SubjectsLoaded struct {
	Gen     uint64
	Options []catalog.Option
	Dur     time.Duration
	Err     error
}

// DocumentsLoaded is sent when a document search finishes.
type DocumentsLoaded struct {
	Gen  uint64
	Page catalog.Page
	Dur  time.Duration
	Err  error

	// PrevOffset is restored if a page navigation fails.
	PrevOffset int
	Paging     bool
}

// PrefsSaved is sent after a best-effort preference write.
type PrefsSaved struct {
	Seq uint64
	Err error
}
