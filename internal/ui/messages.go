// Package ui provides the Bubble Tea TUI for stucon.
package ui

import (
	"github.com/stucon/stucon/internal/browse"
	"github.com/stucon/stucon/internal/catalog"
)

// AuthDone is sent when a login or signup request finishes.
type AuthDone struct {
	Email string
	Err   error
}

// LoggedOut is sent after logout. The local session is cleared even when the
// backend call fails.
type LoggedOut struct {
	Err error
}

// DocumentLoaded is sent when detail metadata arrives.
type DocumentLoaded struct {
	ID  string
	Doc catalog.Document
	Err error
}

// Downloaded is sent when a download finishes.
type Downloaded struct {
	ID    string
	Path  string
	Bytes int64
	Err   error
}

// UploadOptionsLoaded carries a picker list for the upload form.
type UploadOptionsLoaded struct {
	Field   browse.Field
	Gen     uint64
	Options []catalog.Option
	Err     error
}

// Uploaded is sent when an upload finishes.
type Uploaded struct {
	Title string
	Err   error
}
