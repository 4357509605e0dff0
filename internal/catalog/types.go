// Package catalog is the HTTP client for the document catalog backend.
//
// The backend is inconsistent about response shapes: the same list may arrive
// bare or wrapped in an envelope ("strArr", "branchArr", "docArr", "items"),
// and the same field may be spelled branch_id, branchID or branchid. All of
// that is normalized here so callers only ever see Option, Document and Page.
package catalog

import (
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Option is one selectable value of a dropdown: a scheme, branch or subject.
type Option struct {
	ID   string
	Name string
}

// Document is the read-only summary of a catalog entry.
type Document struct {
	ID        string
	Title     string
	Type      string // "PDF", "DOCX", ...
	Publisher string
	Scheme    string
	BranchID  string
	Branch    string // display name, falls back to BranchID
	Semester  int
	SubjectID string
	Subject   string // display name, falls back to SubjectID
	Uploaded  time.Time
	Downloads int
}

// FileName is a local file name for d built from its title and type.
func (d Document) FileName() string {
	base := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, strings.TrimSpace(d.Title))
	base = strings.Trim(base, "._")
	if base == "" {
		base = "document-" + d.ID
	}
	if d.Type != "" {
		ext := "." + strings.ToLower(d.Type)
		if !strings.HasSuffix(strings.ToLower(base), ext) {
			base += ext
		}
	}
	return base
}

// Page is one window of a document search.
type Page struct {
	Items []Document
	Total int
}

// Query scopes a document search. Zero-valued fields are not sent, meaning
// "no constraint on this axis".
type Query struct {
	Scheme   string
	Branch   string
	Semester int
	Subject  string
	Limit    int
	Offset   int
}

// Values encodes q as URL query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Scheme != "" {
		v.Set("scheme", q.Scheme)
	}
	if q.Branch != "" {
		v.Set("branch", q.Branch)
	}
	if q.Semester > 0 {
		v.Set("sem", strconv.Itoa(q.Semester))
	}
	if q.Subject != "" {
		v.Set("subject", q.Subject)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// UploadRequest describes one document upload.
type UploadRequest struct {
	UserID    string
	SchemeID  string
	BranchID  string
	SubjectID string
	Semester  int
	Title     string
	FileType  string // "PDF", "DOC", "DOCX"
	Size      int64
	Body      io.Reader
}
