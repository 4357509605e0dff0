// Package browse is the filter-and-pagination controller behind the document
// browser. It owns the current filter selection, the page window and the
// option lists, and turns every change into catalog queries run as Bubble Tea
// commands. State is only touched from Update.
package browse

import (
	"strconv"

	"github.com/stucon/stucon/internal/catalog"
)

// Field is one filter control, in cascade order.
type Field int

const (
	FieldScheme Field = iota
	FieldBranch
	FieldSemester
	FieldSubject
)

// Fields lists the controls in cascade order.
var Fields = []Field{FieldScheme, FieldBranch, FieldSemester, FieldSubject}

func (f Field) String() string {
	switch f {
	case FieldScheme:
		return "scheme"
	case FieldBranch:
		return "branch"
	case FieldSemester:
		return "semester"
	case FieldSubject:
		return "subject"
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

// Selection is the current filter. Empty values mean "no constraint".
type Selection struct {
	Scheme   string
	Branch   string
	Semester int // 1..8, 0 when unset
	Subject  string
}

// Get returns the value of f as an option id.
func (s Selection) Get(f Field) string {
	switch f {
	case FieldScheme:
		return s.Scheme
	case FieldBranch:
		return s.Branch
	case FieldSemester:
		if s.Semester == 0 {
			return ""
		}
		return strconv.Itoa(s.Semester)
	case FieldSubject:
		return s.Subject
	}
	return ""
}

// Set assigns id to f and clears what depends on it: a scheme change clears
// everything else, a branch or semester change clears only the subject.
// A semester id that is not 1..8 clears the semester.
func (s Selection) Set(f Field, id string) Selection {
	switch f {
	case FieldScheme:
		return Selection{Scheme: id}
	case FieldBranch:
		return Selection{Scheme: s.Scheme, Branch: id, Semester: s.Semester}
	case FieldSemester:
		sem, err := strconv.Atoi(id)
		if err != nil || sem < 1 || sem > 8 {
			sem = 0
		}
		return Selection{Scheme: s.Scheme, Branch: s.Branch, Semester: sem}
	case FieldSubject:
		if !s.SubjectEligible() {
			return s
		}
		s.Subject = id
	}
	return s
}

// SubjectEligible reports whether scheme, branch and semester are all set,
// the precondition for loading or holding a subject.
func (s Selection) SubjectEligible() bool {
	return s.Scheme != "" && s.Branch != "" && s.Semester != 0
}

// Query builds the document query for s and w.
func (s Selection) Query(w PageWindow) catalog.Query {
	return catalog.Query{
		Scheme:   s.Scheme,
		Branch:   s.Branch,
		Semester: s.Semester,
		Subject:  s.Subject,
		Limit:    w.Limit,
		Offset:   w.Offset,
	}
}

// PageWindow is the server-side page being shown. Offset is always a
// multiple of Limit.
type PageWindow struct {
	Limit  int
	Offset int
	Total  int
}

// Step returns the offset one page in dir (-1 or +1) and whether it is in
// range. Out-of-range steps are rejected, never clamped.
func (w PageWindow) Step(dir int) (int, bool) {
	if dir != -1 && dir != 1 {
		return w.Offset, false
	}
	candidate := w.Offset + dir*w.Limit
	if candidate < 0 || candidate >= w.Total {
		return w.Offset, false
	}
	return candidate, true
}

// Page is the 1-based page number.
func (w PageWindow) Page() int {
	if w.Limit <= 0 {
		return 1
	}
	return w.Offset/w.Limit + 1
}

// Pages is the number of pages, at least 1.
func (w PageWindow) Pages() int {
	if w.Limit <= 0 || w.Total <= 0 {
		return 1
	}
	return (w.Total + w.Limit - 1) / w.Limit
}

// lastOffset is the offset of the last page for the current total.
func (w PageWindow) lastOffset() int {
	if w.Total <= 0 || w.Limit <= 0 {
		return 0
	}
	return (w.Total - 1) / w.Limit * w.Limit
}

// ControlState is what a filter control shows.
type ControlState int

const (
	ControlDisabled ControlState = iota
	ControlLoading
	ControlReady
	ControlFailed
)

func (s ControlState) String() string {
	switch s {
	case ControlLoading:
		return "loading"
	case ControlReady:
		return "ready"
	case ControlFailed:
		return "error"
	}
	return "disabled"
}

// Control is one dropdown: its options, replaced wholesale on each load.
type Control struct {
	Options []catalog.Option
	State   ControlState
	Err     error
}

// Has reports whether id is one of the options. The empty id ("all") is
// always accepted.
func (c Control) Has(id string) bool {
	if id == "" {
		return true
	}
	for _, o := range c.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Label returns the display name of id, or id itself.
func (c Control) Label(id string) string {
	for _, o := range c.Options {
		if o.ID == id {
			return o.Name
		}
	}
	return id
}

// semesterControl is static: semesters are not fetched.
func semesterControl() Control {
	opts := make([]catalog.Option, 0, 8)
	for i := 1; i <= 8; i++ {
		n := strconv.Itoa(i)
		opts = append(opts, catalog.Option{ID: n, Name: "Semester " + n})
	}
	return Control{Options: opts, State: ControlReady}
}

// ResultsState is what the document list shows.
type ResultsState int

const (
	ResultsLoading ResultsState = iota
	ResultsReady
	ResultsEmpty
	ResultsFailed
)

func (s ResultsState) String() string {
	switch s {
	case ResultsReady:
		return "ready"
	case ResultsEmpty:
		return "empty"
	case ResultsFailed:
		return "error"
	}
	return "loading"
}

// Results is the current document page as shown, in response order.
type Results struct {
	Items []catalog.Document
	State ResultsState
	Err   error
}
