package browse

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/logging"
	"github.com/stucon/stucon/internal/session"
	"github.com/stucon/stucon/internal/trace"
)

// DefaultLimit is the page size when none is configured.
const DefaultLimit = 20

// Catalog is the read side of the catalog service.
type Catalog interface {
	ListSchemes(ctx context.Context) ([]catalog.Option, error)
	ListBranches(ctx context.Context, scheme string) ([]catalog.Option, error)
	ListSubjects(ctx context.Context, scheme, branch string, sem int) ([]catalog.Option, error)
	SearchDocuments(ctx context.Context, q catalog.Query) (catalog.Page, error)
}

// Prefs persists the filter selection.
type Prefs interface {
	FilterPreferences() (session.Preferences, error)
	SetFilterPreferences(p session.Preferences) error
}

// query kinds, each with its own generation counter
type kind int

const (
	kindSchemes kind = iota
	kindBranches
	kindSubjects
	kindDocuments
	numKinds
)

func (k kind) String() string {
	return [...]string{"schemes", "branches", "subjects", "documents"}[k]
}

// initialization steps; stepDone once the chain finished or the user took over
type step int

const (
	stepPrefs step = iota
	stepSchemes
	stepBranches
	stepDocuments
	stepSubjects
	stepDone
)

// Controller drives the document browser. It is not safe for concurrent
// use: call it only from a Bubble Tea Update.
type Controller struct {
	ctx   context.Context
	cat   Catalog
	prefs Prefs
	ring  *trace.Ring
	log   *log.Logger

	sel      Selection
	win      PageWindow
	controls [4]Control
	results  Results

	epoch  uint64
	gen    [numKinds]uint64
	step   step
	saved  session.Preferences // preferences read at startup
	writer *prefsWriter
}

// Options configures a Controller. Prefs and Ring may be nil.
type Options struct {
	Catalog Catalog
	Prefs   Prefs
	Ring    *trace.Ring
	Limit   int

	// Epoch must differ between controllers that share one message loop, so
	// a response to a replaced controller can never match a current
	// generation.
	Epoch uint64
}

// New creates a controller. ctx bounds every command it issues.
func New(ctx context.Context, opts Options) *Controller {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	c := &Controller{
		ctx:   ctx,
		cat:   opts.Catalog,
		prefs: opts.Prefs,
		ring:  opts.Ring,
		log:   logging.WithPrefix("browse"),
		win:   PageWindow{Limit: limit},
		epoch: opts.Epoch,
	}
	for k := range c.gen {
		c.gen[k] = opts.Epoch << 32
	}
	if opts.Prefs != nil {
		c.writer = &prefsWriter{prefs: opts.Prefs}
	}
	c.controls[FieldScheme] = Control{State: ControlLoading}
	c.controls[FieldBranch] = Control{State: ControlDisabled}
	c.controls[FieldSemester] = semesterControl()
	c.controls[FieldSubject] = Control{State: ControlDisabled}
	c.results = Results{State: ResultsLoading}
	return c
}

// Selection returns the current filter.
func (c *Controller) Selection() Selection { return c.sel }

// Window returns the current page window.
func (c *Controller) Window() PageWindow { return c.win }

// Control returns the state of one filter control.
func (c *Controller) Control(f Field) Control { return c.controls[f] }

// Results returns the document list as shown.
func (c *Controller) Results() Results { return c.results }

// Initializing reports whether the startup chain is still running.
func (c *Controller) Initializing() bool { return c.step != stepDone }

// Init starts the startup chain: preferences, schemes, branches, the first
// document page, then semester and subject restore.
func (c *Controller) Init() tea.Cmd {
	c.step = stepPrefs
	prefs, epoch := c.prefs, c.epoch
	return func() tea.Msg {
		if prefs == nil {
			return PrefsLoaded{Epoch: epoch}
		}
		p, err := prefs.FilterPreferences()
		return PrefsLoaded{Epoch: epoch, Prefs: p, Err: err}
	}
}

// Stop detaches the controller from the preference store: a write in
// progress finishes, later ones are dropped. Call it before clearing the
// session.
func (c *Controller) Stop() {
	if c.writer != nil {
		c.writer.stop()
	}
}

// Update applies a message produced by one of the controller's commands and
// returns the follow-up command, if any. Unknown messages are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PrefsLoaded:
		if msg.Epoch != c.epoch {
			return nil
		}
		return c.onPrefs(msg)
	case SchemesLoaded:
		return c.onSchemes(msg)
	case BranchesLoaded:
		return c.onBranches(msg)
	case SubjectsLoaded:
		return c.onSubjects(msg)
	case DocumentsLoaded:
		return c.onDocuments(msg)
	case PrefsSaved:
		if msg.Err != nil {
			c.log.Warn("failed to save filter preferences", "error", msg.Err)
			c.ring.Record(trace.Event{Kind: trace.KindPrefsErr, Err: msg.Err.Error()})
		}
	}
	return nil
}

// Select changes field f to id ("" clears it) and runs the cascade. Returns
// nil when the control is not selectable, id is not one of its options, or
// nothing changed.
func (c *Controller) Select(f Field, id string) tea.Cmd {
	ctl := c.controls[f]
	if ctl.State != ControlReady || !ctl.Has(id) || c.sel.Get(f) == id {
		return nil
	}
	if f == FieldSubject && !c.sel.SubjectEligible() {
		return nil
	}

	// Taking over before the chain reached branches means nobody else will
	// load them.
	needBranches := f == FieldScheme || c.step < stepBranches
	c.step = stepDone
	c.sel = c.sel.Set(f, id)

	var cmds []tea.Cmd
	if needBranches {
		cmds = append(cmds, c.loadBranches())
	}
	if f != FieldSubject {
		cmds = append(cmds, c.refreshSubjects())
	}
	cmds = append(cmds, c.persist())
	c.win.Offset = 0
	cmds = append(cmds, c.loadDocuments(false, 0))
	return tea.Batch(cmds...)
}

// Cycle moves the selection of f by dir through "all" followed by the
// control's options, wrapping at either end.
func (c *Controller) Cycle(f Field, dir int) tea.Cmd {
	ctl := c.controls[f]
	if ctl.State != ControlReady {
		return nil
	}
	ids := make([]string, 0, len(ctl.Options)+1)
	ids = append(ids, "")
	for _, o := range ctl.Options {
		ids = append(ids, o.ID)
	}
	cur := 0
	for i, id := range ids {
		if id == c.sel.Get(f) {
			cur = i
			break
		}
	}
	next := ((cur+dir)%len(ids) + len(ids)) % len(ids)
	return c.Select(f, ids[next])
}

// ClearFilters resets the whole selection, reloads unscoped branches and
// returns to page one.
func (c *Controller) ClearFilters() tea.Cmd {
	if c.sel == (Selection{}) && c.win.Offset == 0 {
		return nil
	}
	c.step = stepDone
	c.sel = Selection{}
	c.win.Offset = 0
	return tea.Batch(
		c.loadBranches(),
		c.refreshSubjects(),
		c.persist(),
		c.loadDocuments(false, 0),
	)
}

// ChangePage moves one page in dir (-1 or +1). Out-of-range moves are
// no-ops, and so is any move before startup restored the filter.
func (c *Controller) ChangePage(dir int) tea.Cmd {
	if c.Initializing() {
		return nil
	}
	next, ok := c.win.Step(dir)
	if !ok {
		c.ring.Record(trace.Event{Kind: trace.KindNoop, Op: kindDocuments.String(), Count: c.win.Offset + dir*c.win.Limit})
		return nil
	}
	prev := c.win.Offset
	c.win.Offset = next
	return c.loadDocuments(true, prev)
}

// Reload re-queries the current page, e.g. after an upload. During startup
// the chain's own document load covers it.
func (c *Controller) Reload() tea.Cmd {
	if c.Initializing() {
		return nil
	}
	return c.loadDocuments(false, c.win.Offset)
}

// Retry reissues every request whose control or result list failed.
func (c *Controller) Retry() tea.Cmd {
	var cmds []tea.Cmd
	if c.controls[FieldScheme].State == ControlFailed {
		cmds = append(cmds, c.loadSchemes())
	}
	if c.controls[FieldBranch].State == ControlFailed {
		cmds = append(cmds, c.loadBranches())
	}
	if c.controls[FieldSubject].State == ControlFailed {
		cmds = append(cmds, c.refreshSubjects())
	}
	if c.results.State == ResultsFailed {
		cmds = append(cmds, c.loadDocuments(false, c.win.Offset))
	}
	return tea.Batch(cmds...)
}

func (c *Controller) onPrefs(msg PrefsLoaded) tea.Cmd {
	if msg.Err != nil {
		c.log.Warn("failed to read filter preferences", "error", msg.Err)
	} else {
		c.saved = msg.Prefs
	}
	if c.step == stepPrefs {
		c.step = stepSchemes
	}
	return c.loadSchemes()
}

func (c *Controller) onSchemes(msg SchemesLoaded) tea.Cmd {
	if c.stale(kindSchemes, msg.Gen, msg.Dur) {
		return nil
	}
	ctl := &c.controls[FieldScheme]
	if msg.Err != nil {
		c.failed(kindSchemes, msg.Gen, msg.Dur, msg.Err)
		*ctl = Control{State: ControlFailed, Err: msg.Err}
	} else {
		c.applied(kindSchemes, msg.Gen, msg.Dur, len(msg.Options))
		*ctl = Control{Options: msg.Options, State: ControlReady}
	}

	if c.step != stepSchemes {
		return nil
	}
	if c.saved.Scheme != "" && msg.Err == nil && ctl.Has(c.saved.Scheme) {
		c.sel.Scheme = c.saved.Scheme
	}
	c.step = stepBranches
	return c.loadBranches()
}

func (c *Controller) onBranches(msg BranchesLoaded) tea.Cmd {
	if c.stale(kindBranches, msg.Gen, msg.Dur) {
		return nil
	}
	ctl := &c.controls[FieldBranch]
	if msg.Err != nil {
		c.failed(kindBranches, msg.Gen, msg.Dur, msg.Err)
		*ctl = Control{State: ControlFailed, Err: msg.Err}
	} else {
		c.applied(kindBranches, msg.Gen, msg.Dur, len(msg.Options))
		*ctl = Control{Options: msg.Options, State: ControlReady}
	}

	if c.step != stepBranches {
		return nil
	}
	if c.saved.Branch != "" && msg.Err == nil && ctl.Has(c.saved.Branch) {
		c.sel.Branch = c.saved.Branch
	}
	c.step = stepDocuments
	return c.loadDocuments(false, 0)
}

func (c *Controller) onSubjects(msg SubjectsLoaded) tea.Cmd {
	if c.stale(kindSubjects, msg.Gen, msg.Dur) {
		return nil
	}
	ctl := &c.controls[FieldSubject]
	switch {
	case catalog.IsValidation(msg.Err):
		// Incomplete selection: an empty disabled control, not an error.
		c.applied(kindSubjects, msg.Gen, msg.Dur, 0)
		*ctl = Control{State: ControlDisabled}
	case msg.Err != nil:
		c.failed(kindSubjects, msg.Gen, msg.Dur, msg.Err)
		*ctl = Control{State: ControlFailed, Err: msg.Err}
	default:
		c.applied(kindSubjects, msg.Gen, msg.Dur, len(msg.Options))
		*ctl = Control{Options: msg.Options, State: ControlReady}
	}

	if c.step != stepSubjects {
		return nil
	}
	c.step = stepDone
	if c.saved.Subject != "" && ctl.State == ControlReady && ctl.Has(c.saved.Subject) {
		c.sel = c.sel.Set(FieldSubject, c.saved.Subject)
	}
	// The semester was restored, so the first page no longer matches.
	c.win.Offset = 0
	return c.loadDocuments(false, 0)
}

func (c *Controller) onDocuments(msg DocumentsLoaded) tea.Cmd {
	if c.stale(kindDocuments, msg.Gen, msg.Dur) {
		return nil
	}
	if msg.Err != nil {
		c.failed(kindDocuments, msg.Gen, msg.Dur, msg.Err)
		if msg.Paging {
			c.win.Offset = msg.PrevOffset
		} else {
			// The last total belongs to a different query.
			c.win.Total = 0
		}
		c.results.State = ResultsFailed
		c.results.Err = msg.Err
	} else {
		c.applied(kindDocuments, msg.Gen, msg.Dur, len(msg.Page.Items))
		c.win.Total = msg.Page.Total
		c.results = Results{Items: msg.Page.Items, State: ResultsReady}
		if len(msg.Page.Items) == 0 {
			c.results.State = ResultsEmpty
		}
		if c.win.Total == 0 {
			c.win.Offset = 0
		} else if c.win.Offset >= c.win.Total {
			// The catalog shrank under us; fall back to the last page.
			c.win.Offset = c.win.lastOffset()
			return c.loadDocuments(false, c.win.Offset)
		}
	}

	if c.step != stepDocuments {
		return nil
	}
	return c.restoreSemester()
}

// restoreSemester is the last startup step. The semester needs scheme and
// branch; the subject additionally needs to be in the loaded list.
func (c *Controller) restoreSemester() tea.Cmd {
	if c.saved.Semester == 0 || c.sel.Scheme == "" || c.sel.Branch == "" {
		c.step = stepDone
		return nil
	}
	c.sel.Semester = c.saved.Semester
	c.sel.Subject = ""
	c.step = stepSubjects
	return c.refreshSubjects()
}

// stale reports (and records) a response whose generation is not current.
func (c *Controller) stale(k kind, gen uint64, dur time.Duration) bool {
	if gen == c.gen[k] {
		return false
	}
	c.log.Debug("discarding stale response", "op", k, "gen", gen, "current", c.gen[k])
	c.ring.Record(trace.Event{Kind: trace.KindStale, Op: k.String(), Gen: gen, Dur: dur})
	return true
}

func (c *Controller) applied(k kind, gen uint64, dur time.Duration, n int) {
	c.ring.Record(trace.Event{Kind: trace.KindApplied, Op: k.String(), Gen: gen, Dur: dur, Count: n})
}

func (c *Controller) failed(k kind, gen uint64, dur time.Duration, err error) {
	var ne *catalog.NetworkError
	if errors.As(err, &ne) && ne.Timeout() {
		c.log.Warn("catalog request timed out", "op", k, "after", dur)
	} else {
		c.log.Error("catalog request failed", "op", k, "error", err)
	}
	c.ring.Record(trace.Event{Kind: trace.KindFailed, Op: k.String(), Gen: gen, Dur: dur, Err: err.Error()})
}

// next bumps and returns the generation for k, invalidating any request of
// that kind still in flight.
func (c *Controller) next(k kind) uint64 {
	c.gen[k]++
	c.ring.Record(trace.Event{Kind: trace.KindRequest, Op: k.String(), Gen: c.gen[k]})
	return c.gen[k]
}

func (c *Controller) loadSchemes() tea.Cmd {
	c.controls[FieldScheme] = Control{State: ControlLoading}
	gen := c.next(kindSchemes)
	ctx, cat := c.ctx, c.cat
	return func() tea.Msg {
		start := time.Now()
		opts, err := cat.ListSchemes(ctx)
		return SchemesLoaded{Gen: gen, Options: opts, Dur: time.Since(start), Err: err}
	}
}

// loadBranches clears and disables the branch control until the new list,
// scoped to the current scheme, arrives.
func (c *Controller) loadBranches() tea.Cmd {
	c.controls[FieldBranch] = Control{State: ControlLoading}
	gen := c.next(kindBranches)
	ctx, cat, scheme := c.ctx, c.cat, c.sel.Scheme
	return func() tea.Msg {
		start := time.Now()
		opts, err := cat.ListBranches(ctx, scheme)
		return BranchesLoaded{Gen: gen, Scheme: scheme, Options: opts, Dur: time.Since(start), Err: err}
	}
}

// refreshSubjects reloads subjects when the selection allows it, and
// otherwise empties and disables the control. Either way any subject load in
// flight is invalidated.
func (c *Controller) refreshSubjects() tea.Cmd {
	if !c.sel.SubjectEligible() {
		c.gen[kindSubjects]++
		c.controls[FieldSubject] = Control{State: ControlDisabled}
		return nil
	}
	c.controls[FieldSubject] = Control{State: ControlLoading}
	gen := c.next(kindSubjects)
	ctx, cat, sel := c.ctx, c.cat, c.sel
	return func() tea.Msg {
		start := time.Now()
		opts, err := cat.ListSubjects(ctx, sel.Scheme, sel.Branch, sel.Semester)
		return SubjectsLoaded{Gen: gen, Options: opts, Dur: time.Since(start), Err: err}
	}
}

// loadDocuments queries the current selection and window. With paging set, a
// failure restores prevOffset.
func (c *Controller) loadDocuments(paging bool, prevOffset int) tea.Cmd {
	c.results.State = ResultsLoading
	c.results.Err = nil
	gen := c.next(kindDocuments)
	ctx, cat, q := c.ctx, c.cat, c.sel.Query(c.win)
	return func() tea.Msg {
		start := time.Now()
		page, err := cat.SearchDocuments(ctx, q)
		return DocumentsLoaded{
			Gen:        gen,
			Page:       page,
			Dur:        time.Since(start),
			Err:        err,
			PrevOffset: prevOffset,
			Paging:     paging,
		}
	}
}

// persist writes the selection in the background; failures are only logged.
// Writes that complete out of order never replace a newer selection.
func (c *Controller) persist() tea.Cmd {
	if c.writer == nil {
		return nil
	}
	p := session.Preferences{
		Scheme:   c.sel.Scheme,
		Branch:   c.sel.Branch,
		Subject:  c.sel.Subject,
		Semester: c.sel.Semester,
	}
	w, ring, seq := c.writer, c.ring, c.writer.next()
	return func() tea.Msg {
		stored, err := w.write(seq, p)
		if stored {
			ring.Record(trace.Event{Kind: trace.KindPrefs, Msg: p.Scheme + "/" + p.Branch})
		}
		return PrefsSaved{Seq: seq, Err: err}
	}
}
