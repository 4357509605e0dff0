package ui

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stucon/stucon/internal/browse"
	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/forms"
)

// Upload form rows: title, the four pickers in browse.Fields order, path.
var (
	uploadTitleRow = 0
	uploadPathRow  = len(browse.Fields) + 1
	uploadRows     = uploadPathRow + 1
)

var pickerKeys = struct {
	Next key.Binding
	Prev key.Binding
}{
	Next: key.NewBinding(key.WithKeys("right", "]", "l")),
	Prev: key.NewBinding(key.WithKeys("left", "[", "h")),
}

// uploadModel is the upload form. Its pickers cascade like the browse
// controls but keep their own selection and generations, so editing the
// form never moves the browse filter.
type uploadModel struct {
	title textinput.Model
	path  textinput.Model

	sel      browse.Selection
	controls [4]browse.Control
	gens     [4]uint64

	focus int
	busy  bool
	err   string
}

func (a App) openUpload() (tea.Model, tea.Cmd) {
	m := uploadModel{
		title: newInput("Document title", false),
		path:  newInput("/path/to/notes.pdf", false),
	}
	m.title.Width = 50
	m.path.Width = 50
	m.path.CharLimit = 512
	m.title.Focus()

	var cmds []tea.Cmd
	cmds = append(cmds, textinput.Blink)
	if a.ctl != nil {
		m.sel = a.ctl.Selection()
		for _, f := range browse.Fields {
			m.controls[f] = a.ctl.Control(f)
		}
	}
	for _, f := range []browse.Field{browse.FieldScheme, browse.FieldBranch, browse.FieldSubject} {
		if s := m.controls[f].State; s == browse.ControlFailed || s == browse.ControlLoading {
			cmds = append(cmds, m.load(a.ctx, a.cfg.Backend, f))
		}
	}
	if m.controls[browse.FieldSemester].State != browse.ControlReady {
		m.controls[browse.FieldSemester] = semesterOptions()
	}

	a.screen = screenUpload
	a.upload = m
	return a, tea.Batch(cmds...)
}

func semesterOptions() browse.Control {
	ctl := browse.Control{State: browse.ControlReady}
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		ctl.Options = append(ctl.Options, catalog.Option{ID: n, Name: "Semester " + n})
	}
	return ctl
}

// load fetches the option list for f scoped to the form's selection. Subject
// lists are only fetched once scheme, branch and semester are set.
func (m *uploadModel) load(ctx context.Context, backend Backend, f browse.Field) tea.Cmd {
	m.gens[f]++
	gen, sel := m.gens[f], m.sel
	if f == browse.FieldSubject && !sel.SubjectEligible() {
		m.controls[f] = browse.Control{State: browse.ControlDisabled}
		return nil
	}
	m.controls[f] = browse.Control{State: browse.ControlLoading}
	return func() tea.Msg {
		var opts []catalog.Option
		var err error
		switch f {
		case browse.FieldScheme:
			opts, err = backend.ListSchemes(ctx)
		case browse.FieldBranch:
			opts, err = backend.ListBranches(ctx, sel.Scheme)
		case browse.FieldSubject:
			opts, err = backend.ListSubjects(ctx, sel.Scheme, sel.Branch, sel.Semester)
		}
		return UploadOptionsLoaded{Field: f, Gen: gen, Options: opts, Err: err}
	}
}

func (m uploadModel) onOptions(msg UploadOptionsLoaded) uploadModel {
	if int(msg.Field) >= len(m.gens) || msg.Gen != m.gens[msg.Field] {
		return m
	}
	if msg.Err != nil {
		m.controls[msg.Field] = browse.Control{State: browse.ControlFailed, Err: msg.Err}
		return m
	}
	m.controls[msg.Field] = browse.Control{Options: msg.Options, State: browse.ControlReady}
	if !m.controls[msg.Field].Has(m.sel.Get(msg.Field)) {
		m.sel = m.sel.Set(msg.Field, "")
	}
	return m
}

// pick moves picker f by dir and reloads whatever sits downstream of it.
func (m *uploadModel) pick(ctx context.Context, backend Backend, f browse.Field, dir int) tea.Cmd {
	ctl := m.controls[f]
	if ctl.State != browse.ControlReady {
		return nil
	}
	ids := []string{""}
	for _, o := range ctl.Options {
		ids = append(ids, o.ID)
	}
	cur := 0
	for i, id := range ids {
		if id == m.sel.Get(f) {
			cur = i
			break
		}
	}
	next := ((cur+dir)%len(ids) + len(ids)) % len(ids)
	if f == browse.FieldSubject && !m.sel.SubjectEligible() {
		return nil
	}
	m.sel = m.sel.Set(f, ids[next])

	var cmds []tea.Cmd
	if f == browse.FieldScheme {
		cmds = append(cmds, m.load(ctx, backend, browse.FieldBranch))
	}
	if f != browse.FieldSubject {
		cmds = append(cmds, m.load(ctx, backend, browse.FieldSubject))
	}
	return tea.Batch(cmds...)
}

func (m *uploadModel) setFocus(i int) tea.Cmd {
	m.title.Blur()
	m.path.Blur()
	m.focus = (i + uploadRows) % uploadRows
	switch m.focus {
	case uploadTitleRow:
		return m.title.Focus()
	case uploadPathRow:
		return m.path.Focus()
	}
	return nil
}

func (a App) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m := &a.upload
	switch {
	case key.Matches(msg, formKeys.Quit):
		return a, tea.Quit

	case m.busy:
		return a, nil

	case key.Matches(msg, formKeys.Back):
		a.screen = screenBrowse
		return a, nil

	case key.Matches(msg, formKeys.Next):
		return a, m.setFocus(m.focus + 1)

	case key.Matches(msg, formKeys.Prev):
		return a, m.setFocus(m.focus - 1)

	case key.Matches(msg, formKeys.Submit):
		return a.submitUpload()
	}

	if m.focus > uploadTitleRow && m.focus < uploadPathRow {
		f := browse.Fields[m.focus-1]
		switch {
		case key.Matches(msg, pickerKeys.Next):
			return a, m.pick(a.ctx, a.cfg.Backend, f, 1)
		case key.Matches(msg, pickerKeys.Prev):
			return a, m.pick(a.ctx, a.cfg.Backend, f, -1)
		case msg.String() == "r" && m.controls[f].State == browse.ControlFailed:
			return a, m.load(a.ctx, a.cfg.Backend, f)
		}
		return a, nil
	}

	var cmd tea.Cmd
	if m.focus == uploadTitleRow {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.path, cmd = m.path.Update(msg)
	}
	return a, cmd
}

func (a App) submitUpload() (tea.Model, tea.Cmd) {
	m := &a.upload
	m.err = ""
	form := forms.UploadForm{
		Title:    m.title.Value(),
		Scheme:   m.sel.Scheme,
		Branch:   m.sel.Branch,
		Semester: m.sel.Semester,
		Subject:  m.sel.Subject,
		Path:     m.path.Value(),
	}
	file, err := form.Validate()
	if err != nil {
		m.err = err.Error()
		return a, nil
	}
	m.busy = true

	ctx, backend := a.ctx, a.cfg.Backend
	req := catalog.UploadRequest{
		UserID:    a.cfg.UserID,
		SchemeID:  form.Scheme,
		BranchID:  form.Branch,
		SubjectID: form.Subject,
		Semester:  form.Semester,
		Title:     form.Title,
		FileType:  file.FileType,
		Size:      file.Size,
	}
	a.log.Info("upload started", "title", req.Title, "type", req.FileType, "bytes", req.Size)
	return a, func() tea.Msg {
		f, err := os.Open(file.Path)
		if err != nil {
			return Uploaded{Title: req.Title, Err: err}
		}
		defer f.Close()
		req.Body = f
		return Uploaded{Title: req.Title, Err: backend.Upload(ctx, req)}
	}
}

func (a App) onUploaded(msg Uploaded) (tea.Model, tea.Cmd) {
	if a.screen != screenUpload {
		return a, nil
	}
	a.upload.busy = false
	if msg.Err != nil {
		a.log.Warn("upload failed", "title", msg.Title, "error", msg.Err)
		a.upload.err = uploadMessage(msg.Err)
		return a, nil
	}

	a.log.Info("upload finished", "title", msg.Title)
	a.screen = screenBrowse
	a.notice = "Document uploaded successfully!"
	if a.ctl == nil {
		return a, nil
	}
	return a, a.ctl.Reload()
}

func uploadMessage(err error) string {
	var ne *catalog.NetworkError
	var se *catalog.StatusError
	switch {
	case errors.As(err, &ne):
		return "Backend API not available. Check the server and try again."
	case errors.As(err, &se):
		return "Upload failed: " + se.Error()
	}
	return "Upload failed: " + err.Error()
}

func (a App) viewUpload() string {
	m := a.upload
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Upload a document"))
	b.WriteString("\n\n")

	row := func(i int, label, body string) {
		l := LabelStyle.Render(label)
		if i == m.focus {
			l = SelectedItem.Render("> " + label)
		}
		b.WriteString(l)
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	row(uploadTitleRow, "Title", m.title.View())
	for i, f := range browse.Fields {
		row(i+1, fieldTitles[f], m.pickerView(f, a.spinner.View()))
	}
	row(uploadPathRow, "File (PDF, DOC or DOCX, max 10MB)", m.path.View())

	switch {
	case m.busy:
		b.WriteString(a.spinner.View() + " Uploading...")
	case m.err != "":
		b.WriteString(ErrorStyle.Render(m.err))
	}
	b.WriteString("\n")
	b.WriteString(StatusBarText.Render("tab: next field  ←/→: choose  enter: upload  esc: cancel"))

	return lipgloss.Place(a.width80(), max(a.height, 30), lipgloss.Center, lipgloss.Center, FormStyle.Render(b.String()))
}

func (m uploadModel) pickerView(f browse.Field, spin string) string {
	ctl := m.controls[f]
	switch ctl.State {
	case browse.ControlLoading:
		return spin + " Loading..."
	case browse.ControlFailed:
		return ErrorStyle.Render("Error loading " + strings.ToLower(fieldTitles[f]) + " (r to retry)")
	case browse.ControlDisabled:
		return DisabledControlStyle.Render("Select branch & semester first")
	}
	id := m.sel.Get(f)
	if id == "" {
		return HelpStyle.Render("‹ Select " + strings.ToLower(fieldTitles[f]) + " ›")
	}
	return "‹ " + ctl.Label(id) + " ›"
}
