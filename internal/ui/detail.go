package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/stucon/stucon/internal/catalog"
)

// detailModel is the document detail screen. It opens with the card the user
// picked and refreshes it from GET /api/material-id.
type detailModel struct {
	id          string
	doc         catalog.Document
	loading     bool
	err         error
	downloading bool
	savedPath   string
	savedBytes  int64
	dlErr       error
}

func (a App) openDetail(doc catalog.Document) (tea.Model, tea.Cmd) {
	a.screen = screenDetail
	a.detail = detailModel{id: doc.ID, doc: doc, loading: true}

	ctx, backend, id := a.ctx, a.cfg.Backend, doc.ID
	return a, func() tea.Msg {
		d, err := backend.GetDocument(ctx, id)
		return DocumentLoaded{ID: id, Doc: d, Err: err}
	}
}

func (m detailModel) onLoaded(msg DocumentLoaded) detailModel {
	if msg.ID != m.id {
		return m
	}
	m.loading = false
	m.err = msg.Err
	if msg.Err == nil {
		m.doc = msg.Doc
	}
	return m
}

func (m detailModel) onDownloaded(msg Downloaded) detailModel {
	if msg.ID != m.id {
		return m
	}
	m.downloading = false
	m.dlErr = msg.Err
	if msg.Err == nil {
		m.savedPath = msg.Path
		m.savedBytes = msg.Bytes
	}
	return m
}

func (a App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, detailKeys.Quit):
		return a, tea.Quit

	case key.Matches(msg, detailKeys.Back):
		a.screen = screenBrowse
		return a, nil

	case key.Matches(msg, detailKeys.Download):
		m := &a.detail
		if m.downloading || errors.Is(m.err, catalog.ErrNotFound) {
			return a, nil
		}
		m.downloading = true
		m.dlErr = nil
		m.savedPath = ""

		ctx, backend, id := a.ctx, a.cfg.Backend, m.id
		path := filepath.Join(a.cfg.DownloadDir, m.doc.FileName())
		a.log.Info("download started", "id", id, "path", path)
		return a, func() tea.Msg {
			n, err := backend.DownloadTo(ctx, id, path)
			return Downloaded{ID: id, Path: path, Bytes: n, Err: err}
		}
	}
	return a, nil
}

// previewLabel names what the original preview pane would show for typ.
func previewLabel(typ string) string {
	switch strings.ToUpper(typ) {
	case "PDF":
		return "PDF document"
	case "DOC", "DOCX":
		return "Word document"
	}
	return "Preview not available"
}

func (a App) viewDetail() string {
	m := a.detail
	var b strings.Builder

	if errors.Is(m.err, catalog.ErrNotFound) {
		b.WriteString(TitleStyle.Render("Document not found"))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("The document may have been removed. esc: back"))
		return b.String()
	}

	d := m.doc
	title := d.Title
	if title == "" {
		title = "Untitled"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		b.WriteString(LabelStyle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Type", d.Type)
	row("Publisher", d.Publisher)
	row("Scheme", d.Scheme)
	row("Branch", d.Branch)
	sem := ""
	if d.Semester > 0 {
		sem = fmt.Sprintf("%d", d.Semester)
	}
	row("Semester", sem)
	row("Subject", d.Subject)
	uploaded := ""
	if !d.Uploaded.IsZero() {
		uploaded = d.Uploaded.Format("2 Jan 2006") + " (" + humanize.Time(d.Uploaded) + ")"
	}
	row("Uploaded", uploaded)
	row("Downloads", humanize.Comma(int64(d.Downloads)))
	b.WriteString("\n")
	b.WriteString(TypeBadge.Render(strings.ToUpper(d.Type)) + MetaStyle.Render(previewLabel(d.Type)))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(a.spinner.View() + " Loading details...")
	case m.err != nil:
		b.WriteString(ErrorStyle.Render("Could not refresh details: " + m.err.Error()))
	}
	b.WriteString("\n")

	switch {
	case m.downloading:
		b.WriteString(a.spinner.View() + " Downloading...")
	case m.dlErr != nil:
		b.WriteString(ErrorStyle.Render("Download failed: " + m.dlErr.Error()))
	case m.savedPath != "":
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("Saved %s to %s", humanize.Bytes(uint64(m.savedBytes)), m.savedPath)))
	}
	b.WriteString("\n")
	b.WriteString(StatusBar.Width(a.width80()).Render(
		StatusBarKey.Render("d") + StatusBarText.Render(":download  ") +
			StatusBarKey.Render("esc") + StatusBarText.Render(":back  ") +
			StatusBarKey.Render("q") + StatusBarText.Render(":quit")))
	return b.String()
}
