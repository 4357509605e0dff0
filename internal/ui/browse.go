package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stucon/stucon/internal/browse"
	"github.com/stucon/stucon/internal/catalog"
)

// focusResults is the browse focus index of the document list; lower indexes
// are the filter controls in browse.Fields order.
const focusResults = 4

var fieldTitles = map[browse.Field]string{
	browse.FieldScheme:   "Scheme",
	browse.FieldBranch:   "Branch",
	browse.FieldSemester: "Semester",
	browse.FieldSubject:  "Subject",
}

func (a App) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.ctl == nil {
		return a, nil
	}
	if a.showDebug {
		if key.Matches(msg, browseKeys.Debug) || msg.String() == "esc" {
			a.showDebug = false
		}
		return a, nil
	}
	a.notice = ""

	switch {
	case key.Matches(msg, browseKeys.Quit):
		return a, tea.Quit

	case key.Matches(msg, browseKeys.Debug):
		a.showDebug = true
		return a, nil

	case key.Matches(msg, browseKeys.NextFocus):
		a.focus = (a.focus + 1) % (focusResults + 1)
		return a, nil

	case key.Matches(msg, browseKeys.PrevFocus):
		a.focus = (a.focus + focusResults) % (focusResults + 1)
		return a, nil

	case key.Matches(msg, browseKeys.Down):
		if a.focus < focusResults {
			return a, a.ctl.Cycle(browse.Fields[a.focus], 1)
		}
		if a.cursor < len(a.ctl.Results().Items)-1 {
			a.cursor++
		}
		return a, nil

	case key.Matches(msg, browseKeys.Up):
		if a.focus < focusResults {
			return a, a.ctl.Cycle(browse.Fields[a.focus], -1)
		}
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, browseKeys.NextValue), key.Matches(msg, browseKeys.PrevValue):
		if a.focus >= focusResults {
			return a, nil
		}
		dir := 1
		if key.Matches(msg, browseKeys.PrevValue) {
			dir = -1
		}
		return a, a.ctl.Cycle(browse.Fields[a.focus], dir)

	case key.Matches(msg, browseKeys.NextPage):
		a.cursor = 0
		return a, a.ctl.ChangePage(1)

	case key.Matches(msg, browseKeys.PrevPage):
		a.cursor = 0
		return a, a.ctl.ChangePage(-1)

	case key.Matches(msg, browseKeys.Clear):
		a.cursor = 0
		return a, a.ctl.ClearFilters()

	case key.Matches(msg, browseKeys.Retry):
		return a, a.ctl.Retry()

	case key.Matches(msg, browseKeys.Open):
		items := a.ctl.Results().Items
		if a.ctl.Results().State != browse.ResultsReady || a.cursor >= len(items) {
			return a, nil
		}
		return a.openDetail(items[a.cursor])

	case key.Matches(msg, browseKeys.Upload):
		return a.openUpload()

	case key.Matches(msg, browseKeys.Logout):
		return a, a.logout()
	}
	return a, nil
}

func (a *App) clampCursor() {
	if a.ctl == nil {
		return
	}
	n := len(a.ctl.Results().Items)
	if a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
}

// logout ends the session. The controller stops writing preferences first
// so nothing lands in the store after it is cleared.
func (a App) logout() tea.Cmd {
	a.ctl.Stop()
	ctx, backend, sess := a.ctx, a.cfg.Backend, a.cfg.Session
	return func() tea.Msg {
		var err error
		if s, serr := sess.Session(); serr == nil && s.Token != "" {
			err = backend.Logout(ctx, s.Email, s.Token)
		}
		if cerr := sess.Clear(); cerr != nil && err == nil {
			err = cerr
		}
		return LoggedOut{Err: err}
	}
}

func (a App) viewBrowse() string {
	if a.ctl == nil {
		return ""
	}
	width := a.width80()

	var b strings.Builder
	b.WriteString(a.renderTitle(width))
	b.WriteString("\n")
	b.WriteString(a.renderControls(width))
	b.WriteString("\n")

	listHeight := a.height - 10
	if listHeight < 4 {
		listHeight = 12
	}
	b.WriteString(a.renderResults(width, listHeight))
	b.WriteString("\n")

	if a.notice != "" {
		b.WriteString(SuccessStyle.Render(a.notice))
		b.WriteString("\n")
	}
	b.WriteString(a.renderBrowseStatus(width))
	b.WriteString("\n")
	b.WriteString(a.help.View(browseKeys))
	return b.String()
}

// renderTitle puts the greeting on the right of the heading when it fits.
func (a App) renderTitle(width int) string {
	title := TitleStyle.Render("StuCon · Explore documents")
	if a.user == "" {
		return title
	}
	greeting := MetaStyle.Render("Hello, " + a.user)
	gap := width - lipgloss.Width(title) - lipgloss.Width(greeting)
	if gap < 2 {
		return title + "\n" + greeting
	}
	return title + strings.Repeat(" ", gap) + greeting
}

func (a App) renderControls(width int) string {
	sel := a.ctl.Selection()
	cellWidth := max(width/4-2, 14)

	cells := make([]string, 0, len(browse.Fields))
	for i, f := range browse.Fields {
		ctl := a.ctl.Control(f)
		value := "All"
		if id := sel.Get(f); id != "" {
			value = ctl.Label(id)
		}

		style := ControlStyle
		switch ctl.State {
		case browse.ControlLoading:
			value = a.spinner.View() + " Loading..."
		case browse.ControlFailed:
			value = "Error loading " + strings.ToLower(fieldTitles[f])
			style = style.BorderForeground(colorError)
		case browse.ControlDisabled:
			if f == browse.FieldSubject {
				value = "Select branch & semester"
			}
			style = DisabledControlStyle
		}
		if i == a.focus {
			style = FocusedControlStyle
		}

		label := LabelStyle.Render(fieldTitles[f])
		cells = append(cells, lipgloss.JoinVertical(lipgloss.Left, label, style.Width(cellWidth).Render(truncateRunes(value, cellWidth-2))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (a App) renderResults(width, height int) string {
	res := a.ctl.Results()
	switch res.State {
	case browse.ResultsLoading:
		return HelpStyle.Render(a.spinner.View() + " Loading documents...")
	case browse.ResultsFailed:
		return ErrorStyle.Render("Error loading documents: "+res.Err.Error()) + "\n" +
			HelpStyle.Render("Press 'r' to retry.")
	case browse.ResultsEmpty:
		return HelpStyle.Render("No documents found. Try adjusting your filters or press 'c' to clear them.")
	}

	perCard := 2
	visible := max(height/perCard, 1)
	start := 0
	if a.cursor >= visible {
		start = a.cursor - visible + 1
	}

	var b strings.Builder
	for i := start; i < len(res.Items) && i < start+visible; i++ {
		b.WriteString(renderCard(res.Items[i], i == a.cursor && a.focus == focusResults, width))
		b.WriteString("\n")
	}
	return b.String()
}

// renderCard renders one document as a title line and a metadata line.
func renderCard(d catalog.Document, selected bool, width int) string {
	typ := d.Type
	if typ == "" {
		typ = "FILE"
	}
	title := truncateRunes(d.Title, max(width-12, 10))
	if title == "" {
		title = "Untitled"
	}

	line := TypeBadge.Render(typ) + title
	if selected {
		line = SelectedItem.Width(width).Render(typ + "  " + title)
	} else {
		line = NormalItem.Render(line)
	}
	return line + "\n" + MetaStyle.Render(cardMeta(d))
}

func cardMeta(d catalog.Document) string {
	var parts []string
	if d.Publisher != "" {
		parts = append(parts, "by "+d.Publisher)
	}
	if d.Subject != "" {
		parts = append(parts, d.Subject)
	}
	if d.Branch != "" {
		parts = append(parts, d.Branch)
	}
	if d.Semester > 0 {
		parts = append(parts, fmt.Sprintf("Sem %d", d.Semester))
	}
	if !d.Uploaded.IsZero() {
		parts = append(parts, d.Uploaded.Format("2 Jan 2006"))
	}
	parts = append(parts, fmt.Sprintf("%d downloads", d.Downloads))
	return strings.Join(parts, " · ")
}

func (a App) renderBrowseStatus(width int) string {
	win := a.ctl.Window()
	count := "Loading..."
	switch a.ctl.Results().State {
	case browse.ResultsReady, browse.ResultsEmpty:
		count = fmt.Sprintf("%d documents found", win.Total)
	case browse.ResultsFailed:
		count = "Error"
	}
	page := fmt.Sprintf("page %d/%d", win.Page(), win.Pages())
	return StatusBar.Width(width).Render(count + "  " + StatusBarText.Render(page))
}

// truncateRunes shortens s to n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
