package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/stucon/stucon/internal/browse"
	"github.com/stucon/stucon/internal/catalog"
	"github.com/stucon/stucon/internal/logging"
	"github.com/stucon/stucon/internal/session"
	"github.com/stucon/stucon/internal/trace"
)

// Backend is everything the TUI asks of the catalog service.
type Backend interface {
	browse.Catalog
	GetDocument(ctx context.Context, id string) (catalog.Document, error)
	DownloadTo(ctx context.Context, id, path string) (int64, error)
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, name, email, password string) (string, error)
	Logout(ctx context.Context, email, token string) error
	Upload(ctx context.Context, req catalog.UploadRequest) error
}

// Session is the local login and preference store.
type Session interface {
	browse.Prefs
	IsAuthenticated() bool
	Session() (session.Session, error)
	SetSession(token, email string) error
	Clear() error
}

// Config wires the App.
type Config struct {
	Backend     Backend
	Session     Session
	Ring        *trace.Ring
	PageSize    int
	DownloadDir string
	UserID      string
}

type screen int

const (
	screenLogin screen = iota
	screenSignup
	screenBrowse
	screenDetail
	screenUpload
)

func (s screen) String() string {
	return [...]string{"login", "signup", "browse", "detail", "upload"}[s]
}

// App is the root Bubble Tea model. It owns no network state itself: every
// request runs in a command and comes back as a message.
type App struct {
	ctx context.Context
	cfg Config
	log *log.Logger

	screen  screen
	width   int
	height  int
	spinner spinner.Model
	help    help.Model

	auth   authForm
	user   string // signed-in email
	ctl    *browse.Controller
	epochs uint64 // controllers created so far
	focus  int    // browse focus: 0..3 filter controls, 4 results
	cursor int
	notice string

	detail detailModel
	upload uploadModel

	showDebug bool
}

// New creates the App. Unauthenticated sessions start at the login screen.
func New(ctx context.Context, cfg Config) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	a := App{
		ctx:     ctx,
		cfg:     cfg,
		log:     logging.WithPrefix("ui"),
		spinner: s,
		help:    help.New(),
		focus:   focusResults,
	}
	if cfg.Session != nil && cfg.Session.IsAuthenticated() {
		a.screen = screenBrowse
		if s, err := cfg.Session.Session(); err == nil {
			a.user = s.Email
		}
		a.ctl = a.newController()
	} else {
		a.screen = screenLogin
		a.auth = newLoginForm()
	}
	return a
}

// newController starts a fresh browse session. Each one gets its own epoch
// so responses addressed to a logged-out controller are discarded.
func (a *App) newController() *browse.Controller {
	var prefs browse.Prefs
	if a.cfg.Session != nil {
		prefs = a.cfg.Session
	}
	a.epochs++
	return browse.New(a.ctx, browse.Options{
		Catalog: a.cfg.Backend,
		Prefs:   prefs,
		Ring:    a.cfg.Ring,
		Limit:   a.cfg.PageSize,
		Epoch:   a.epochs,
	})
}

// Init starts the spinner and, when already logged in, the browser.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick}
	if a.ctl != nil {
		cmds = append(cmds, a.ctl.Init())
	} else {
		cmds = append(cmds, a.auth.focusCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)

	case browse.PrefsLoaded, browse.SchemesLoaded, browse.BranchesLoaded,
		browse.SubjectsLoaded, browse.DocumentsLoaded, browse.PrefsSaved:
		if a.ctl == nil {
			return a, nil
		}
		cmd := a.ctl.Update(msg)
		a.clampCursor()
		return a, cmd

	case AuthDone:
		return a.onAuthDone(msg)

	case LoggedOut:
		if msg.Err != nil {
			a.log.Warn("backend logout failed", "error", msg.Err)
		}
		a.ctl = nil
		a.user = ""
		a.screen = screenLogin
		a.auth = newLoginForm()
		a.auth.notice = "Logged out"
		return a, a.auth.focusCmd()

	case DocumentLoaded:
		a.detail = a.detail.onLoaded(msg)
		return a, nil

	case Downloaded:
		a.detail = a.detail.onDownloaded(msg)
		return a, nil

	case UploadOptionsLoaded:
		a.upload = a.upload.onOptions(msg)
		return a, nil

	case Uploaded:
		return a.onUploaded(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.screen {
	case screenLogin, screenSignup:
		return a.updateAuth(msg)
	case screenDetail:
		return a.updateDetail(msg)
	case screenUpload:
		return a.updateUpload(msg)
	}
	return a.updateBrowse(msg)
}

// View renders the current screen.
func (a App) View() string {
	if a.showDebug && a.screen == screenBrowse {
		return debugOverlay(a.cfg.Ring, a.width, a.height) + "\n" + debugStatusBar(a.width)
	}
	switch a.screen {
	case screenLogin, screenSignup:
		return a.viewAuth()
	case screenDetail:
		return a.viewDetail()
	case screenUpload:
		return a.viewUpload()
	}
	return a.viewBrowse()
}

// Screen returns the active screen name (for testing).
func (a App) Screen() string {
	return a.screen.String()
}

// Controller returns the browse controller, nil when logged out.
func (a App) Controller() *browse.Controller {
	return a.ctl
}

func (a App) width80() int {
	if a.width <= 0 {
		return 80
	}
	return a.width
}

