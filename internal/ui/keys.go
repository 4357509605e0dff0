package ui

import "github.com/charmbracelet/bubbles/key"

// browseKeyMap is the browse screen's bindings. It implements help.KeyMap.
type browseKeyMap struct {
	NextFocus key.Binding
	PrevFocus key.Binding
	Down      key.Binding
	Up        key.Binding
	NextValue key.Binding
	PrevValue key.Binding
	NextPage  key.Binding
	PrevPage  key.Binding
	Clear     key.Binding
	Retry     key.Binding
	Open      key.Binding
	Upload    key.Binding
	Logout    key.Binding
	Debug     key.Binding
	Quit      key.Binding
}

var browseKeys = browseKeyMap{
	NextFocus: key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/l", "next control")),
	PrevFocus: key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("h", "prev control")),
	Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "move")),
	Up:        key.NewBinding(key.WithKeys("k", "up")),
	NextValue: key.NewBinding(key.WithKeys("]"), key.WithHelp("[ ]", "cycle value")),
	PrevValue: key.NewBinding(key.WithKeys("[")),
	NextPage:  key.NewBinding(key.WithKeys("n", "pgdown"), key.WithHelp("n/p", "page")),
	PrevPage:  key.NewBinding(key.WithKeys("p", "pgup")),
	Clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
	Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
	Logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	Debug:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "debug")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextFocus, k.Down, k.NextValue, k.NextPage, k.Clear, k.Retry, k.Open, k.Upload, k.Logout, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextFocus, k.PrevFocus, k.Down, k.Up},
		{k.NextValue, k.PrevValue, k.NextPage, k.PrevPage},
		{k.Clear, k.Retry, k.Open, k.Upload},
		{k.Logout, k.Debug, k.Quit},
	}
}

// formKeys are shared by the login, signup and upload screens.
var formKeys = struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Back   key.Binding
	Switch key.Binding
	Quit   key.Binding
}{
	Next:   key.NewBinding(key.WithKeys("tab", "down")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up")),
	Submit: key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Switch: key.NewBinding(key.WithKeys("ctrl+n")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c")),
}

// detailKeys are the document detail bindings.
var detailKeys = struct {
	Download key.Binding
	Back     key.Binding
	Quit     key.Binding
}{
	Download: key.NewBinding(key.WithKeys("d")),
	Back:     key.NewBinding(key.WithKeys("esc", "backspace", "b")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c")),
}
