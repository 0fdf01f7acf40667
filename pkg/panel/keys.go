package panel

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Open       key.Binding
	MarkUnread key.Binding
	Delete     key.Binding
	Add        key.Binding
	Export     key.Binding
	Copy       key.Binding
	Reload     key.Binding
	Search     key.Binding
	Blur       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		MarkUnread: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "mark unread")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add current tab")),
		Export:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export json")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Blur:       key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "leave search")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.MarkUnread, k.Delete, k.Search, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.MarkUnread, k.Delete, k.Copy},
		{k.Add, k.Export, k.Reload, k.Search},
		{k.Up, k.Down, k.Help, k.Quit},
	}
}
