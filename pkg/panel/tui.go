package panel

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/entrypoint"
	"github.com/japaniel/readinglist/pkg/export"
	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/notify"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// storeTimeout bounds every store round trip started from the panel.
const storeTimeout = 10 * time.Second

// PanelService is everything the panel program calls on the store side.
type PanelService interface {
	Service
	AddCurrentPage(ctx context.Context, tab *readinglist.Tab) (string, error)
}

// Opener opens an entry's target outside the panel.
type Opener interface {
	Open(url string) error
}

// BrowserOpener hands URLs to the desktop's default handler.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Options wires the panel program to its collaborators. Service is required;
// every other field may be left zero.
type Options struct {
	Service    PanelService
	Opener     Opener
	Tabs       entrypoint.TabSource
	Downloader export.Downloader
	// Updates delivers READING_LIST_UPDATED events from other surfaces.
	Updates <-chan notify.Event
	// Copy writes text to the clipboard; defaults to clipboard.WriteAll.
	Copy   func(string) error
	Logger *logging.Logger
	Now    func() time.Time
}

type (
	entriesMsg struct {
		entries []db.Entry
		err     error
	}
	opDoneMsg struct {
		op  Op
		err error
	}
	updatedMsg  struct{}
	addedMsg    struct{ err error }
	exportedMsg struct {
		path  string
		count int
		err   error
	}
)

// Model is the bubbletea model of the panel.
type Model struct {
	opts   Options
	list   *List
	keys   keyMap
	help   help.Model
	search textinput.Model

	cursor int
	status string
	loaded bool
	width  int
	height int
}

// NewModel builds the panel model. The first render is started by Init.
func NewModel(opts Options) *Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Opener == nil {
		opts.Opener = BrowserOpener{}
	}
	ti := textinput.New()
	ti.Placeholder = "Search reading list"
	ti.Prompt = "/ "
	ti.CharLimit = 200

	return &Model{
		opts:   opts,
		list:   NewList(opts.Service, opts.Logger),
		keys:   newKeyMap(),
		help:   help.New(),
		search: ti,
	}
}

// List exposes the row state, mainly for tests.
func (m *Model) List() *List { return m.list }

// Status returns the last informational message.
func (m *Model) Status() string { return m.status }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.waitForUpdate())
}

func (m *Model) fetch() tea.Cmd {
	svc := m.opts.Service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		entries, err := svc.QueryAll(ctx)
		return entriesMsg{entries: entries, err: err}
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.opts.Updates
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return updatedMsg{}
	}
}

func (m *Model) exec(op Op) tea.Cmd {
	l := m.list
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return opDoneMsg{op: op, err: l.Exec(ctx, op)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case entriesMsg:
		m.loaded = true
		if msg.err != nil {
			m.list.Fail(msg.err)
		} else {
			m.list.Load(msg.entries)
		}
		m.clampCursor()
		return m, nil

	case updatedMsg:
		return m, tea.Batch(m.fetch(), m.waitForUpdate())

	case opDoneMsg:
		rerender := m.list.Complete(msg.op, msg.err)
		m.clampCursor()
		if rerender {
			return m, m.fetch()
		}
		return m, nil

	case addedMsg:
		switch {
		case msg.err == nil:
			m.status = "Saved to reading list"
			return m, m.fetch()
		case errors.Is(msg.err, readinglist.ErrNoActiveTab):
			m.status = "No active tab found."
		case errors.Is(msg.err, readinglist.ErrUnsupportedURL):
			m.status = "Can only add web pages (http/https)."
		case errors.Is(msg.err, db.ErrDuplicate):
			m.status = "Already in reading list."
		default:
			m.status = "Failed to save: " + msg.err.Error()
		}
		return m, nil

	case exportedMsg:
		switch {
		case msg.err != nil:
			m.status = "Export failed: " + msg.err.Error()
		case msg.count == 0:
			m.status = "No items found."
		default:
			m.status = fmt.Sprintf("Exported %d items to %s", msg.count, msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Blur) {
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.list.Query() {
		m.list.Filter(m.search.Value())
		m.cursor = 0
	}
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.list.DismissAlert()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.list.Visible())-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Search):
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Reload):
		return m, m.fetch()
	case key.Matches(msg, m.keys.Add):
		return m, m.addCurrentTab()
	case key.Matches(msg, m.keys.Export):
		return m, m.export()
	case key.Matches(msg, m.keys.Open):
		return m, m.open()
	case key.Matches(msg, m.keys.MarkUnread):
		if r := m.selected(); r != nil {
			if op, ok := m.list.BeginMarkUnread(r.Entry.URL); ok {
				return m, m.exec(op)
			}
		}
	case key.Matches(msg, m.keys.Delete):
		if r := m.selected(); r != nil {
			if op, ok := m.list.BeginDelete(r.Entry.URL); ok {
				m.clampCursor()
				return m, m.exec(op)
			}
		}
	case key.Matches(msg, m.keys.Copy):
		if r := m.selected(); r != nil {
			if err := m.opts.Copy(r.Entry.URL); err != nil {
				m.status = "Copy failed: " + err.Error()
			} else {
				m.status = "Copied " + r.Entry.URL
			}
		}
	}
	return m, nil
}

func (m *Model) open() tea.Cmd {
	r := m.selected()
	if r == nil {
		return nil
	}
	if err := m.opts.Opener.Open(r.Entry.URL); err != nil {
		m.opts.Logger.Errorf("open %s: %v", r.Entry.URL, err)
		m.status = "Could not open " + r.Entry.URL
	}
	if op, ok := m.list.BeginOpen(r.Entry.URL); ok {
		return m.exec(op)
	}
	return nil
}

func (m *Model) addCurrentTab() tea.Cmd {
	tabs, svc := m.opts.Tabs, m.opts.Service
	return func() tea.Msg {
		if tabs == nil {
			return addedMsg{err: readinglist.ErrNoActiveTab}
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		tab, err := tabs.ActiveTab(ctx)
		if err != nil {
			return addedMsg{err: err}
		}
		_, err = svc.AddCurrentPage(ctx, tab)
		return addedMsg{err: err}
	}
}

func (m *Model) export() tea.Cmd {
	dl, svc, now := m.opts.Downloader, m.opts.Service, m.opts.Now
	return func() tea.Msg {
		if dl == nil {
			return exportedMsg{err: errors.New("no export directory configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		entries, err := svc.QueryAll(ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		if len(entries) == 0 {
			return exportedMsg{}
		}
		data, err := export.Marshal(entries)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := dl.Download(ctx, export.Filename(now()), data)
		return exportedMsg{path: path, count: len(entries), err: err}
	}
}

func (m *Model) selected() *Row {
	rows := m.list.Visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return rows[m.cursor]
}

func (m *Model) clampCursor() {
	n := len(m.list.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Reading List"))
	b.WriteString("\n")

	box := searchStyle
	if m.search.Focused() {
		box = searchFocusedStyle
	}
	b.WriteString(box.Render(m.search.View()))
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString(placeholderStyle.Render("Loading..."))
	case m.list.LoadErr() != nil:
		b.WriteString(alertStyle.Render(LoadError))
	case m.list.Empty():
		b.WriteString(placeholderStyle.Render(Placeholder))
	default:
		b.WriteString(m.renderRows())
	}
	b.WriteString("\n")

	if a := m.list.Alert(); a != "" {
		b.WriteString(alertStyle.Render(a))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderRows() string {
	rows := m.list.Visible()
	now := m.opts.Now()

	// two lines per row; keep the cursor on screen
	start, end := 0, len(rows)
	if m.height > 0 {
		fit := (m.height - 8) / 2
		if fit < 1 {
			fit = 1
		}
		if m.cursor >= fit {
			start = m.cursor - fit + 1
		}
		if start+fit < end {
			end = start + fit
		}
	}

	lines := make([]string, 0, 2*(end-start))
	for i := start; i < end; i++ {
		r := rows[i]
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("▸ ")
		}
		dot := "● "
		title := titleStyle.Render(r.Entry.Title)
		if r.Read {
			dot = "○ "
			title = readTitleStyle.Render(r.Entry.Title)
		}
		if r.Busy {
			dot = "… "
		}
		lines = append(lines,
			marker+dot+title,
			"    "+metaStyle.Render(Meta(r, now)),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Run starts the panel program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
