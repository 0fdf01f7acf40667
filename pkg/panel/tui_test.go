package panel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/db/dbtest"
	"github.com/japaniel/readinglist/pkg/entrypoint"
	"github.com/japaniel/readinglist/pkg/notify"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

type recordingOpener struct{ opened []string }

func (r *recordingOpener) Open(url string) error {
	r.opened = append(r.opened, url)
	return nil
}

type fakeDownloader struct {
	name string
	data []byte
}

func (f *fakeDownloader) Download(_ context.Context, name string, data []byte) (string, error) {
	f.name, f.data = name, data
	return "/exports/" + name, nil
}

func newTestModel(t *testing.T) (*Model, *dbtest.FlakyStore, *recordingOpener) {
	t.Helper()
	mem := db.NewMemoryStore()
	mem.SetClock(dbtest.FixedClock(100, 200, 300, 400, 500))
	store := dbtest.Wrap(mem)
	ctx := context.Background()
	for _, e := range []struct{ title, url string }{
		{"Example", "https://example.com"},
		{"GitHub Issue", "https://github.com/x/y/issues/1"},
	} {
		if err := store.AddEntry(ctx, e.title, e.url, false); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	opener := &recordingOpener{}
	m := NewModel(Options{
		Service: readinglist.New(store, nil, nil),
		Opener:  opener,
		Copy:    func(string) error { return nil },
		Now:     func() time.Time { return time.UnixMilli(600) },
	})
	// a blinking cursor would schedule timer commands on every keystroke
	m.search.Cursor.SetMode(cursor.CursorStatic)
	settle(t, m, m.fetch())
	return m, store, opener
}

// settle runs cmd and feeds every resulting message back into the model
// until no command is left.
func settle(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 20 {
			t.Fatal("model did not settle")
		}
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			for _, c := range batch {
				settle(t, m, c)
			}
			return
		}
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := m.Update(msg)
		settle(t, m, cmd)
	}
}

func TestModelRendersNewestFirst(t *testing.T) {
	m, _, _ := newTestModel(t)
	view := m.View()
	if strings.Index(view, "GitHub Issue") > strings.Index(view, "Example") {
		t.Fatalf("GitHub Issue (newer) should come first:\n%s", view)
	}
	if !strings.Contains(view, "github.com") {
		t.Fatalf("domain missing:\n%s", view)
	}
}

func TestModelOpenMarksRead(t *testing.T) {
	m, store, opener := newTestModel(t)
	press(t, m, "down", "enter")

	if len(opener.opened) != 1 || opener.opened[0] != "https://example.com" {
		t.Fatalf("opened = %v", opener.opened)
	}
	r, _ := m.List().Find("https://example.com")
	if !r.Read || r.Busy {
		t.Fatalf("row = %+v", r)
	}
	entries, _ := store.Inner.Query(context.Background())
	for _, e := range entries {
		if e.URL == "https://example.com" && !e.HasBeenRead {
			t.Fatal("store not updated")
		}
	}

	// opening again never touches the store
	before := store.MutationCount()
	press(t, m, "enter")
	if store.MutationCount() != before {
		t.Fatal("re-opening a read row mutated the store")
	}
	if len(opener.opened) != 2 {
		t.Fatalf("opened = %v", opener.opened)
	}
}

func TestModelSecondaryKeysDoNotOpen(t *testing.T) {
	m, store, opener := newTestModel(t)
	store.FailRemove = func(string) error { return dbtest.ErrInjected }
	press(t, m, "d", "u", "y")
	if len(opener.opened) != 0 {
		t.Fatalf("secondary keys opened %v", opener.opened)
	}
	if len(m.List().Visible()) != 2 {
		t.Fatal("failed delete did not restore the row")
	}
}

func TestModelSearch(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(t, m, "/", "g", "i", "t", "h", "u", "b")
	if got := len(m.List().Visible()); got != 1 {
		t.Fatalf("visible = %d", got)
	}
	press(t, m, "esc", "/")
	if !m.search.Focused() {
		t.Fatal("search not focused")
	}
	press(t, m, "esc")
	if m.List().Query() != "github" {
		t.Fatalf("query = %q", m.List().Query())
	}
}

func TestModelDeleteLastShowsPlaceholder(t *testing.T) {
	m, _, _ := newTestModel(t)
	press(t, m, "d", "d")
	if !m.List().Empty() {
		t.Fatalf("rows left: %d", len(m.List().Rows()))
	}
	if !strings.Contains(m.View(), Placeholder) {
		t.Fatalf("placeholder missing:\n%s", m.View())
	}
}

func TestModelAddCurrentTab(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.opts.Tabs = entrypoint.StaticTab{Title: "New", URL: "https://new.example"}
	press(t, m, "a")
	if m.Status() != "Saved to reading list" {
		t.Fatalf("status = %q", m.Status())
	}
	if top := m.List().Visible()[0]; top.Entry.URL != "https://new.example" {
		t.Fatalf("top row = %+v", top.Entry)
	}

	m.opts.Tabs = entrypoint.StaticTab{URL: "chrome://extensions"}
	press(t, m, "a")
	if m.Status() != "Can only add web pages (http/https)." {
		t.Fatalf("status = %q", m.Status())
	}
}

func TestModelExport(t *testing.T) {
	m, _, _ := newTestModel(t)
	dl := &fakeDownloader{}
	m.opts.Downloader = dl
	press(t, m, "x")
	if !strings.HasPrefix(dl.name, "reading-list-") || !strings.Contains(string(dl.data), "GitHub Issue") {
		t.Fatalf("download = %q %s", dl.name, dl.data)
	}
	if !strings.HasPrefix(m.Status(), "Exported 2 items") {
		t.Fatalf("status = %q", m.Status())
	}
}

func TestModelRefreshesOnUpdate(t *testing.T) {
	m, store, _ := newTestModel(t)
	hub := notify.NewHub()
	ch, unsub := hub.Subscribe()
	defer unsub()
	m.opts.Updates = ch

	if err := store.AddEntry(context.Background(), "Elsewhere", "https://elsewhere.example", false); err != nil {
		t.Fatal(err)
	}
	if err := hub.Notify(context.Background()); err != nil {
		t.Fatal(err)
	}
	// one update: fetch, then wait again on the now empty channel
	msg := m.waitForUpdate()()
	if _, ok := msg.(updatedMsg); !ok {
		t.Fatalf("msg = %#v", msg)
	}
	_, cmd := m.Update(msg)
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("expected fetch and wait batch")
	}
	m.Update(batch[0]())
	if _, found := m.List().Find("https://elsewhere.example"); !found {
		t.Fatal("update did not refetch")
	}
}

func TestModelLoadError(t *testing.T) {
	m, store, _ := newTestModel(t)
	store.FailQuery = func() error { return errors.New("offline") }
	press(t, m, "r")
	if !strings.Contains(m.View(), LoadError) {
		t.Fatalf("load error not shown:\n%s", m.View())
	}
}
