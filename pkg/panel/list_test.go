package panel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/db/dbtest"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

const (
	urlA = "https://a.example.com/post"
	urlB = "https://github.com/japaniel/readinglist"
)

// newTestList seeds A at t=100 and B at t=200; the next add lands at t=300.
func newTestList(t *testing.T) (*List, *dbtest.FlakyStore) {
	t.Helper()
	mem := db.NewMemoryStore()
	mem.SetClock(dbtest.FixedClock(100, 200, 300, 400))
	store := dbtest.Wrap(mem)
	ctx := context.Background()
	if err := store.AddEntry(ctx, "Alpha article", urlA, false); err != nil {
		t.Fatalf("seed A: %v", err)
	}
	if err := store.AddEntry(ctx, "Beta repo", urlB, false); err != nil {
		t.Fatalf("seed B: %v", err)
	}
	l := NewList(readinglist.New(store, nil, nil), nil)
	if err := l.Render(ctx); err != nil {
		t.Fatalf("render: %v", err)
	}
	return l, store
}

func urls(rows []*Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Entry.URL)
	}
	return out
}

func TestRenderNewestFirst(t *testing.T) {
	l, _ := newTestList(t)
	got := urls(l.Visible())
	if len(got) != 2 || got[0] != urlB || got[1] != urlA {
		t.Fatalf("order = %v, want [B A]", got)
	}
	if l.Empty() {
		t.Fatal("list with rows reported empty")
	}
}

func TestOpenMarksReadAndMovesToTop(t *testing.T) {
	l, store := newTestList(t)
	ctx := context.Background()

	op, ok := l.BeginOpen(urlA)
	if !ok {
		t.Fatal("BeginOpen on unread row returned no op")
	}
	r, _ := l.Find(urlA)
	if !r.Read || !r.Busy {
		t.Fatalf("optimistic state = %+v, want read and busy", r)
	}
	if err := l.Run(ctx, op); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Busy || !r.Entry.HasBeenRead {
		t.Fatalf("completed row = %+v", r)
	}

	if err := l.Render(ctx); err != nil {
		t.Fatalf("render: %v", err)
	}
	got := urls(l.Visible())
	if got[0] != urlA {
		t.Fatalf("order after re-read = %v, want A first", got)
	}
	top := l.Visible()[0]
	if top.Entry.CreationTime != 300 || !top.Read {
		t.Fatalf("A = %+v, want read with creation time 300", top.Entry)
	}

	// opening a read row does not touch the store
	before := store.MutationCount()
	if _, ok := l.BeginOpen(urlA); ok {
		t.Fatal("BeginOpen on read row returned an op")
	}
	if store.MutationCount() != before {
		t.Fatal("store mutated by opening a read row")
	}
}

func TestFilter(t *testing.T) {
	l, _ := newTestList(t)

	l.Filter("GitHub")
	got := urls(l.Visible())
	if len(got) != 1 || got[0] != urlB {
		t.Fatalf("filter github = %v, want [B]", got)
	}

	l.Filter("alpha")
	if got := urls(l.Visible()); len(got) != 1 || got[0] != urlA {
		t.Fatalf("filter alpha = %v", got)
	}

	// title and domain are matched separately
	l.Filter("repo github")
	if got := urls(l.Visible()); len(got) != 0 {
		t.Fatalf("filter across title and domain = %v, want none", got)
	}

	l.Filter("nothing matches this")
	if len(l.Visible()) != 0 {
		t.Fatal("expected no visible rows")
	}
	if l.Empty() {
		t.Fatal("filtered-out rows must not show the placeholder")
	}

	l.Filter("")
	first := urls(l.Visible())
	l.Filter("")
	second := urls(l.Visible())
	if strings.Join(first, ",") != strings.Join(second, ",") || len(first) != 2 {
		t.Fatalf("empty filter not idempotent: %v vs %v", first, second)
	}
}

func TestFilterSurvivesRender(t *testing.T) {
	l, _ := newTestList(t)
	l.Filter("github")
	if err := l.Render(context.Background()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if l.Query() != "github" || len(l.Visible()) != 1 {
		t.Fatalf("filter lost on render: query=%q visible=%d", l.Query(), len(l.Visible()))
	}
}

func TestDeleteLastShowsPlaceholder(t *testing.T) {
	l, _ := newTestList(t)
	ctx := context.Background()

	for _, u := range []string{urlA, urlB} {
		op, ok := l.BeginDelete(u)
		if !ok {
			t.Fatalf("BeginDelete(%s) returned no op", u)
		}
		if _, found := l.Find(u); !found {
			t.Fatal("row removed before the store confirmed")
		}
		if err := l.Run(ctx, op); err != nil {
			t.Fatalf("delete %s: %v", u, err)
		}
	}
	if !l.Empty() {
		t.Fatalf("rows left: %v", urls(l.Rows()))
	}
}

func TestDeleteFailureRestoresRow(t *testing.T) {
	l, store := newTestList(t)
	store.FailRemove = func(string) error { return dbtest.ErrInjected }

	op, ok := l.BeginDelete(urlA)
	if !ok {
		t.Fatal("no op")
	}
	if len(l.Visible()) != 1 {
		t.Fatal("deleting row still visible")
	}
	err := l.Run(context.Background(), op)
	if !errors.Is(err, dbtest.ErrInjected) {
		t.Fatalf("err = %v", err)
	}
	r, found := l.Find(urlA)
	if !found || r.Deleting {
		t.Fatalf("row not restored: %+v", r)
	}
	if len(l.Visible()) != 2 {
		t.Fatal("restored row not visible")
	}
	if !strings.HasPrefix(l.Alert(), "Failed to delete item:") {
		t.Fatalf("alert = %q", l.Alert())
	}
	l.DismissAlert()
	if l.Alert() != "" {
		t.Fatal("alert not dismissed")
	}
}

func TestMarkReadFailureRevertsRow(t *testing.T) {
	l, store := newTestList(t)
	store.FailRemove = func(string) error { return dbtest.ErrInjected }

	op, _ := l.BeginOpen(urlA)
	if err := l.Run(context.Background(), op); err == nil {
		t.Fatal("expected error")
	}
	r, _ := l.Find(urlA)
	if r.Read || r.Busy {
		t.Fatalf("row not reverted: %+v", r)
	}
	if l.Alert() != "" {
		t.Fatalf("mark read failure should be silent, alert = %q", l.Alert())
	}
}

func TestMarkUnreadFailureAlerts(t *testing.T) {
	l, store := newTestList(t)
	ctx := context.Background()
	op, _ := l.BeginOpen(urlA)
	if err := l.Run(ctx, op); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	store.FailAdd = func(_ string, read bool) error {
		if !read {
			return dbtest.ErrInjected
		}
		return nil
	}
	op, ok := l.BeginMarkUnread(urlA)
	if !ok {
		t.Fatal("BeginMarkUnread on read row returned no op")
	}
	if err := l.Run(ctx, op); !errors.Is(err, dbtest.ErrInjected) {
		t.Fatalf("err = %v", err)
	}
	r, _ := l.Find(urlA)
	if !r.Read {
		t.Fatal("row not reverted to read")
	}
	if !strings.HasPrefix(l.Alert(), "Failed to mark as unread:") {
		t.Fatalf("alert = %q", l.Alert())
	}

	// the compensating add restored the read entry
	entries, _ := store.Query(ctx)
	found := false
	for _, e := range entries {
		if e.URL == urlA {
			found = e.HasBeenRead
		}
	}
	if !found {
		t.Fatal("entry not restored as read")
	}
}

func TestPartialUpdateRerenders(t *testing.T) {
	l, store := newTestList(t)
	store.FailAdd = func(string, bool) error { return dbtest.ErrInjected }

	op, _ := l.BeginOpen(urlA)
	err := l.Run(context.Background(), op)
	if !errors.Is(err, readinglist.ErrPartialUpdate) {
		t.Fatalf("err = %v, want partial update", err)
	}
	if _, found := l.Find(urlA); found {
		t.Fatal("re-render should have dropped the lost entry")
	}
	if l.Alert() == "" {
		t.Fatal("partial update not surfaced")
	}
}

func TestOpsOnVanishedRows(t *testing.T) {
	l, _ := newTestList(t)
	if _, ok := l.BeginOpen("https://missing.example"); ok {
		t.Fatal("op for unknown row")
	}
	if _, ok := l.BeginDelete("https://missing.example"); ok {
		t.Fatal("op for unknown row")
	}

	op, _ := l.BeginDelete(urlA)
	l.Load(nil)
	if l.Complete(op, nil) {
		t.Fatal("completing a vanished row should not ask for a render")
	}
	if l.Complete(Op{Kind: OpMarkRead, Entry: db.Entry{URL: urlA}}, &readinglist.PartialUpdateError{URL: urlA}) != true {
		t.Fatal("partial update on a vanished row should ask for a render")
	}
	if !l.Complete(Op{Kind: OpMarkUnread, Entry: db.Entry{URL: urlA}}, nil) {
		t.Fatal("status change on a vanished row should ask for a render")
	}
}

func TestReloadBetweenRemoveAndAdd(t *testing.T) {
	l, store := newTestList(t)
	ctx := context.Background()

	op, ok := l.BeginOpen(urlA)
	if !ok {
		t.Fatal("no op")
	}
	// the status change has removed A but not added it back when a reload lands
	if err := store.RemoveEntry(ctx, urlA); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err := store.Query(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	l.Load(entries)
	if _, found := l.Find(urlA); found {
		t.Fatal("reloaded rows should lack A")
	}
	if err := store.AddEntry(ctx, "Alpha article", urlA, true); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !l.Complete(op, nil) {
		t.Fatal("completed status change on a dropped row must ask for a render")
	}
	if err := l.Render(ctx); err != nil {
		t.Fatalf("render: %v", err)
	}
	r, found := l.Find(urlA)
	if !found || !r.Read {
		t.Fatalf("A after render = %+v, found=%v", r, found)
	}
	if len(l.Visible()) != 2 {
		t.Fatalf("visible = %v, want both entries", urls(l.Visible()))
	}
}

func TestRowAllowsOneOpAtATime(t *testing.T) {
	l, store := newTestList(t)
	ctx := context.Background()

	op, ok := l.BeginOpen(urlA)
	if !ok {
		t.Fatal("no op")
	}
	if _, ok := l.BeginMarkUnread(urlA); ok {
		t.Fatal("mark unread accepted while mark read in flight")
	}
	if _, ok := l.BeginDelete(urlA); ok {
		t.Fatal("delete accepted while mark read in flight")
	}

	// a reload while the op runs keeps the row busy
	entries, _ := store.Query(ctx)
	l.Load(entries)
	r, _ := l.Find(urlA)
	if !r.Busy || !r.Read {
		t.Fatalf("reload dropped in-flight state: %+v", r)
	}
	if err := l.Run(ctx, op); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	op, ok = l.BeginMarkUnread(urlA)
	if !ok {
		t.Fatal("mark unread refused on an idle read row")
	}
	if _, ok := l.BeginOpen(urlA); ok {
		t.Fatal("open accepted while mark unread in flight")
	}
	if err := l.Run(ctx, op); err != nil {
		t.Fatalf("mark unread: %v", err)
	}

	r, _ = l.Find(urlA)
	entries, _ = store.Query(ctx)
	for _, e := range entries {
		if e.URL == urlA && (e.HasBeenRead || r.Read) {
			t.Fatalf("row.Read=%v store.HasBeenRead=%v, want both unread", r.Read, e.HasBeenRead)
		}
	}
}

func TestRenderFailure(t *testing.T) {
	l, store := newTestList(t)
	store.FailQuery = func() error { return dbtest.ErrInjected }
	if err := l.Render(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if l.LoadErr() == nil || l.Empty() || len(l.Rows()) != 0 {
		t.Fatalf("failed render state: err=%v empty=%v rows=%d", l.LoadErr(), l.Empty(), len(l.Rows()))
	}
}

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/a?b=c": "www.example.com",
		"http://localhost:8080/":        "localhost",
		"not a url":                     "not a url",
	}
	for in, want := range cases {
		if got := Domain(in); got != want {
			t.Errorf("Domain(%q) = %q, want %q", in, got, want)
		}
	}
}
