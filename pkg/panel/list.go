// Package panel renders the reading list and keeps the displayed rows
// consistent with the store while row actions are in flight.
//
// List is not safe for concurrent use: it belongs to the UI goroutine. Row
// actions are split into Begin (optimistic change, UI goroutine), Exec (store
// round trip, any goroutine) and Complete (apply the outcome, UI goroutine).
package panel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// Placeholder is shown instead of rows when the list is empty.
const Placeholder = "No reading list items found."

// LoadError is shown when the entries could not be fetched.
const LoadError = "Error loading reading list."

// Service is what the list needs from readinglist.Service.
type Service interface {
	QueryAll(ctx context.Context) ([]db.Entry, error)
	SetReadStatus(ctx context.Context, entry db.Entry, read bool) error
	RemoveEntry(ctx context.Context, url string) error
}

// Row is one displayed entry.
type Row struct {
	Entry  db.Entry
	Domain string
	// Read is the displayed state and may run ahead of Entry.HasBeenRead
	// while an update is in flight.
	Read bool
	// Hidden rows do not match the current filter.
	Hidden bool
	// Deleting rows are waiting for the store to confirm a delete.
	Deleting bool
	// Busy is set while a status update for the row is in flight.
	Busy bool
}

// OpKind names a row action.
type OpKind int

const (
	OpMarkRead OpKind = iota
	OpMarkUnread
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpMarkRead:
		return "mark read"
	case OpMarkUnread:
		return "mark unread"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is a pending store call for one row. Entry is the snapshot taken
// before the optimistic change.
type Op struct {
	Kind  OpKind
	Entry db.Entry
}

// List is the state of one panel.
type List struct {
	svc   Service
	log   *logging.Logger
	rows  []*Row
	query string

	loadErr error
	alert   string
}

// NewList returns an empty list; call Render or Load to fill it.
func NewList(svc Service, logger *logging.Logger) *List {
	return &List{svc: svc, log: logger}
}

// Render fetches every entry and rebuilds the rows.
func (l *List) Render(ctx context.Context) error {
	entries, err := l.svc.QueryAll(ctx)
	if err != nil {
		l.Fail(err)
		return err
	}
	l.Load(entries)
	return nil
}

// Fail records a failed fetch: the rows are cleared and LoadError is shown.
func (l *List) Fail(err error) {
	l.log.Errorf("Failed to load reading list: %v", err)
	l.rows = nil
	l.loadErr = err
}

// Load replaces the rows with entries, most recent first, and re-applies the
// current filter. Rows with an op in flight keep their displayed state.
func (l *List) Load(entries []db.Entry) {
	pending := make(map[string]*Row)
	for _, r := range l.rows {
		if r.Busy || r.Deleting {
			pending[r.Entry.URL] = r
		}
	}

	sorted := make([]db.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreationTime > sorted[j].CreationTime
	})

	l.loadErr = nil
	l.rows = make([]*Row, 0, len(sorted))
	for _, e := range sorted {
		row := &Row{
			Entry:  e,
			Domain: Domain(e.URL),
			Read:   e.HasBeenRead,
		}
		if old, ok := pending[e.URL]; ok {
			row.Read = old.Read
			row.Busy = old.Busy
			row.Deleting = old.Deleting
		}
		l.rows = append(l.rows, row)
	}
	l.log.Debugf("Items fetched: %d", len(l.rows))
	l.Filter(l.query)
}

// Domain returns the host of raw, or raw itself when it does not parse.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// Filter hides rows where neither the title nor the domain contains q
// (case-insensitive). An empty q shows every row.
func (l *List) Filter(q string) {
	l.query = q
	needle := strings.ToLower(q)
	for _, r := range l.rows {
		match := strings.Contains(strings.ToLower(r.Entry.Title), needle) ||
			strings.Contains(strings.ToLower(r.Domain), needle)
		r.Hidden = needle != "" && !match
	}
}

// Query returns the current filter text.
func (l *List) Query() string { return l.query }

// Rows returns every row of the last render, including hidden ones.
func (l *List) Rows() []*Row { return l.rows }

// Visible returns the rows to draw, in render order.
func (l *List) Visible() []*Row {
	var out []*Row
	for _, r := range l.rows {
		if !r.Hidden && !r.Deleting {
			out = append(out, r)
		}
	}
	return out
}

// Empty reports whether the placeholder should be shown.
func (l *List) Empty() bool {
	return l.loadErr == nil && len(l.rows) == 0
}

// LoadErr returns the error of the last failed fetch, if any.
func (l *List) LoadErr() error { return l.loadErr }

// Alert returns the message of the last failed user action.
func (l *List) Alert() string { return l.alert }

// DismissAlert clears Alert.
func (l *List) DismissAlert() { l.alert = "" }

// Find returns the row for url.
func (l *List) Find(url string) (*Row, bool) {
	for _, r := range l.rows {
		if r.Entry.URL == url {
			return r, true
		}
	}
	return nil, false
}

// BeginOpen is called when the user opens a row; the caller opens the
// target regardless. If the row is unread it is shown as read and the
// returned op must be executed. A row allows one op at a time.
func (l *List) BeginOpen(url string) (Op, bool) {
	r, ok := l.Find(url)
	if !ok || r.Read || r.Busy || r.Deleting {
		return Op{}, false
	}
	l.log.Debugf("Item marked as read: %s", url)
	op := Op{Kind: OpMarkRead, Entry: r.Entry}
	r.Read = true
	r.Busy = true
	return op, true
}

// BeginMarkUnread flips a read row back to unread.
func (l *List) BeginMarkUnread(url string) (Op, bool) {
	r, ok := l.Find(url)
	if !ok || !r.Read || r.Busy || r.Deleting {
		return Op{}, false
	}
	op := Op{Kind: OpMarkUnread, Entry: r.Entry}
	r.Read = false
	r.Busy = true
	return op, true
}

// BeginDelete takes the row out of the visible set until the store answers.
func (l *List) BeginDelete(url string) (Op, bool) {
	r, ok := l.Find(url)
	if !ok || r.Busy || r.Deleting {
		return Op{}, false
	}
	l.log.Debugf("Attempting to delete: %s", url)
	r.Deleting = true
	return Op{Kind: OpDelete, Entry: r.Entry}, true
}

// Exec performs the store call for op. It touches no list state and may run
// on any goroutine.
func (l *List) Exec(ctx context.Context, op Op) error {
	switch op.Kind {
	case OpMarkRead:
		return l.svc.SetReadStatus(ctx, op.Entry, true)
	case OpMarkUnread:
		return l.svc.SetReadStatus(ctx, op.Entry, false)
	case OpDelete:
		return l.svc.RemoveEntry(ctx, op.Entry.URL)
	default:
		return fmt.Errorf("unknown op %d", op.Kind)
	}
}

// Complete applies the outcome of op. It reports whether the caller should
// re-render: after the last row is deleted, after a partial update left the
// store without the entry, and when a status change finished on a row a
// re-render dropped.
func (l *List) Complete(op Op, err error) (rerender bool) {
	r, ok := l.Find(op.Entry.URL)
	if !ok {
		// the fetch that replaced the rows may have run between the remove
		// and the add, so the store can hold the entry the rows lack
		return op.Kind != OpDelete || errors.Is(err, readinglist.ErrPartialUpdate)
	}

	switch op.Kind {
	case OpMarkRead, OpMarkUnread:
		r.Busy = false
		if err == nil {
			r.Entry.HasBeenRead = op.Kind == OpMarkRead
			r.Read = r.Entry.HasBeenRead
			return false
		}
		r.Read = op.Entry.HasBeenRead
		if op.Kind == OpMarkRead {
			l.log.Errorf("Failed to sync read status: %v", err)
		} else {
			l.log.Errorf("Failed to mark as unread: %v", err)
			l.alert = "Failed to mark as unread: " + err.Error()
		}
		if errors.Is(err, readinglist.ErrPartialUpdate) {
			l.alert = "Entry was removed but could not be saved again: " + err.Error()
			return true
		}
		return false

	case OpDelete:
		if err != nil {
			l.log.Errorf("Failed to delete item: %v", err)
			r.Deleting = false
			l.alert = "Failed to delete item: " + err.Error()
			return false
		}
		l.remove(r)
		return len(l.rows) == 0
	}
	return false
}

func (l *List) remove(target *Row) {
	for i, r := range l.rows {
		if r == target {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return
		}
	}
}

// Run is Begin's counterpart for synchronous callers: Exec then Complete,
// re-rendering when Complete asks for it.
func (l *List) Run(ctx context.Context, op Op) error {
	err := l.Exec(ctx, op)
	if l.Complete(op, err) {
		if rerr := l.Render(ctx); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
