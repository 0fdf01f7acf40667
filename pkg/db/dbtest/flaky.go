// Package dbtest provides store wrappers for tests.
package dbtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/japaniel/readinglist/pkg/db"
)

// ErrInjected is the default error returned by a failing call.
var ErrInjected = errors.New("injected store failure")

// Store is the store contract wrapped by FlakyStore.
type Store interface {
	AddEntry(ctx context.Context, title, url string, hasBeenRead bool) error
	RemoveEntry(ctx context.Context, url string) error
	Query(ctx context.Context) ([]db.Entry, error)
}

// Call records one store invocation.
type Call struct {
	Op   string // "add", "remove" or "query"
	URL  string
	Read bool
}

// FlakyStore wraps a store, records every call and fails the ones selected by
// the Fail* hooks. A hook returning nil lets the call through.
type FlakyStore struct {
	Inner Store

	FailAdd    func(url string, read bool) error
	FailRemove func(url string) error
	FailQuery  func() error

	mu    sync.Mutex
	calls []Call
}

// Wrap returns a FlakyStore around inner with no failures configured.
func Wrap(inner Store) *FlakyStore {
	return &FlakyStore{Inner: inner}
}

func (f *FlakyStore) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *FlakyStore) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// MutationCount returns how many add and remove calls were made.
func (f *FlakyStore) MutationCount() int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op != "query" {
			n++
		}
	}
	return n
}

func (f *FlakyStore) AddEntry(ctx context.Context, title, url string, hasBeenRead bool) error {
	f.record(Call{Op: "add", URL: url, Read: hasBeenRead})
	if f.FailAdd != nil {
		if err := f.FailAdd(url, hasBeenRead); err != nil {
			return err
		}
	}
	return f.Inner.AddEntry(ctx, title, url, hasBeenRead)
}

func (f *FlakyStore) RemoveEntry(ctx context.Context, url string) error {
	f.record(Call{Op: "remove", URL: url})
	if f.FailRemove != nil {
		if err := f.FailRemove(url); err != nil {
			return err
		}
	}
	return f.Inner.RemoveEntry(ctx, url)
}

func (f *FlakyStore) Query(ctx context.Context) ([]db.Entry, error) {
	f.record(Call{Op: "query"})
	if f.FailQuery != nil {
		if err := f.FailQuery(); err != nil {
			return nil, err
		}
	}
	return f.Inner.Query(ctx)
}

// FixedClock returns a clock that yields the given millisecond timestamps in
// order and then keeps returning the last one. With no timestamps it always
// returns the Unix epoch.
func FixedClock(ms ...int64) db.Clock {
	if len(ms) == 0 {
		ms = []int64{0}
	}
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		v := ms[len(ms)-1]
		if i < len(ms) {
			v = ms[i]
			i++
		}
		return time.UnixMilli(v)
	}
}
