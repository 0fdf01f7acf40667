package db

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	latest  int64
	now     Clock
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

// SetClock replaces the clock used to assign creation times.
func (s *MemoryStore) SetClock(c Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != nil {
		s.now = c
	}
}

func (s *MemoryStore) AddEntry(ctx context.Context, title, rawURL string, hasBeenRead bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	title, u, err := normalizeNew(title, rawURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[u]; ok {
		return fmt.Errorf("add %s: %w", u, ErrDuplicate)
	}
	s.latest = nextCreationTime(s.now(), s.latest)
	s.entries[u] = Entry{URL: u, Title: title, HasBeenRead: hasBeenRead, CreationTime: s.latest}
	return nil
}

func (s *MemoryStore) RemoveEntry(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u := strings.TrimSpace(rawURL)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[u]; !ok {
		return fmt.Errorf("remove %s: %w", u, ErrNotFound)
	}
	delete(s.entries, u)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
