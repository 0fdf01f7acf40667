// Package readinglist implements every mutation of the reading list on top
// of a host store that can only add, remove and list entries.
package readinglist

import (
	"context"
	"fmt"
	"strings"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/notify"
)

// Store is the host list store. It owns durability and URL uniqueness and
// has no transactions and no update-in-place.
type Store interface {
	AddEntry(ctx context.Context, title, url string, hasBeenRead bool) error
	RemoveEntry(ctx context.Context, url string) error
	Query(ctx context.Context) ([]db.Entry, error)
}

// Tab is the foreground page offered by an entry point.
type Tab struct {
	Title string
	URL   string
}

// Service is the only path from entry points to the store. It keeps no
// entries between calls.
type Service struct {
	store    Store
	notifier notify.Notifier
	log      *logging.Logger
}

// New returns a Service. notifier may be nil, in which case mutations are
// not broadcast (the panel uses such a Service for its own edits).
func New(store Store, notifier notify.Notifier, logger *logging.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: logger}
}

// WithoutNotifications returns a Service sharing the store that never broadcasts.
func (s *Service) WithoutNotifications() *Service {
	return &Service{store: s.store, log: s.log}
}

// AddEntry adds one entry; the title falls back to the URL.
func (s *Service) AddEntry(ctx context.Context, title, url string, hasBeenRead bool) error {
	if strings.TrimSpace(title) == "" {
		title = url
	}
	return s.store.AddEntry(ctx, title, url, hasBeenRead)
}

// RemoveEntry removes the entry for url.
func (s *Service) RemoveEntry(ctx context.Context, url string) error {
	return s.store.RemoveEntry(ctx, url)
}

// QueryAll returns every entry as the store returns them (unordered).
func (s *Service) QueryAll(ctx context.Context) ([]db.Entry, error) {
	return s.store.Query(ctx)
}

// validate rejects anything that is not an http(s) page before the store is touched.
func validate(url string) error {
	if !db.IsWebURL(url) {
		return fmt.Errorf("%q: %w", url, ErrUnsupportedURL)
	}
	return nil
}

// AddCurrentPage saves tab as unread and returns its URL.
func (s *Service) AddCurrentPage(ctx context.Context, tab *Tab) (string, error) {
	if tab == nil {
		s.log.Warnf("No active tab found.")
		return "", ErrNoActiveTab
	}
	url := strings.TrimSpace(tab.URL)
	if err := validate(url); err != nil {
		s.log.Warnf("Can only add web pages (http/https): %s", url)
		return "", err
	}
	if err := s.AddEntry(ctx, tab.Title, url, false); err != nil {
		return "", fmt.Errorf("add current page: %w", err)
	}
	s.log.Infof("Added to reading list: %s", tab.Title)
	s.broadcast(ctx)
	return url, nil
}

// AddLink saves a link as unread. suggestedTitle is the anchor or selected
// text; the URL is used when it is blank.
func (s *Service) AddLink(ctx context.Context, url, suggestedTitle string) (string, error) {
	url = strings.TrimSpace(url)
	if err := validate(url); err != nil {
		s.log.Warnf("Can only add web links (http/https): %s", url)
		return "", err
	}
	title := strings.TrimSpace(suggestedTitle)
	if title == "" {
		title = url
	}
	if err := s.AddEntry(ctx, title, url, false); err != nil {
		return "", fmt.Errorf("add link: %w", err)
	}
	s.log.Infof("Added link to reading list: %s", url)
	s.broadcast(ctx)
	return url, nil
}

// SetReadStatus changes entry's read flag by removing and re-adding it, which
// assigns a new creation time.
//
// If the remove fails the store is untouched. If the add fails the original
// entry is re-added; the add error is returned when that works, and a
// *PartialUpdateError when it does not (the entry is then gone).
func (s *Service) SetReadStatus(ctx context.Context, entry db.Entry, read bool) error {
	if err := s.store.RemoveEntry(ctx, entry.URL); err != nil {
		return fmt.Errorf("set read status: %w", err)
	}

	addErr := s.store.AddEntry(ctx, entry.Title, entry.URL, read)
	if addErr == nil {
		s.broadcast(ctx)
		return nil
	}

	s.log.Warnf("Re-add of %s failed, restoring: %v", entry.URL, addErr)
	if err := s.store.AddEntry(ctx, entry.Title, entry.URL, entry.HasBeenRead); err != nil {
		s.log.Errorf("Restore of %s failed, entry lost: %v", entry.URL, err)
		// the entry is gone, which other surfaces must see too
		s.broadcast(ctx)
		return &PartialUpdateError{URL: entry.URL, AddErr: addErr, RollbackErr: err}
	}
	return fmt.Errorf("set read status: %w", addErr)
}

// Delete removes the entry for url.
func (s *Service) Delete(ctx context.Context, url string) error {
	if err := s.store.RemoveEntry(ctx, url); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.broadcast(ctx)
	return nil
}

// Notify broadcasts a change that happened outside the Service.
func (s *Service) Notify(ctx context.Context) {
	s.broadcast(ctx)
}

func (s *Service) broadcast(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx); err != nil {
		// nobody listening is not a failure
		s.log.Debugf("notify: %v", err)
	}
}
