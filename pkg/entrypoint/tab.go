// Package entrypoint holds the thin handlers behind the keyboard shortcut,
// the context menu and the popup. Handlers report failures through their
// return values and logs and never end the process.
package entrypoint

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/japaniel/readinglist/pkg/pagemeta"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// TabSource looks up the foreground page. A nil tab with a nil error means
// there is no active tab.
type TabSource interface {
	ActiveTab(ctx context.Context) (*readinglist.Tab, error)
}

// StaticTab is a tab given on the command line.
type StaticTab struct {
	Title string
	URL   string
}

func (s StaticTab) ActiveTab(ctx context.Context) (*readinglist.Tab, error) {
	if strings.TrimSpace(s.URL) == "" {
		return nil, nil
	}
	return &readinglist.Tab{Title: s.Title, URL: s.URL}, nil
}

// PageFile is a page saved to disk. Its title is read from the HTML.
type PageFile struct {
	Path string
	URL  string
}

func (p PageFile) ActiveTab(ctx context.Context) (*readinglist.Tab, error) {
	if strings.TrimSpace(p.URL) == "" {
		return nil, nil
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open saved page: %w", err)
	}
	defer f.Close()

	title, err := pagemeta.Title(f, p.URL)
	if err != nil {
		return nil, fmt.Errorf("read saved page: %w", err)
	}
	return &readinglist.Tab{Title: title, URL: p.URL}, nil
}
