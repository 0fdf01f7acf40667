package entrypoint

import (
	"context"

	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// CommandAddToReadingList is the keyboard command that saves the active tab.
const CommandAddToReadingList = "add_to_reading_list"

// Adder is the part of readinglist.Service the handlers use to save pages.
type Adder interface {
	AddCurrentPage(ctx context.Context, tab *readinglist.Tab) (string, error)
	AddLink(ctx context.Context, url, suggestedTitle string) (string, error)
}

// Shortcuts handles keyboard commands.
type Shortcuts struct {
	Service Adder
	Tabs    TabSource
	Toast   Toaster
	Logger  *logging.Logger
}

// Handle runs command. Unknown commands are ignored. The returned URL is
// empty when nothing was saved.
func (s *Shortcuts) Handle(ctx context.Context, command string) (string, error) {
	if command != CommandAddToReadingList {
		s.Logger.Debugf("ignoring command %q", command)
		return "", nil
	}
	tab, err := s.Tabs.ActiveTab(ctx)
	if err != nil {
		s.Logger.Errorf("Failed to add to reading list: %v", err)
		return "", err
	}
	url, err := s.Service.AddCurrentPage(ctx, tab)
	if err != nil {
		s.Logger.Errorf("Failed to add to reading list: %v", err)
		return "", err
	}
	if s.Toast != nil {
		if err := s.Toast.Show(ctx, SavedToast); err != nil {
			s.Logger.Errorf("Failed to show toast: %v", err)
		}
	}
	return url, nil
}
