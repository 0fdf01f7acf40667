package entrypoint

import (
	"context"
	"time"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/export"
	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// Popup status texts.
const (
	StatusSaved      = "Saved!"
	StatusSaveFailed = "Failed to save."
	StatusNoItems    = "No items found."
	StatusDone       = "Done!"
	StatusError      = "Error occurred."
)

// PopupService is what the popup calls on the store side.
type PopupService interface {
	AddCurrentPage(ctx context.Context, tab *readinglist.Tab) (string, error)
	QueryAll(ctx context.Context) ([]db.Entry, error)
}

// Popup offers the two quick actions: save the active tab and export.
type Popup struct {
	Service    PopupService
	Tabs       TabSource
	Downloader export.Downloader
	Logger     *logging.Logger
	// Now stamps export filenames; defaults to time.Now.
	Now func() time.Time

	// LastExport is the path of the most recent successful export.
	LastExport string
}

// Save adds the active tab and returns the status text to show.
func (p *Popup) Save(ctx context.Context) string {
	tab, err := p.Tabs.ActiveTab(ctx)
	if err == nil {
		_, err = p.Service.AddCurrentPage(ctx, tab)
	}
	if err != nil {
		p.Logger.Errorf("Save failed: %v", err)
		return StatusSaveFailed
	}
	return StatusSaved
}

// Download exports every entry and returns the status text to show.
func (p *Popup) Download(ctx context.Context) string {
	entries, err := p.Service.QueryAll(ctx)
	if err != nil {
		p.Logger.Errorf("Export failed: %v", err)
		return StatusError
	}
	if len(entries) == 0 {
		return StatusNoItems
	}

	data, err := export.Marshal(entries)
	if err != nil {
		p.Logger.Errorf("Export failed: %v", err)
		return StatusError
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	path, err := p.Downloader.Download(ctx, export.Filename(now()), data)
	if err != nil {
		p.Logger.Errorf("Export failed: %v", err)
		return StatusError
	}
	p.LastExport = path
	p.Logger.Infof("Exported %d entries to %s", len(entries), path)
	return StatusDone
}
