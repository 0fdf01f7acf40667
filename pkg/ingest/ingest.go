// Package ingest bulk-adds links to the reading list from local files: a
// previous JSON export, a browser bookmark export, or an RSS/Atom feed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/export"
	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/notify"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// Format names an input file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatFeed Format = "feed"
)

// Link is one candidate entry.
type Link struct {
	URL   string
	Title string
}

// DetectFormat guesses the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".xml", ".rss", ".atom":
		return FormatFeed, nil
	default:
		return "", fmt.Errorf("cannot tell the format of %s; pass it explicitly", path)
	}
}

// ParseFile reads links from path. An empty format is detected from the extension.
func ParseFile(path string, format Format) ([]Link, error) {
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse reads links from r in the given format.
func Parse(r io.Reader, format Format) ([]Link, error) {
	switch format {
	case FormatJSON:
		return ParseExport(r)
	case FormatHTML:
		return ParseBookmarks(r)
	case FormatFeed:
		return ParseFeed(r)
	default:
		return nil, fmt.Errorf("unknown import format %q", format)
	}
}

// ParseExport reads a file written by the JSON export.
func ParseExport(r io.Reader) ([]Link, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	items, err := export.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(items))
	for _, it := range items {
		links = append(links, Link{URL: it.URL, Title: it.Title})
	}
	return links, nil
}

// ParseBookmarks reads every <a href> of an HTML document, which covers the
// Netscape bookmark format every browser exports.
func ParseBookmarks(r io.Reader) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse bookmarks: %w", err)
	}
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, Link{
			URL:   strings.TrimSpace(href),
			Title: strings.Join(strings.Fields(s.Text()), " "),
		})
	})
	return links, nil
}

// ParseFeed reads the item links of an RSS, Atom or JSON feed.
func ParseFeed(r io.Reader) ([]Link, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	links := make([]Link, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		links = append(links, Link{URL: strings.TrimSpace(item.Link), Title: strings.TrimSpace(item.Title)})
	}
	return links, nil
}

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// LinkAdder is the part of readinglist.Service the importer uses.
type LinkAdder interface {
	AddLink(ctx context.Context, url, suggestedTitle string) (string, error)
}

// Result counts what happened to each link.
type Result struct {
	Added      int
	Duplicates int
	Rejected   int
	Failed     int
}

// Total is the number of links processed.
func (r Result) Total() int { return r.Added + r.Duplicates + r.Rejected + r.Failed }

// Importer adds links concurrently through a worker pool.
type Importer struct {
	Service LinkAdder
	// Notifier receives one update after the import when anything was
	// added. Give Service a notifier-less readinglist.Service so the import
	// does not broadcast once per link.
	Notifier notify.Notifier
	// Logger is used for per-link failures. nil means no logging.
	Logger *logging.Logger
	// OnProgress is called after each link with the number processed so far and the total.
	OnProgress func(current, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewImporter creates an Importer with four workers.
func NewImporter(svc LinkAdder, notifier notify.Notifier) *Importer {
	return &Importer{Service: svc, Notifier: notifier, Workers: 4}
}

// Import adds every link. Per-link failures are counted, not returned; the
// error is for a pool or context failure, in which case the counts cover the
// links processed before it.
func (im *Importer) Import(ctx context.Context, links []Link) (Result, error) {
	var (
		mu   sync.Mutex
		res  Result
		done int
	)
	total := len(links)
	if total == 0 {
		return res, nil
	}

	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if im.PoolFactory != nil {
		wp = im.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(ctx)

	record := func(link Link, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			res.Added++
		case errors.Is(err, db.ErrDuplicate):
			res.Duplicates++
		case errors.Is(err, readinglist.ErrUnsupportedURL), errors.Is(err, db.ErrInvalidURL):
			res.Rejected++
		default:
			res.Failed++
			im.Logger.Warnf("import %s: %v", link.URL, err)
		}
		done++
		if im.OnProgress != nil {
			im.OnProgress(done, total)
		}
	}

	var submitErr error
Loop:
	for _, link := range links {
		select {
		case <-ctx.Done():
			submitErr = ctx.Err()
			break Loop
		default:
		}

		link := link
		job := func(ctx context.Context) error {
			_, err := im.Service.AddLink(ctx, link.URL, link.Title)
			record(link, err)
			return err
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			submitErr = fmt.Errorf("submit %s: %w", link.URL, err)
			break Loop
		}
	}

	wp.Close()

	mu.Lock()
	out := res
	mu.Unlock()

	if out.Added > 0 && im.Notifier != nil {
		if err := im.Notifier.Notify(ctx); err != nil {
			im.Logger.Debugf("notify: %v", err)
		}
	}
	im.Logger.Infof("Import finished: %d added, %d duplicates, %d rejected, %d failed",
		out.Added, out.Duplicates, out.Rejected, out.Failed)
	return out, submitErr
}
