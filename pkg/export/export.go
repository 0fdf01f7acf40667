// Package export writes the reading list as a downloadable JSON file.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/japaniel/readinglist/pkg/db"
)

// Item is one exported entry. Read state and creation time are not exported.
type Item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Marshal returns entries as a JSON array indented with two spaces.
func Marshal(entries []db.Entry) ([]byte, error) {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{Title: e.Title, URL: e.URL})
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal parses an export file.
func Unmarshal(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return items, nil
}

// Filename is reading-list-<ISO 8601 UTC timestamp>.json with ':' and '.'
// replaced by '-', e.g. reading-list-2024-03-01T12-30-45-123Z.json.
func Filename(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "reading-list-" + stamp + ".json"
}

// Downloader saves an exported file and returns where it went.
type Downloader interface {
	Download(ctx context.Context, filename string, data []byte) (string, error)
}

// ErrExists is returned when the target file is already present.
var ErrExists = errors.New("export file already exists")

// DirDownloader writes exports into Dir, creating it when needed. Existing
// files are never overwritten.
type DirDownloader struct {
	Dir string
}

func (d DirDownloader) Download(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid export filename %q", filename)
	}
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrExists)
		}
		return "", fmt.Errorf("create export file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
