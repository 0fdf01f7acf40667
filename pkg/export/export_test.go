package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/japaniel/readinglist/pkg/db"
)

func TestMarshalIsPermutationOfEntries(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	added := map[string]string{
		"https://example.com/a": "A",
		"https://example.com/b": "B",
		"https://github.com/x":  "GitHub Issue",
	}
	for url, title := range added {
		if err := store.AddEntry(ctx, title, url, url == "https://example.com/b"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	entries, err := store.Query(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	data, err := Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), "[\n  {\n    \"title\"") {
		t.Fatalf("unexpected layout:\n%s", data)
	}
	if strings.Contains(string(data), "has_been_read") || strings.Contains(string(data), "creation") {
		t.Fatalf("export leaks internal fields:\n%s", data)
	}

	items, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != len(added) {
		t.Fatalf("got %d items, want %d", len(items), len(added))
	}
	for _, it := range items {
		if added[it.URL] != it.Title {
			t.Errorf("item %+v not among added entries", it)
		}
	}
}

func TestMarshalKeepsHTMLCharacters(t *testing.T) {
	data, err := Marshal([]db.Entry{{Title: "Q&A: <div> tips", URL: "https://example.com/?a=1&b=2"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "[\n  {\n    \"title\": \"Q&A: <div> tips\",\n    \"url\": \"https://example.com/?a=1&b=2\"\n  }\n]"
	if string(data) != want {
		t.Fatalf("export =\n%s\nwant\n%s", data, want)
	}
}

func TestMarshalEmpty(t *testing.T) {
	data, err := Marshal(nil)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("empty export = %q", data)
	}
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 3, 1, 21, 30, 45, 123_000_000, time.FixedZone("X", 9*3600))
	got := Filename(ts)
	if got != "reading-list-2024-03-01T12-30-45-123Z.json" {
		t.Fatalf("Filename = %q", got)
	}
	pattern := regexp.MustCompile(`^reading-list-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z\.json$`)
	if !pattern.MatchString(Filename(time.Now())) {
		t.Fatalf("Filename(now) does not match %s", pattern)
	}
}

func TestDirDownloader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := DirDownloader{Dir: dir}
	ctx := context.Background()

	path, err := d.Download(ctx, "reading-list-x.json", []byte("[]"))
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "[]" {
		t.Fatalf("read back: %q, %v", data, err)
	}

	if _, err := d.Download(ctx, "reading-list-x.json", []byte("[1]")); !errors.Is(err, ErrExists) {
		t.Fatalf("second download err = %v, want ErrExists", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "[]" {
		t.Fatal("existing export overwritten")
	}

	if _, err := d.Download(ctx, "../escape.json", nil); err == nil {
		t.Fatal("expected error for path traversal")
	}

	entries, _ := os.ReadDir(dir)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) != 1 {
		t.Fatalf("files in export dir: %v", names)
	}
}
