package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSignal broadcasts across processes by rewriting a small file that
// watchers observe with fsnotify.
type FileSignal struct {
	path string
}

// NewFileSignal returns a signal backed by path. The file need not exist.
func NewFileSignal(path string) *FileSignal {
	return &FileSignal{path: filepath.Clean(path)}
}

// Path returns the signal file path.
func (s *FileSignal) Path() string { return s.path }

// Notify rewrites the signal file.
func (s *FileSignal) Notify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create signal dir: %w", err)
	}
	body := string(ReadingListUpdated) + " " + strconv.FormatInt(time.Now().UnixMilli(), 10) + "\n"
	if err := os.WriteFile(s.path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	return nil
}

// Watch emits ReadingListUpdated whenever another process notifies. The
// parent directory is watched rather than the file so that a file replaced
// or created after Watch starts is still seen. The channel closes when ctx
// is done or the watcher fails.
func (s *FileSignal) Watch(ctx context.Context) (<-chan Event, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create signal dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	out := make(chan Event, 1)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				select {
				case out <- ReadingListUpdated:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
