package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes leveled lines for one component to the session log file.
// Every invocation of the CLI or panel is one session, so concurrent
// processes never interleave within a file.
//
// A nil *Logger is valid and discards everything.
type Logger struct {
	sessionID string
	component string
	out       *sessionFile
}

// sessionFile is shared by every component logger of a session.
type sessionFile struct {
	mu        sync.Mutex
	logger    *log.Logger
	file      *os.File
	path      string
	closeOnce sync.Once
}

// New opens <dir>/<session-id>-readinglist.log for appending.
//
// If the directory or file cannot be created it returns a logger writing to
// stderr together with the error, so callers can warn and keep going.
func New(dir, component string) (*Logger, error) {
	return NewWithFallback(dir, component, os.Stderr)
}

// NewWithFallback is New with the writer used when the log file cannot be
// opened. Full-screen callers pass io.Discard to keep the terminal clean.
func NewWithFallback(dir, component string, fallback io.Writer) (*Logger, error) {
	sessID := uuid.New().String()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return newFallback(fallback, sessID, component, err), err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-readinglist.log", sessID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallback(fallback, sessID, component, err), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		out: &sessionFile{
			logger: log.New(file, "", 0), // timestamps are formatted per entry
			file:   file,
			path:   path,
		},
	}, nil
}

// NewWriter returns a logger writing to w, mostly for tests and --verbose.
func NewWriter(w io.Writer, component string) *Logger {
	return &Logger{
		sessionID: uuid.New().String(),
		component: component,
		out:       &sessionFile{logger: log.New(w, "", 0)},
	}
}

func newFallback(w io.Writer, sessID, component string, err error) *Logger {
	l := log.New(w, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	l.Printf("WARNING: Failed to initialize file logging: %v", err)
	return &Logger{
		sessionID: sessID,
		component: component,
		out:       &sessionFile{logger: l},
	}
}

// With returns a logger for another component sharing the same output.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sessionID: l.sessionID, component: component, out: l.out}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	if l == nil || l.out == nil {
		return
	}
	message := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }
func (l *Logger) Infof(format string, v ...interface{})  { l.write("INFO", format, v...) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.write("WARN", format, v...) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// SessionID returns the session identifier embedded in the file name.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// LogPath returns the log file path, or "" when not logging to a file.
func (l *Logger) LogPath() string {
	if l == nil || l.out == nil {
		return ""
	}
	return l.out.path
}

// Close closes the log file. Safe to call multiple times and from any
// component logger of the session.
func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	var err error
	l.out.closeOnce.Do(func() {
		if l.out.file != nil {
			err = l.out.file.Close()
		}
	})
	return err
}
