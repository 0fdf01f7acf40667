package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"net/url"
	"strings"
	"time"
)

//go:embed migrations.sql
var migrationsSQL string

var (
	// ErrNotFound is returned when removing a URL that has no entry.
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicate is returned when adding a URL that already has an entry.
	ErrDuplicate = errors.New("duplicate url")
	// ErrInvalidURL is returned when adding a URL whose scheme is not http or https.
	ErrInvalidURL = errors.New("url must be http or https")
)

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	return InitDBContext(context.Background(), db)
}

// InitDBContext is InitDB with a context.
func InitDBContext(ctx context.Context, db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// IsWebURL reports whether raw parses as an absolute http or https URL.
func IsWebURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Clock returns the current time. Stores take one so tests can pin creation times.
type Clock func() time.Time

// nextCreationTime returns now in milliseconds, bumped past latest so that a
// newly added entry always sorts after every existing one.
func nextCreationTime(now time.Time, latest int64) int64 {
	ms := now.UnixMilli()
	if ms <= latest {
		return latest + 1
	}
	return ms
}

// normalizeNew applies the store-side rules shared by every backend.
func normalizeNew(title, rawURL string) (string, string, error) {
	u := strings.TrimSpace(rawURL)
	if !IsWebURL(u) {
		return "", "", ErrInvalidURL
	}
	t := strings.TrimSpace(title)
	if t == "" {
		t = u
	}
	return t, u, nil
}
