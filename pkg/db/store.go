package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Dialect selects placeholder syntax for a SQL backend.
type Dialect int

const (
	// DialectSQLite uses ? placeholders (mattn/go-sqlite3 and modernc.org/sqlite).
	DialectSQLite Dialect = iota
	// DialectPostgres uses $n placeholders (pgx).
	DialectPostgres
)

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed") || strings.Contains(s, "duplicate key")
}

// SQLStore keeps entries in a relational database through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     Clock
}

// NewSQLStore wraps an already migrated connection.
func NewSQLStore(conn *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: conn, dialect: dialect, now: time.Now}
}

// SetClock replaces the clock used to assign creation times.
func (s *SQLStore) SetClock(c Clock) {
	if c != nil {
		s.now = c
	}
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the underlying handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders for dialects that need numbered ones.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AddEntry inserts a new entry. The creation time is allocated inside the
// same transaction as the insert.
func (s *SQLStore) AddEntry(ctx context.Context, title, rawURL string, hasBeenRead bool) error {
	title, u, err := normalizeNew(title, rawURL)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	latest, err := latestCreationTime(ctx, tx)
	if err != nil {
		return fmt.Errorf("read latest creation time: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO entries (url, title, has_been_read, creation_time) VALUES (?, ?, ?, ?)`),
		u, title, hasBeenRead, nextCreationTime(s.now(), latest),
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("add %s: %w", u, ErrDuplicate)
		}
		return fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("add %s: %w", u, ErrDuplicate)
		}
		return fmt.Errorf("commit add: %w", err)
	}
	return nil
}

func latestCreationTime(ctx context.Context, db DBExecutor) (int64, error) {
	var latest int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(creation_time), 0) FROM entries`).Scan(&latest)
	return latest, err
}

// RemoveEntry deletes the entry for rawURL, or returns ErrNotFound.
func (s *SQLStore) RemoveEntry(ctx context.Context, rawURL string) error {
	u := strings.TrimSpace(rawURL)
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM entries WHERE url = ?`), u)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("remove %s: %w", u, ErrNotFound)
	}
	return nil
}

// Query returns every entry in no particular order.
func (s *SQLStore) Query(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, title, has_been_read, creation_time FROM entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var title sql.NullString
		if err := rows.Scan(&e.URL, &title, &e.HasBeenRead, &e.CreationTime); err != nil {
			return nil, err
		}
		if title.Valid {
			e.Title = title.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
