package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite3  = "sqlite3" // mattn/go-sqlite3
	DriverSQLite   = "sqlite"  // modernc.org/sqlite
	DriverPostgres = "pgx"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Backend is a store that owns a connection.
type Backend interface {
	AddEntry(ctx context.Context, title, url string, hasBeenRead bool) error
	RemoveEntry(ctx context.Context, url string) error
	Query(ctx context.Context) ([]Entry, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver string
	// DSN is a file path for SQLite, a connection string for Postgres and a
	// URI for MongoDB.
	DSN           string
	MongoDatabase string
}

// Open connects to the backend named by opts.Driver and runs migrations.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMongo:
		return ConnectMongo(ctx, opts.DSN, opts.MongoDatabase, "entries")
	case DriverSQLite3, DriverSQLite:
		return openSQLite(ctx, opts.Driver, opts.DSN)
	case DriverPostgres:
		return openPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func openSQLite(ctx context.Context, driver, path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The panel and CLI invocations share the file; one connection per
	// process plus a busy timeout keeps writers from failing on SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil && path != ":memory:" {
			_ = conn.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if err := InitDBContext(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLStore(conn, DialectSQLite), nil
}

func openPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := InitDBContext(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLStore(conn, DialectPostgres), nil
}
