package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/readinglist/pkg/config"
	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/logging"
	"github.com/japaniel/readinglist/pkg/notify"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

// panelComponent names the logger of the full-screen panel.
const panelComponent = "panel"

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	overrides  config.Config

	cfg    config.Config
	log    *logging.Logger
	store  db.Backend
	hub    *notify.Hub
	signal *notify.FileSignal
	// notifier reaches in-process subscribers and other processes.
	notifier notify.Notifier
	// svc broadcasts every change; the panel uses svc.WithoutNotifications().
	svc *readinglist.Service
	now func() time.Time
}

func newApp() *app {
	return &app{hub: notify.NewHub(), now: time.Now}
}

func (a *app) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to config file (default "+config.DefaultPath()+")")
	f.StringVar(&a.overrides.Driver, "driver", "", "Store driver: sqlite3, sqlite, pgx, mongo or memory")
	f.StringVar(&a.overrides.DSN, "dsn", "", "SQLite path, Postgres connection string or MongoDB URI")
	f.StringVar(&a.overrides.MongoDatabase, "mongo-db", "", "MongoDB database name")
	f.StringVar(&a.overrides.ExportDir, "export-dir", "", "Directory exports are written to")
	f.StringVar(&a.overrides.SignalFile, "signal-file", "", "File rewritten after every change so open panels refresh")
	f.StringVar(&a.overrides.LogDir, "log-dir", "", "Directory for session log files")
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	// flags win over every other source
	o := a.overrides
	for dst, v := range map[*string]string{
		&cfg.Driver:        o.Driver,
		&cfg.DSN:           o.DSN,
		&cfg.MongoDatabase: o.MongoDatabase,
		&cfg.ExportDir:     o.ExportDir,
		&cfg.SignalFile:    o.SignalFile,
		&cfg.LogDir:        o.LogDir,
	} {
		if v != "" {
			*dst = v
		}
	}
	a.cfg = cfg
	return nil
}

// fallbackLog is where logging goes when the log file cannot be opened. The
// panel owns the terminal, so its lines are dropped.
func fallbackLog(component string) io.Writer {
	if component == panelComponent {
		return io.Discard
	}
	return os.Stderr
}

// open resolves the configuration and connects to the store.
func (a *app) open(ctx context.Context, component string) error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	logger, err := logging.NewWithFallback(a.cfg.LogDir, component, fallbackLog(component))
	if err != nil {
		logger.Warnf("Continuing without a log file: %v", err)
	}
	a.log = logger

	store, err := db.Open(ctx, db.Options{
		Driver:        a.cfg.Driver,
		DSN:           a.cfg.DSN,
		MongoDatabase: a.cfg.MongoDatabase,
	})
	if err != nil {
		a.log.Errorf("Failed to open store: %v", err)
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store
	a.log.Debugf("Store opened: driver=%s", a.cfg.Driver)

	a.signal = notify.NewFileSignal(a.cfg.SignalFile)
	a.notifier = notify.Multi{a.hub, a.signal}
	a.svc = readinglist.New(store, a.notifier, a.log.With("service"))
	return nil
}

func (a *app) close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.log != nil {
		_ = a.log.Close()
	}
	return err
}
