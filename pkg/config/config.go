// Package config resolves settings from defaults, a YAML file, a .env file
// and the environment, in that order of increasing precedence. Command line
// flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvDriver     = "READINGLIST_DRIVER"
	EnvDSN        = "READINGLIST_DSN"
	EnvMongoDB    = "READINGLIST_MONGO_DB"
	EnvExportDir  = "READINGLIST_EXPORT_DIR"
	EnvSignalFile = "READINGLIST_SIGNAL_FILE"
	EnvLogDir     = "READINGLIST_LOG_DIR"
)

type Config struct {
	// Driver is one of sqlite3, sqlite, pgx, mongo or memory.
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MongoDatabase string `yaml:"mongo_database,omitempty"`
	ExportDir     string `yaml:"export_dir"`
	// SignalFile is rewritten after every change so open panels refresh.
	SignalFile string `yaml:"signal_file"`
	LogDir     string `yaml:"log_dir"`
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "readinglist")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "readinglist")
}

// DefaultPath is the YAML file Load reads when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in settings.
func Default() Config {
	base := Dir()
	exportDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		exportDir = filepath.Join(home, "Downloads")
	}
	return Config{
		Driver:        "sqlite3",
		DSN:           filepath.Join(base, "readinglist.db"),
		MongoDatabase: "readinglist",
		ExportDir:     exportDir,
		SignalFile:    filepath.Join(base, "updated.signal"),
		LogDir:        filepath.Join(base, "logs"),
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error; a malformed one is. An empty path means DefaultPath().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	for env, field := range map[string]*string{
		EnvDriver:     &cfg.Driver,
		EnvDSN:        &cfg.DSN,
		EnvMongoDB:    &cfg.MongoDatabase,
		EnvExportDir:  &cfg.ExportDir,
		EnvSignalFile: &cfg.SignalFile,
		EnvLogDir:     &cfg.LogDir,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

// Save writes cfg as YAML to path, creating its directory.
func Save(cfg Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
