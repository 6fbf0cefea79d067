package config

import (
	"fmt"
	"os"
	"strings"
)

// Backend names a persistence store implementation.
type Backend string

const (
	// BackendMemory keeps committed state in memory only.
	BackendMemory Backend = "memory"
	// BackendSQLite snapshots into a SQLite database file.
	BackendSQLite Backend = "sqlite"
	// BackendPostgres snapshots into a PostgreSQL database.
	BackendPostgres Backend = "postgres"
	// BackendJSON snapshots into a JSON Lines file.
	BackendJSON Backend = "json"
	// BackendCSV snapshots into a CSV file.
	BackendCSV Backend = "csv"
)

// Config captures environment driven configuration for the scheduler.
type Config struct {
	RoomsFile    string
	Store        Backend
	SQLiteDSN    string
	PostgresDSN  string
	DataFile     string
	AutosaveCron string
	LogLevel     string
}

// Load parses configuration values from the current process environment.
// Optional fields receive defaults; invalid values are reported together.
func Load() (Config, error) {
	cfg := Config{
		RoomsFile:    "rooms.yaml",
		Store:        BackendMemory,
		SQLiteDSN:    "file:roomsched.db",
		DataFile:     "events.jsonl",
		AutosaveCron: "@every 1m",
		LogLevel:     "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if roomsFile := strings.TrimSpace(os.Getenv("ROOMSCHED_ROOMS_FILE")); roomsFile != "" {
		cfg.RoomsFile = roomsFile
	}

	if store := strings.TrimSpace(os.Getenv("ROOMSCHED_STORE")); store != "" {
		switch Backend(strings.ToLower(store)) {
		case BackendMemory, BackendSQLite, BackendPostgres, BackendJSON, BackendCSV:
			cfg.Store = Backend(strings.ToLower(store))
		default:
			invalid = append(invalid, "ROOMSCHED_STORE")
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMSCHED_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMSCHED_POSTGRES_DSN")); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	if cfg.Store == BackendPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "ROOMSCHED_POSTGRES_DSN")
	}

	if dataFile := strings.TrimSpace(os.Getenv("ROOMSCHED_DATA_FILE")); dataFile != "" {
		cfg.DataFile = dataFile
	}

	if spec := strings.TrimSpace(os.Getenv("ROOMSCHED_AUTOSAVE_CRON")); spec != "" {
		cfg.AutosaveCron = spec
	}

	if level := strings.TrimSpace(os.Getenv("ROOMSCHED_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "ROOMSCHED_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
