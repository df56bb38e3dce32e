package storage

import (
	"fmt"
	"path/filepath"

	"postgrid/internal/config"
)

// NewStorage opens the backend selected by the database configuration
func NewStorage(dataDir string, cfg config.DatabaseConfig) (Storage, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return NewSQLiteStorage(dataDir)
	case DriverPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for driver '%s'", cfg.Driver)
		}
		return NewSQLStorage(DriverPostgres, cfg.URL, cfg.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", cfg.Driver)
	}
}

// NewSQLiteStorage opens (or creates) the SQLite database inside dataDir
func NewSQLiteStorage(dataDir string) (*SQLStorage, error) {
	if err := ensureDataDir(dataDir); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dataDir, "postgrid.db")
	dsn := dbPath + "?_journal=WAL&_synchronous=NORMAL&_busy_timeout=30000&_foreign_keys=on"
	// SQLite only supports one writer at a time
	return NewSQLStorage(DriverSQLite, dsn, 1)
}
