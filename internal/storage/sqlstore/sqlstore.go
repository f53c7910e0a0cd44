package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"kpi-dashboard/internal/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var migrations = map[string]string{
	DriverMySQL: `
		CREATE TABLE IF NOT EXISTS roster_assignments (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			operator    VARCHAR(128) NOT NULL,
			coordinator VARCHAR(128) NOT NULL,
			start_date  DATE NOT NULL,
			end_date    DATE NOT NULL,
			shift       VARCHAR(2) NOT NULL,
			machine     VARCHAR(16) NOT NULL,
			INDEX idx_roster_machine_shift (machine, shift)
		)`,
	DriverSQLite: `
		CREATE TABLE IF NOT EXISTS roster_assignments (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			operator    TEXT NOT NULL,
			coordinator TEXT NOT NULL,
			start_date  TEXT NOT NULL,
			end_date    TEXT NOT NULL,
			shift       TEXT NOT NULL,
			machine     TEXT NOT NULL
		)`,
}

type Storage struct {
	db     *sql.DB
	driver string
}

func New(cfg config.Storage) (*Storage, error) {
	return Open(cfg.Driver, cfg.DSN())
}

// Open connects with driver ("mysql" or "sqlite") and creates the roster table if needed.
func Open(driver, dsn string) (*Storage, error) {
	const op = "storage.sqlstore.Open"

	schema, ok := migrations[driver]
	if !ok {
		return nil, fmt.Errorf("%s: unsupported driver %q", op, driver)
	}

	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("%s: create db dir: %w", op, err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if driver == DriverSQLite {
		// one connection keeps ":memory:" databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: migration failed: %w", op, err)
	}

	return &Storage{db: db, driver: driver}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
