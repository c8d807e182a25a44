package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Open connects the named driver and wraps the connection with the matching
// bun dialect. Callers that already hold a *sql.DB can use Wrap instead.
func Open(driver, dsn string) (*bun.DB, error) {
	normalized, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(normalized, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s connection: %w", normalized, err)
	}
	return Wrap(normalized, sqlDB)
}

// Wrap attaches the bun dialect for the given driver to an existing
// connection.
func Wrap(driver string, sqlDB *sql.DB) (*bun.DB, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sqlstore: sql db is required")
	}
	normalized, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	switch normalized {
	case DriverPostgres:
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	}
}

func normalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "pg", "postgresql":
		return DriverPostgres, nil
	case DriverSQLite, "sqlite":
		return DriverSQLite, nil
	case "":
		return "", fmt.Errorf("sqlstore: database driver is required")
	default:
		return "", fmt.Errorf("sqlstore: unsupported database driver %q", driver)
	}
}
