package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// OpenDB opens a bun handle for the given driver. Accepted driver names are
// postgres (aliases pg, postgresql) and sqlite3 (alias sqlite).
func OpenDB(driver string, dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	switch NormalizeDriver(driver) {
	case DriverPostgres:
		sqlDB, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	case DriverSQLite:
		sqlDB, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		// in-memory databases are per connection
		sqlDB.SetMaxOpenConns(1)
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

func NormalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return ""
	}
}
