// Package storage opens the SQL database behind the bun catalog and revision
// repositories and applies the embedded schema migrations.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var (
	ErrDialectUnknown = errors.New("storage: dialect is not supported")
	ErrDSNRequired    = errors.New("storage: dsn is required")
	ErrDBRequired     = errors.New("storage: database is required")
)

//go:embed migrations
var migrationsFS embed.FS

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// NormalizeDialect maps accepted aliases onto DialectSQLite or
// DialectPostgres.
func NormalizeDialect(dialect string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrDialectUnknown, dialect)
	}
}

// Open connects to dsn and wraps the pool in a bun.DB for dialect. The
// connection is verified with a ping.
func Open(ctx context.Context, dialect, dsn string) (*bun.DB, error) {
	normalized, err := NormalizeDialect(dialect)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrDSNRequired
	}

	driver := "sqlite3"
	if normalized == DialectPostgres {
		driver = "pgx"
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", normalized, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", normalized, err)
	}
	return Wrap(sqlDB, normalized)
}

// Wrap builds a bun.DB over an existing pool.
func Wrap(sqlDB *sql.DB, dialect string) (*bun.DB, error) {
	if sqlDB == nil {
		return nil, ErrDBRequired
	}
	normalized, err := NormalizeDialect(dialect)
	if err != nil {
		return nil, err
	}
	if normalized == DialectPostgres {
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	}
	// sqlite serialises writers; a single connection also keeps
	// shared in-memory databases alive.
	sqlDB.SetMaxOpenConns(1)
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// Migrate applies every pending migration for the database's dialect.
func Migrate(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return ErrDBRequired
	}
	dialect, dir := gooseDialect(db)

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("storage: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("storage: migrate: %w", err)
	}
	return nil
}

func gooseDialect(db *bun.DB) (string, string) {
	if _, ok := db.Dialect().(*pgdialect.Dialect); ok {
		return "postgres", "migrations/postgres"
	}
	return "sqlite3", "migrations/sqlite"
}
