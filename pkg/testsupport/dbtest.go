// Package testsupport provides database fixtures for repository tests.
package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-renderly/internal/storage"
)

var dbSeq atomic.Int64

// SQLiteMemoryDSN names an in-memory database shared by every connection that
// opens the same name. The data lives until the last connection closes.
func SQLiteMemoryDSN(name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", clean, dbSeq.Add(1))
}

// NewSQLiteMemoryDB opens a raw pool on a fresh in-memory database.
func NewSQLiteMemoryDB(name string) (*sql.DB, error) {
	return sql.Open("sqlite3", SQLiteMemoryDSN(name))
}

// NewMigratedDB returns a bun DB on a fresh in-memory sqlite database with
// the renderly schema applied. It is closed when tb finishes.
func NewMigratedDB(tb testing.TB) *bun.DB {
	tb.Helper()

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DialectSQLite, SQLiteMemoryDSN(tb.Name()))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(ctx, db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}
