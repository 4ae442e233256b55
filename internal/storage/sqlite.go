package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// OpenSQLite opens (or creates) the SQLite file at dbPath and migrates it.
func OpenSQLite(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	return newSQLStore(conn, sqliteDialect)
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: sq.Question,
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS scrapbook_pages (
			user_id TEXT NOT NULL,
			collection_slug TEXT NOT NULL,
			blocks TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, collection_slug)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scrapbook_pages_user ON scrapbook_pages(user_id)`,
	},
	isUniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}
