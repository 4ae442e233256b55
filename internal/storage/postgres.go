package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// buildPostgresDSN constructs a Postgres connection string from discrete settings.
func buildPostgresDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslMode,
	)
}

func OpenPostgres(dsn string) (*SQLStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	configurePool(conn)
	return newSQLStore(conn, postgresDialect)
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: sq.Dollar,
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS scrapbook_pages (
			user_id TEXT NOT NULL,
			collection_slug TEXT NOT NULL,
			blocks JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, collection_slug)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scrapbook_pages_user ON scrapbook_pages(user_id)`,
	},
	isUniqueViolation: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

func configurePool(conn *sql.DB) {
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(10 * time.Minute)
}
