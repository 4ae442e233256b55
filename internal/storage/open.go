// Package storage implements domain.PageStore on SQL, document and key-value backends.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"scrapbook/internal/domain"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverMongoDB  Driver = "mongodb"
	DriverRedis    Driver = "redis"
	DriverMemory   Driver = "memory"
)

// Config selects and addresses a backend. DSN wins over the discrete fields.
type Config struct {
	Driver   Driver
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	DataDir  string // sqlite file location when DSN is empty
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg Config) (domain.PageStore, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		path := cfg.DSN
		if path == "" {
			path = filepath.Join(cfg.DataDir, "scrapbook.db")
		}
		return asStore(OpenSQLite(path))
	case DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = buildPostgresDSN(cfg)
		}
		return asStore(OpenPostgres(dsn))
	case DriverMySQL:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = buildMySQLDSN(cfg)
		}
		return asStore(OpenMySQL(dsn))
	case DriverMongoDB:
		return asStore(OpenMongo(ctx, buildMongoURI(cfg), cfg.Database))
	case DriverRedis:
		url := cfg.DSN
		if url == "" {
			auth := ""
			if cfg.Password != "" {
				auth = ":" + cfg.Password + "@"
			}
			url = fmt.Sprintf("redis://%s%s:%d/0", auth, orDefault(cfg.Host, "localhost"), orDefaultInt(cfg.Port, 6379))
		}
		return asStore(OpenRedis(ctx, url))
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// asStore keeps a failed constructor's typed nil out of the interface.
func asStore[S domain.PageStore](s S, err error) (domain.PageStore, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}
