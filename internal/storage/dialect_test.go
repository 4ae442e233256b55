package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"scrapbook/internal/domain"
)

func TestUniqueViolationDetection(t *testing.T) {
	tests := []struct {
		name string
		d    dialect
		err  error
		want bool
	}{
		{"postgres unique", postgresDialect, fmt.Errorf("exec: %w", &pq.Error{Code: "23505"}), true},
		{"postgres other", postgresDialect, &pq.Error{Code: "23503"}, false},
		{"mysql duplicate", mysqlDialect, &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", mysqlDialect, &mysql.MySQLError{Number: 1045}, false},
		{"sqlite message", sqliteDialect, errors.New("constraint failed: UNIQUE constraint failed: scrapbook_pages.user_id"), true},
		{"sqlite other", sqliteDialect, errors.New("database is locked"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}

// A second session inserting the same page between our update and insert.
func TestSQLite_InsertRaceIsConflict(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "race.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	key := domain.PageKey{UserID: "u", Slug: "p"}

	if _, err := s.Conn().Exec(`INSERT INTO scrapbook_pages (user_id, collection_slug, blocks) VALUES (?, ?, '[]')`, key.UserID, key.Slug); err != nil {
		t.Fatal(err)
	}
	_, err = s.Conn().Exec(`INSERT INTO scrapbook_pages (user_id, collection_slug, blocks) VALUES (?, ?, '[]')`, key.UserID, key.Slug)
	if err == nil || !sqliteDialect.isUniqueViolation(err) {
		t.Fatalf("duplicate insert err = %v, want unique violation", err)
	}

	if err := s.Update(context.Background(), key, domain.Collection{{ID: "x", Type: "text"}}); err != nil {
		t.Fatalf("compensating Update: %v", err)
	}
}

func TestBuildDSNs(t *testing.T) {
	cfg := Config{Host: "db.local", User: "scrap", Password: "pw", Database: "books"}

	pg := buildPostgresDSN(cfg)
	if pg != "host=db.local port=5432 user=scrap password=pw dbname=books sslmode=disable" {
		t.Errorf("postgres dsn = %q", pg)
	}

	my := buildMySQLDSN(cfg)
	for _, want := range []string{"scrap:pw@tcp(db.local:3306)/books", "parseTime=true", "clientFoundRows=true"} {
		if !strings.Contains(my, want) {
			t.Errorf("mysql dsn %q missing %q", my, want)
		}
	}

	if uri := buildMongoURI(cfg); uri != "mongodb://scrap:pw@db.local:27017" {
		t.Errorf("mongo uri = %q", uri)
	}
	if uri := buildMongoURI(Config{DSN: "mongodb+srv://x"}); uri != "mongodb+srv://x" {
		t.Errorf("mongo uri from dsn = %q", uri)
	}
}
