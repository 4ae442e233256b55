package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"scrapbook/internal/domain"
)

const pagesTable = "scrapbook_pages"

// dialect captures what differs between the SQL backends.
type dialect struct {
	name              string
	placeholder       sq.PlaceholderFormat
	migrations        []string
	isUniqueViolation func(error) bool
}

// SQLStore implements domain.PageStore on any database/sql driver.
// One row per page; the block collection is stored as a JSON document.
type SQLStore struct {
	conn    *sql.DB
	dialect dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

func newSQLStore(conn *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{
		conn:    conn,
		dialect: d,
		sb:      sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, m := range s.dialect.migrations {
		if _, err := s.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying database connection.
func (s *SQLStore) Conn() *sql.DB {
	return s.conn
}

func (s *SQLStore) byKey(key domain.PageKey) sq.Eq {
	return sq.Eq{"user_id": key.UserID, "collection_slug": key.Slug}
}

func (s *SQLStore) Get(ctx context.Context, key domain.PageKey) (domain.Collection, bool, error) {
	query, args, err := s.sb.Select("blocks").From(pagesTable).Where(s.byKey(key)).Limit(1).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build select: %w", err)
	}

	var raw []byte
	err = s.conn.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get page: %w", err)
	}

	blocks, err := decodeBlocks(raw)
	if err != nil {
		return nil, false, err
	}
	return blocks, true, nil
}

// Upsert updates the row for key, inserting it when none exists. An insert that
// loses a race against another session surfaces as domain.ErrConflict.
func (s *SQLStore) Upsert(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	data, err := encodeBlocks(blocks)
	if err != nil {
		return err
	}
	n, err := s.update(ctx, key, data)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return s.insert(ctx, key, data)
}

// insert adds the row for key. Losing to another writer is ErrConflict.
func (s *SQLStore) insert(ctx context.Context, key domain.PageKey, data string) error {
	query, args, err := s.sb.Insert(pagesTable).
		Columns("user_id", "collection_slug", "blocks", "updated_at").
		Values(key.UserID, key.Slug, data, s.now()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("insert page: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	data, err := encodeBlocks(blocks)
	if err != nil {
		return err
	}
	n, err := s.update(ctx, key, data)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update page %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (s *SQLStore) update(ctx context.Context, key domain.PageKey, data string) (int64, error) {
	query, args, err := s.sb.Update(pagesTable).
		Set("blocks", data).
		Set("updated_at", s.now()).
		Where(s.byKey(key)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update page: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// List returns the pages stored for userID, most recently saved first.
func (s *SQLStore) List(ctx context.Context, userID string) ([]domain.PageSummary, error) {
	query, args, err := s.sb.Select("collection_slug", "blocks", "updated_at").
		From(pagesTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	pages := []domain.PageSummary{}
	for rows.Next() {
		var (
			slug    string
			raw     []byte
			updated any
		)
		if err := rows.Scan(&slug, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		blocks, err := decodeBlocks(raw)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", slug, err)
		}
		pages = append(pages, domain.PageSummary{Slug: slug, Blocks: len(blocks), UpdatedAt: asTime(updated)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	domain.SortSummaries(pages)
	return pages, nil
}

func (s *SQLStore) Delete(ctx context.Context, key domain.PageKey) error {
	query, args, err := s.sb.Delete(pagesTable).Where(s.byKey(key)).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete page %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

// asTime converts a scanned timestamp. Drivers hand back time.Time, or text
// when the column type is not mapped (SQLite without a recognised layout).
func asTime(v any) time.Time {
	var text string
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		text = t
	case []byte:
		text = string(t)
	default:
		return time.Time{}
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	} {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// encodeBlocks serializes a collection as a JSON array. Strings rather than
// []byte keep lib/pq from sending the value as bytea.
func encodeBlocks(blocks domain.Collection) (string, error) {
	if blocks == nil {
		blocks = domain.Collection{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("encode blocks: %w", err)
	}
	return string(data), nil
}

func decodeBlocks(raw []byte) (domain.Collection, error) {
	blocks := domain.Collection{}
	if len(raw) == 0 {
		return blocks, nil
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return blocks, nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
