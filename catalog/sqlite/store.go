// Package sqlite provides a SQLite-backed catalog.PageSource.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/IvanBrykalov/gridview/catalog"
	perrors "github.com/jmgilman/go/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists catalog entries in SQLite and serves them in pages.
type Store struct {
	sqlDB *sql.DB
}

var _ catalog.PageSource = (*Store)(nil)

// Open opens the database at path (":memory:" for a private in-memory
// database) and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Insert stores entries in one transaction. An entry whose Position is
// taken replaces the previous one; a SKU already stored at another
// position is a conflict.
func (s *Store) Insert(ctx context.Context, entries ...catalog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if strings.TrimSpace(e.SKU) == "" {
			return perrors.New(perrors.CodeInvalidInput, "catalog entry sku is required")
		}
		if e.Position < 0 {
			return perrors.Newf(perrors.CodeInvalidInput, "catalog entry %s: negative position %d", e.SKU, e.Position)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin insert")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_entries (position, sku, title, image) VALUES (?, ?, ?, ?)
		 ON CONFLICT(position) DO UPDATE SET
		   sku = excluded.sku,
		   title = excluded.title,
		   image = excluded.image`)
	if err != nil {
		return classify(err, "prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Position, e.SKU, e.Title, e.Image); err != nil {
			return classify(err, "insert entry "+e.SKU)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify(err, "commit insert")
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_entries`).Scan(&n); err != nil {
		return 0, classify(err, "count entries")
	}
	return n, nil
}

// FetchPage implements catalog.PageSource in position order.
func (s *Store) FetchPage(ctx context.Context, offset, limit int) ([]catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || limit <= 0 {
		return nil, perrors.Newf(perrors.CodeInvalidInput, "invalid page offset=%d limit=%d", offset, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT position, sku, title, image FROM catalog_entries ORDER BY position LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, classify(err, "fetch page")
	}
	defer func() { _ = rows.Close() }()

	page := make([]catalog.Entry, 0, limit)
	for rows.Next() {
		var e catalog.Entry
		if err := rows.Scan(&e.Position, &e.SKU, &e.Title, &e.Image); err != nil {
			return nil, classify(err, "scan entry")
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate page")
	}
	return page, nil
}

// classify tags SQLite errors for the retry executor: lock contention is
// transient, everything else is permanent.
func classify(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return perrors.Wrap(err, perrors.CodeDatabase, op)
		case sqlite3lib.SQLITE_CONSTRAINT:
			return perrors.Wrap(err, perrors.CodeConflict, op)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return perrors.Wrap(err, perrors.CodeUnavailable, op)
	}
	return perrors.Wrap(err, perrors.CodeInternal, op)
}
