package state

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"sitewatch/internal/domain"
	"sitewatch/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS fingerprints (
    url        TEXT PRIMARY KEY,
    fp         TEXT NOT NULL DEFAULT '',
    ts         INTEGER NOT NULL,
    last_error TEXT NOT NULL DEFAULT ''
)`

// SQLiteStore is the database-backed alternative to FileStore, for
// deployments that keep run state in a local DB file instead of JSON.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.StateStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (and if needed initializes) the state database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state db %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads all records; an empty table yields an empty map.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]domain.FingerprintRecord, error) {
	query, args, err := sq.Select("url", "fp", "ts", "last_error").From("fingerprints").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	defer rows.Close()

	records := map[string]domain.FingerprintRecord{}
	for rows.Next() {
		var url string
		var rec domain.FingerprintRecord
		if err := rows.Scan(&url, &rec.Fingerprint, &rec.CheckedAt, &rec.LastError); err != nil {
			return nil, fmt.Errorf("scan state row: %w", err)
		}
		records[url] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state rows: %w", err)
	}

	return records, nil
}

// Save replaces the whole table inside one transaction, giving the same
// wholesale-overwrite semantics as the JSON file rename.
func (s *SQLiteStore) Save(ctx context.Context, records map[string]domain.FingerprintRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fingerprints"); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}

	for url, rec := range records {
		query, args, err := sq.Insert("fingerprints").
			Columns("url", "fp", "ts", "last_error").
			Values(url, rec.Fingerprint, rec.CheckedAt, rec.LastError).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert state %s: %w", url, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}
