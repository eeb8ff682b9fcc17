package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/property-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

DROP TABLE IF EXISTS record_cache;

CREATE TABLE IF NOT EXISTS analysis_cache (
	owner      TEXT NOT NULL,
	id         TEXT NOT NULL,
	record     TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL,
	PRIMARY KEY (owner, id)
);

CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires_at ON analysis_cache(expires_at);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set %s", key)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key)
	return eris.Wrapf(err, "sqlite: delete %s", key)
}

func (s *SQLiteStore) GetCachedRecord(ctx context.Context, owner, id string) (*model.AnalysisRecord, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM analysis_cache WHERE owner = ? AND id = ? AND expires_at > ?`,
		owner, id, time.Now().UTC(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cached record %s", id)
	}
	var rec model.AnalysisRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal record")
	}
	return &rec, nil
}

func (s *SQLiteStore) SetCachedRecord(ctx context.Context, owner string, rec *model.AnalysisRecord, ttl time.Duration) error {
	if rec == nil || rec.ID == "" {
		return eris.New("sqlite: cache record: missing id")
	}
	if owner == "" {
		return eris.New("sqlite: cache record: missing owner")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_cache (owner, id, record, cached_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(owner, id) DO UPDATE SET record = excluded.record, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		owner, rec.ID, string(raw), now, now.Add(ttl),
	)
	return eris.Wrapf(err, "sqlite: cache record %s", rec.ID)
}

func (s *SQLiteStore) DeleteCachedRecord(ctx context.Context, owner, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM analysis_cache WHERE owner = ? AND id = ?`, owner, id)
	return eris.Wrapf(err, "sqlite: delete cached record %s", id)
}

func (s *SQLiteStore) DeleteExpiredRecords(ctx context.Context) (int, error) {
	return s.deleteRecords(ctx, "delete expired records", `DELETE FROM analysis_cache WHERE expires_at <= ?`, time.Now().UTC())
}

// ClearCachedRecords drops every cached record of every owner.
func (s *SQLiteStore) ClearCachedRecords(ctx context.Context) (int, error) {
	return s.deleteRecords(ctx, "clear records", `DELETE FROM analysis_cache`)
}

func (s *SQLiteStore) deleteRecords(ctx context.Context, op, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: %s", op)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
