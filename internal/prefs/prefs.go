// Package prefs persists small user preferences and the export history in a
// SQLite database.
package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// SavePickerFlag records that the save dialog has been offered once.
const SavePickerFlag = "used_save_picker_v1"

// EnvPath overrides the database location.
const EnvPath = "POSTERIZE_PREFS_DB"

const initSQL = `
CREATE TABLE IF NOT EXISTS flags (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	bytes INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	cache_key TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS exports_created ON exports (created_at);
`

// ExportRecord is one row of export history.
type ExportRecord struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Bytes     int64     `json:"bytes"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CacheKey  string    `json:"cache_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a preferences database backed by a small connection pool.
type Store struct {
	pool *sqlitex.Pool
}

// DefaultPath returns $POSTERIZE_PREFS_DB, or prefs.db under the user config
// directory. The parent directory is created if needed.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	dir = filepath.Join(dir, "posterize-mcp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, "prefs.db"), nil
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	pool, err := sqlitex.Open(path, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE|sqlite.SQLITE_OPEN_NOMUTEX|sqlite.SQLITE_OPEN_WAL, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences %s: %w", path, err)
	}

	s := &Store{pool: pool}
	con, err := s.conn()
	if err != nil {
		pool.Close()
		return nil, err
	}

	err = sqlitex.ExecScript(con, initSQL)
	pool.Put(con)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize preferences: %w", err)
	}
	return s, nil
}

func (s *Store) conn() (*sqlite.Conn, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("preferences store is closed")
	}
	con := s.pool.Get(context.Background())
	if con == nil {
		return nil, fmt.Errorf("connection could not be opened")
	}
	return con, nil
}

// Flag reads a boolean flag. Unset flags are false.
func (s *Store) Flag(name string) (bool, error) {
	con, err := s.conn()
	if err != nil {
		return false, err
	}
	defer s.pool.Put(con)

	value := false
	err = sqlitex.Exec(con, "SELECT value FROM flags WHERE name = ?", func(stmt *sqlite.Stmt) error {
		value = stmt.ColumnInt64(0) != 0
		return nil
	}, name)
	if err != nil {
		return false, fmt.Errorf("failed to read flag %s: %w", name, err)
	}
	return value, nil
}

// SetFlag writes a boolean flag.
func (s *Store) SetFlag(name string, value bool) error {
	con, err := s.conn()
	if err != nil {
		return err
	}
	defer s.pool.Put(con)

	v := 0
	if value {
		v = 1
	}
	if err := sqlitex.Exec(con, "INSERT OR REPLACE INTO flags (name, value) VALUES (?, ?)", nil, name, v); err != nil {
		return fmt.Errorf("failed to write flag %s: %w", name, err)
	}
	return nil
}

// RecordExport appends rec to the export history. A zero CreatedAt is set
// to now.
func (s *Store) RecordExport(rec ExportRecord) (err error) {
	con, err := s.conn()
	if err != nil {
		return err
	}
	defer s.pool.Put(con)
	defer sqlitex.Save(con)(&err)

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	err = sqlitex.Exec(con,
		"INSERT INTO exports (name, path, bytes, width, height, cache_key, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		nil, rec.Name, rec.Path, rec.Bytes, rec.Width, rec.Height, rec.CacheKey, rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record export %s: %w", rec.Name, err)
	}
	return nil
}

// Exports returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) Exports(limit int) ([]ExportRecord, error) {
	con, err := s.conn()
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(con)

	if limit <= 0 {
		limit = -1
	}
	var out []ExportRecord
	err = sqlitex.Exec(con,
		"SELECT name, path, bytes, width, height, cache_key, created_at FROM exports ORDER BY created_at DESC, id DESC LIMIT ?",
		func(stmt *sqlite.Stmt) error {
			out = append(out, ExportRecord{
				Name:      stmt.ColumnText(0),
				Path:      stmt.ColumnText(1),
				Bytes:     stmt.ColumnInt64(2),
				Width:     stmt.ColumnInt(3),
				Height:    stmt.ColumnInt(4),
				CacheKey:  stmt.ColumnText(5),
				CreatedAt: time.Unix(0, stmt.ColumnInt64(6)),
			})
			return nil
		}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return out, nil
}

// Close checkpoints the WAL and closes every connection.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	con, err := s.conn()
	if err == nil {
		err = sqlitex.Exec(con, "PRAGMA wal_checkpoint;", nil)
		s.pool.Put(con)
	}
	if cerr := s.pool.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.pool = nil
	if err != nil {
		return fmt.Errorf("failed to close preferences: %w", err)
	}
	return nil
}
