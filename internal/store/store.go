// Package store is the local durable index: a sqlite-backed row store for
// saved items, the raw message cache, sync checkpoints, and small KV
// state. All mutations commit atomically per call.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/TG-SkyBox/SkyBox/internal/metrics"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// Store wraps the sqlite handle and owns the schema.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the index database at path and applies the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc sqlite serializes internally; a single connection avoids
	// table-lock errors under concurrent writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	metrics.SetDBConnectionsOpen(db.Stats().OpenConnections)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	metrics.SetDBConnectionsOpen(0)
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saved_items (
		file_unique_id      TEXT PRIMARY KEY,
		chat_id             INTEGER NOT NULL DEFAULT 0,
		message_id          INTEGER NOT NULL DEFAULT 0,
		file_type           TEXT NOT NULL,
		file_size           INTEGER NOT NULL DEFAULT 0,
		file_name           TEXT NOT NULL,
		file_caption        TEXT NOT NULL DEFAULT '',
		file_path           TEXT NOT NULL,
		modified_date       TEXT NOT NULL DEFAULT '',
		owner_id            TEXT NOT NULL,
		recycle_origin_path TEXT NOT NULL DEFAULT '',
		thumbnail           TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_saved_items_owner_path
		ON saved_items(owner_id, file_path);
	CREATE INDEX IF NOT EXISTS idx_saved_items_message
		ON saved_items(owner_id, message_id);

	CREATE TABLE IF NOT EXISTS messages (
		message_id     INTEGER NOT NULL,
		chat_id        INTEGER NOT NULL,
		category       TEXT NOT NULL DEFAULT '',
		filename       TEXT NOT NULL DEFAULT '',
		extension      TEXT NOT NULL DEFAULT '',
		mime_type      TEXT NOT NULL DEFAULT '',
		timestamp      INTEGER NOT NULL DEFAULT 0,
		size           INTEGER NOT NULL DEFAULT 0,
		text           TEXT NOT NULL DEFAULT '',
		thumbnail      TEXT NOT NULL DEFAULT '',
		file_reference TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (message_id, chat_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		path     TEXT PRIMARY KEY,
		added_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recent_paths (
		path       TEXT PRIMARY KEY,
		visited_at TEXT NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// storeErr wraps a driver error so callers can classify it with
// errors.Is(err, vfs.ErrStoreIO).
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, vfs.ErrStoreIO, err)
}

func timeQuery(name string) func() {
	start := time.Now()
	return func() { metrics.RecordDBQuery(name, time.Since(start)) }
}

const itemColumns = `file_unique_id, chat_id, message_id, file_type, file_size,
	file_name, file_caption, file_path, modified_date, owner_id,
	recycle_origin_path, thumbnail`

func scanItem(row interface{ Scan(...any) error }) (*vfs.SavedItem, error) {
	var it vfs.SavedItem
	err := row.Scan(
		&it.FileUniqueID, &it.ChatID, &it.MessageID, &it.FileType,
		&it.FileSize, &it.FileName, &it.FileCaption, &it.FilePath,
		&it.ModifiedDate, &it.OwnerID, &it.RecycleOriginPath, &it.Thumbnail,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
