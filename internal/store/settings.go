package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// GetSetting reads one settings value; "" when unset.
func (s *Store) GetSetting(key string) (string, error) {
	defer timeQuery("get_setting")()

	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("get setting", err)
	}
	return value, nil
}

// SetSetting writes one settings value.
func (s *Store) SetSetting(key, value string) error {
	defer timeQuery("set_setting")()

	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return storeErr("set setting", err)
	}
	return nil
}

func backfillCursorKey(chatID int64) string {
	return fmt.Sprintf("backfill_cursor_%d", chatID)
}

func backfillCompleteKey(chatID int64) string {
	return fmt.Sprintf("backfill_complete_%d", chatID)
}

// GetCheckpoint reads the backfill checkpoint for one chat. A zero
// checkpoint means backfill has not started.
func (s *Store) GetCheckpoint(chatID int64) (vfs.SyncCheckpoint, error) {
	var cp vfs.SyncCheckpoint

	cursor, err := s.GetSetting(backfillCursorKey(chatID))
	if err != nil {
		return cp, err
	}
	if cursor != "" {
		id, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return cp, fmt.Errorf("parse backfill cursor %q: %w: %w", cursor, vfs.ErrStoreIO, err)
		}
		cp.OldestIndexedMessageID = id
	}

	complete, err := s.GetSetting(backfillCompleteKey(chatID))
	if err != nil {
		return cp, err
	}
	cp.IsComplete = complete == "true"
	return cp, nil
}

// SetCheckpoint persists the backfill checkpoint for one chat.
func (s *Store) SetCheckpoint(chatID int64, cp vfs.SyncCheckpoint) error {
	if err := s.SetSetting(backfillCursorKey(chatID), strconv.FormatInt(cp.OldestIndexedMessageID, 10)); err != nil {
		return err
	}
	return s.SetSetting(backfillCompleteKey(chatID), strconv.FormatBool(cp.IsComplete))
}

// ClearCheckpoint resets backfill progress, used by index rebuilds.
func (s *Store) ClearCheckpoint(chatID int64) error {
	defer timeQuery("clear_checkpoint")()

	_, err := s.db.Exec(`DELETE FROM settings WHERE key IN (?, ?)`,
		backfillCursorKey(chatID), backfillCompleteKey(chatID))
	if err != nil {
		return storeErr("clear checkpoint", err)
	}
	return nil
}

// ─────────────────────── Favorites & Recents ───────────────────────

// AddFavorite pins a virtual path.
func (s *Store) AddFavorite(path, addedAt string) error {
	defer timeQuery("add_favorite")()

	_, err := s.db.Exec(`
		INSERT INTO favorites (path, added_at) VALUES (?, ?)
		ON CONFLICT(path) DO NOTHING`,
		path, addedAt,
	)
	if err != nil {
		return storeErr("add favorite", err)
	}
	return nil
}

// RemoveFavorite unpins a virtual path.
func (s *Store) RemoveFavorite(path string) error {
	defer timeQuery("remove_favorite")()

	if _, err := s.db.Exec(`DELETE FROM favorites WHERE path = ?`, path); err != nil {
		return storeErr("remove favorite", err)
	}
	return nil
}

// ListFavorites returns pinned paths, oldest pin first.
func (s *Store) ListFavorites() ([]string, error) {
	defer timeQuery("list_favorites")()

	rows, err := s.db.Query(`SELECT path FROM favorites ORDER BY added_at`)
	if err != nil {
		return nil, storeErr("list favorites", err)
	}
	defer rows.Close()
	return collectPaths(rows)
}

// TouchRecentPath records a visit to a virtual path.
func (s *Store) TouchRecentPath(path, visitedAt string) error {
	defer timeQuery("touch_recent_path")()

	_, err := s.db.Exec(`
		INSERT INTO recent_paths (path, visited_at) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET visited_at = excluded.visited_at`,
		path, visitedAt,
	)
	if err != nil {
		return storeErr("touch recent path", err)
	}
	return nil
}

// ListRecentPaths returns the most recently visited paths.
func (s *Store) ListRecentPaths(limit int) ([]string, error) {
	defer timeQuery("list_recent_paths")()

	rows, err := s.db.Query(`
		SELECT path FROM recent_paths
		ORDER BY visited_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list recent paths", err)
	}
	defer rows.Close()
	return collectPaths(rows)
}

func collectPaths(rows *sql.Rows) ([]string, error) {
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, storeErr("scan path", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate paths", err)
	}
	return paths, nil
}
