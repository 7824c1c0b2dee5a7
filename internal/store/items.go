package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// Listing order: folders first, then case-insensitive by name.
const folderFirstOrder = `
	ORDER BY CASE WHEN file_type = 'folder' THEN 0 ELSE 1 END,
	         LOWER(file_name)`

// UpsertSavedItem inserts or updates one index row, keyed by
// file_unique_id. Re-indexing the same message updates in place.
func (s *Store) UpsertSavedItem(it *vfs.SavedItem) error {
	defer timeQuery("upsert_saved_item")()

	_, err := s.db.Exec(`
		INSERT INTO saved_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_unique_id) DO UPDATE SET
			chat_id             = excluded.chat_id,
			message_id          = excluded.message_id,
			file_type           = excluded.file_type,
			file_size           = excluded.file_size,
			file_name           = excluded.file_name,
			file_caption        = excluded.file_caption,
			file_path           = excluded.file_path,
			modified_date       = excluded.modified_date,
			owner_id            = excluded.owner_id,
			recycle_origin_path = excluded.recycle_origin_path,
			thumbnail           = excluded.thumbnail`,
		it.FileUniqueID, it.ChatID, it.MessageID, it.FileType, it.FileSize,
		it.FileName, it.FileCaption, it.FilePath, it.ModifiedDate,
		it.OwnerID, it.RecycleOriginPath, it.Thumbnail,
	)
	if err != nil {
		return storeErr("upsert saved item", err)
	}
	return nil
}

// GetItemsByPath returns all direct children of a virtual directory.
func (s *Store) GetItemsByPath(ownerID, path string) ([]vfs.SavedItem, error) {
	defer timeQuery("get_items_by_path")()

	rows, err := s.db.Query(`
		SELECT `+itemColumns+`
		FROM saved_items
		WHERE owner_id = ? AND file_path = ?`+folderFirstOrder,
		ownerID, path,
	)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// GetItemsByPathPage returns one page of children plus whether more
// remain. It fetches limit+1 rows to detect the next page.
func (s *Store) GetItemsByPathPage(ownerID, path string, offset, limit int) ([]vfs.SavedItem, bool, error) {
	defer timeQuery("get_items_by_path_page")()

	rows, err := s.db.Query(`
		SELECT `+itemColumns+`
		FROM saved_items
		WHERE owner_id = ? AND file_path = ?`+folderFirstOrder+`
		LIMIT ? OFFSET ?`,
		ownerID, path, limit+1, offset,
	)
	if err != nil {
		return nil, false, storeErr("list items page", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return items, hasMore, nil
}

// GetItemByPathName looks up one child by parent path and name. Returns
// vfs.ErrNotFound when absent.
func (s *Store) GetItemByPathName(ownerID, parent, name string) (*vfs.SavedItem, error) {
	defer timeQuery("get_item_by_path_name")()

	row := s.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM saved_items
		WHERE owner_id = ? AND file_path = ? AND file_name = ?`,
		ownerID, parent, name,
	)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", parent, name, vfs.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get item", err)
	}
	return it, nil
}

// GetItemByMessageID looks up the row backed by a remote message id.
func (s *Store) GetItemByMessageID(ownerID string, messageID int64) (*vfs.SavedItem, error) {
	defer timeQuery("get_item_by_message_id")()

	row := s.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM saved_items
		WHERE owner_id = ? AND message_id = ?`,
		ownerID, messageID,
	)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", messageID, vfs.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get item by message id", err)
	}
	return it, nil
}

// SiblingExists reports whether any child of parent already uses name.
func (s *Store) SiblingExists(ownerID, parent, name string) (bool, error) {
	defer timeQuery("sibling_exists")()

	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM saved_items
		WHERE owner_id = ? AND file_path = ? AND file_name = ?`,
		ownerID, parent, name,
	).Scan(&n)
	if err != nil {
		return false, storeErr("sibling exists", err)
	}
	return n > 0, nil
}

// FolderExists reports whether a folder child of parent uses name.
func (s *Store) FolderExists(ownerID, parent, name string) (bool, error) {
	defer timeQuery("folder_exists")()

	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM saved_items
		WHERE owner_id = ? AND file_path = ? AND file_name = ?
		  AND file_type = 'folder'`,
		ownerID, parent, name,
	).Scan(&n)
	if err != nil {
		return false, storeErr("folder exists", err)
	}
	return n > 0, nil
}

// MaxMessageID returns the highest indexed remote message id, 0 when the
// index is empty.
func (s *Store) MaxMessageID(ownerID string) (int64, error) {
	defer timeQuery("max_message_id")()

	var id sql.NullInt64
	err := s.db.QueryRow(`
		SELECT MAX(message_id) FROM saved_items
		WHERE owner_id = ? AND message_id > 0`,
		ownerID,
	).Scan(&id)
	if err != nil {
		return 0, storeErr("max message id", err)
	}
	return id.Int64, nil
}

// CountItems counts remote-backed rows for the indexed-items gauge.
func (s *Store) CountItems(ownerID string) (int, error) {
	defer timeQuery("count_items")()

	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM saved_items
		WHERE owner_id = ? AND message_id > 0`,
		ownerID,
	).Scan(&n)
	if err != nil {
		return 0, storeErr("count items", err)
	}
	return n, nil
}

// RenameItem updates the display name of a single row.
func (s *Store) RenameItem(uniqueID, newName, modified string) error {
	defer timeQuery("rename_item")()

	_, err := s.db.Exec(`
		UPDATE saved_items SET file_name = ?, modified_date = ?
		WHERE file_unique_id = ?`,
		newName, modified, uniqueID,
	)
	if err != nil {
		return storeErr("rename item", err)
	}
	return nil
}

// SetItemThumbnail records a resolved thumbnail reference on a row.
func (s *Store) SetItemThumbnail(uniqueID, thumbnail string) error {
	defer timeQuery("set_item_thumbnail")()

	_, err := s.db.Exec(`
		UPDATE saved_items SET thumbnail = ? WHERE file_unique_id = ?`,
		thumbnail, uniqueID,
	)
	if err != nil {
		return storeErr("set item thumbnail", err)
	}
	return nil
}

func collectItems(rows *sql.Rows) ([]vfs.SavedItem, error) {
	var items []vfs.SavedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, storeErr("scan item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate items", err)
	}
	return items, nil
}
