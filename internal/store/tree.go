package store

import (
	"database/sql"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// ─────────────────────── Subtree Operations ───────────────────────
//
// Every operation here commits in one transaction: the moved row and its
// descendants change together or not at all.

// MoveItemTree reparents an item under newParent. For folders the whole
// subtree's file_path prefixes are rewritten in the same transaction.
func (s *Store) MoveItemTree(it *vfs.SavedItem, newParent, modified string) error {
	defer timeQuery("move_item_tree")()

	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("move item", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE saved_items SET file_path = ?, modified_date = ?
		WHERE file_unique_id = ?`,
		newParent, modified, it.FileUniqueID,
	)
	if err != nil {
		return storeErr("move item", err)
	}

	if it.IsFolder() {
		if err := rewriteSubtree(tx, it, newParent); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("move item", err)
	}
	return nil
}

// RenameItemTree renames a folder and rewrites every descendant's
// file_path prefix in the same transaction.
func (s *Store) RenameItemTree(it *vfs.SavedItem, newName, modified string) error {
	defer timeQuery("rename_item_tree")()

	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("rename item", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE saved_items SET file_name = ?, file_caption = ?, modified_date = ?
		WHERE file_unique_id = ?`,
		newName, newName, modified, it.FileUniqueID,
	)
	if err != nil {
		return storeErr("rename item", err)
	}

	if err := rewritePrefix(tx, it.OwnerID, it.FullPath(), it.FilePath+"/"+newName); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("rename item", err)
	}
	return nil
}

// RecycleItemTree moves an item under recycleParent and records its
// origin so a later restore can put it back.
func (s *Store) RecycleItemTree(it *vfs.SavedItem, recycleParent, modified string) error {
	defer timeQuery("recycle_item_tree")()

	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("recycle item", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE saved_items
		SET file_path = ?, recycle_origin_path = ?, modified_date = ?
		WHERE file_unique_id = ?`,
		recycleParent, it.FilePath, modified, it.FileUniqueID,
	)
	if err != nil {
		return storeErr("recycle item", err)
	}

	if it.IsFolder() {
		if err := rewriteSubtree(tx, it, recycleParent); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("recycle item", err)
	}
	return nil
}

// RestoreItemTree moves a recycled item back to its recorded origin and
// clears the origin marker.
func (s *Store) RestoreItemTree(it *vfs.SavedItem, modified string) error {
	defer timeQuery("restore_item_tree")()

	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("restore item", err)
	}
	defer tx.Rollback()

	origin := it.RecycleOriginPath
	_, err = tx.Exec(`
		UPDATE saved_items
		SET file_path = ?, recycle_origin_path = '', modified_date = ?
		WHERE file_unique_id = ?`,
		origin, modified, it.FileUniqueID,
	)
	if err != nil {
		return storeErr("restore item", err)
	}

	if it.IsFolder() {
		if err := rewriteSubtree(tx, it, origin); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("restore item", err)
	}
	return nil
}

// DeleteItemTree removes an item row and, for folders, every descendant
// row in one transaction.
func (s *Store) DeleteItemTree(it *vfs.SavedItem) error {
	defer timeQuery("delete_item_tree")()

	tx, err := s.db.Begin()
	if err != nil {
		return storeErr("delete item", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM saved_items WHERE file_unique_id = ?`, it.FileUniqueID); err != nil {
		return storeErr("delete item", err)
	}

	if it.IsFolder() {
		full := it.FullPath()
		_, err := tx.Exec(`
			DELETE FROM saved_items
			WHERE owner_id = ? AND (file_path = ? OR file_path LIKE ? || '/%')`,
			it.OwnerID, full, full,
		)
		if err != nil {
			return storeErr("delete subtree", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("delete item", err)
	}
	return nil
}

// GetDescendants returns every row living under a folder's full path.
func (s *Store) GetDescendants(ownerID, fullPath string) ([]vfs.SavedItem, error) {
	defer timeQuery("get_descendants")()

	rows, err := s.db.Query(`
		SELECT `+itemColumns+`
		FROM saved_items
		WHERE owner_id = ? AND (file_path = ? OR file_path LIKE ? || '/%')`,
		ownerID, fullPath, fullPath,
	)
	if err != nil {
		return nil, storeErr("get descendants", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// rewriteSubtree rewrites descendant file_path prefixes after the folder
// itself moved to newParent. sqlite computes the prefix length itself:
// substr and length count characters, not bytes, so multi-byte names
// stay intact.
func rewriteSubtree(tx *sql.Tx, it *vfs.SavedItem, newParent string) error {
	return rewritePrefix(tx, it.OwnerID, it.FullPath(), newParent+"/"+it.FileName)
}

func rewritePrefix(tx *sql.Tx, ownerID, oldFull, newFull string) error {
	_, err := tx.Exec(`
		UPDATE saved_items
		SET file_path = ? || substr(file_path, length(?) + 1)
		WHERE owner_id = ? AND (file_path = ? OR file_path LIKE ? || '/%')`,
		newFull, oldFull, ownerID, oldFull, oldFull,
	)
	if err != nil {
		return storeErr("rewrite subtree paths", err)
	}
	return nil
}
