// Package mutate implements the virtual filesystem state transitions:
// folder creation, rename, move, and the recycle lifecycle. Every
// operation validates against the committed index, writes atomically,
// and invalidates the pagination cache for all touched paths.
package mutate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TG-SkyBox/SkyBox/internal/classify"
	"github.com/TG-SkyBox/SkyBox/internal/events"
	"github.com/TG-SkyBox/SkyBox/internal/logging"
	"github.com/TG-SkyBox/SkyBox/internal/metrics"
	"github.com/TG-SkyBox/SkyBox/internal/pagecache"
	"github.com/TG-SkyBox/SkyBox/internal/source"
	"github.com/TG-SkyBox/SkyBox/internal/store"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
	"github.com/TG-SkyBox/SkyBox/internal/vpath"
)

// remoteDeleteBatchSize caps message ids per remote delete call.
const remoteDeleteBatchSize = 100

// Mutator applies filesystem state transitions for one identity.
type Mutator struct {
	store   *store.Store
	src     source.Adapter
	cache   *pagecache.Cache
	bus     *events.Broadcaster
	locks   *pathLocker
	ownerID string
}

// New builds a mutator. bus may be nil when no subscriber exists.
func New(st *store.Store, src source.Adapter, cache *pagecache.Cache, bus *events.Broadcaster, ownerID string) *Mutator {
	return &Mutator{
		store:   st,
		src:     src,
		cache:   cache,
		bus:     bus,
		locks:   newPathLocker(),
		ownerID: ownerID,
	}
}

// CreateFolder creates an empty folder under parent. Folders are
// synthetic rows with message_id 0 and no remote backing.
func (m *Mutator) CreateFolder(parent, name string) (err error) {
	defer func() { recordMutation("create_folder", err) }()

	parentSaved, ok := vpath.ToSaved(parent)
	if !ok {
		return fmt.Errorf("parent %q: %w", parent, vfs.ErrInvalidTarget)
	}
	if vpath.InRecycleBin(parentSaved) {
		return fmt.Errorf("recycle bin is read-only: %w", vfs.ErrInvalidTarget)
	}

	folderName := classify.SanitizedOrEmpty(name)
	if folderName == "" {
		return fmt.Errorf("empty folder name: %w", vfs.ErrInvalidTarget)
	}

	m.locks.lock(parentSaved)
	defer m.locks.unlock(parentSaved)

	exists, err := m.store.SiblingExists(m.ownerID, parentSaved, folderName)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s/%s: %w", parentSaved, folderName, vfs.ErrNameConflict)
	}

	folder := &vfs.SavedItem{
		FileType:     vfs.TypeFolder,
		FileUniqueID: classify.FolderUniqueID(m.ownerID, parentSaved, folderName),
		FileName:     folderName,
		FileCaption:  folderName,
		FilePath:     parentSaved,
		ModifiedDate: now(),
		OwnerID:      m.ownerID,
	}
	if err := m.store.UpsertSavedItem(folder); err != nil {
		return err
	}

	m.cache.Invalidate(parentSaved)
	m.publish(events.Event{Type: events.EventFolderCreated, Path: folder.FullPath()})
	logging.L().Info("folder created", zap.String("path", folder.FullPath()))
	return nil
}

// Rename changes an item's display name in place. Recycled items are
// read-only until restored.
func (m *Mutator) Rename(src, newName string) (err error) {
	defer func() { recordMutation("rename", err) }()

	it, unlock, err := m.resolveLocked(src)
	if err != nil {
		return err
	}
	defer unlock()

	if vpath.InRecycleBin(it.FilePath) {
		return fmt.Errorf("recycled items cannot be renamed: %w", vfs.ErrInvalidTarget)
	}

	name := classify.SanitizedOrEmpty(newName)
	if name == "" {
		return fmt.Errorf("empty name: %w", vfs.ErrInvalidTarget)
	}
	if name == it.FileName {
		return nil
	}

	exists, err := m.store.SiblingExists(m.ownerID, it.FilePath, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s/%s: %w", it.FilePath, name, vfs.ErrNameConflict)
	}

	oldFull := it.FullPath()
	if it.IsFolder() {
		err = m.store.RenameItemTree(it, name, now())
	} else {
		err = m.store.RenameItem(it.FileUniqueID, name, now())
	}
	if err != nil {
		return err
	}

	m.invalidateAround(it.FilePath, "", oldFull)
	m.publish(events.Event{Type: events.EventRenamed, Path: oldFull, NewPath: it.FilePath + "/" + name})
	return nil
}

// Move reparents an item under a destination folder. Both endpoints must
// belong to the virtual domain; the destination must be an existing
// folder that is neither the current parent nor a descendant of the
// source.
func (m *Mutator) Move(src, destination string) (err error) {
	defer func() { recordMutation("move", err) }()

	if !vpath.SameDomain(src, destination) {
		return fmt.Errorf("%q -> %q: %w", src, destination, vfs.ErrCrossDomainMove)
	}

	it, unlock, err := m.resolveLocked(src)
	if err != nil {
		return err
	}
	defer unlock()

	dst, ok := vpath.ToSaved(destination)
	if !ok {
		return fmt.Errorf("destination %q: %w", destination, vfs.ErrInvalidTarget)
	}

	if vpath.InRecycleBin(dst) || vpath.InRecycleBin(it.FilePath) {
		return fmt.Errorf("recycle bin entries move only via recycle and restore: %w", vfs.ErrInvalidTarget)
	}
	if dst == it.FilePath {
		return fmt.Errorf("destination is the current parent: %w", vfs.ErrInvalidTarget)
	}

	oldFull := it.FullPath()
	if dst == oldFull || vpath.IsDescendant(dst, oldFull) {
		return fmt.Errorf("destination is inside the moved folder: %w", vfs.ErrInvalidTarget)
	}

	if dst != vpath.Root {
		parent, name, ok := vpath.SplitParentName(dst)
		if !ok {
			return fmt.Errorf("destination %q: %w", dst, vfs.ErrInvalidTarget)
		}
		isFolder, err := m.store.FolderExists(m.ownerID, parent, name)
		if err != nil {
			return err
		}
		if !isFolder {
			return fmt.Errorf("destination %q is not a folder: %w", dst, vfs.ErrInvalidTarget)
		}
	}

	conflict, err := m.store.SiblingExists(m.ownerID, dst, it.FileName)
	if err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("%s/%s: %w", dst, it.FileName, vfs.ErrNameConflict)
	}

	oldParent := it.FilePath
	if err := m.store.MoveItemTree(it, dst, now()); err != nil {
		return err
	}

	m.invalidateAround(oldParent, dst, oldFull)
	m.publish(events.Event{Type: events.EventMoved, Path: oldFull, NewPath: dst + "/" + it.FileName})
	logging.L().Info("item moved",
		zap.String("from", oldFull),
		zap.String("to", dst))
	return nil
}

// MoveToRecycleBin soft-deletes an item, recording its origin so restore
// can put it back. Recycling an already-recycled item is a no-op.
func (m *Mutator) MoveToRecycleBin(src string) (err error) {
	defer func() { recordMutation("recycle", err) }()

	it, unlock, err := m.resolveLocked(src)
	if err != nil {
		return err
	}
	defer unlock()

	if vpath.InRecycleBin(it.FilePath) {
		return nil
	}

	oldParent := it.FilePath
	oldFull := it.FullPath()
	if err := m.store.RecycleItemTree(it, vpath.RecycleBin, now()); err != nil {
		return err
	}

	m.invalidateAround(oldParent, vpath.RecycleBin, oldFull)
	m.publish(events.Event{Type: events.EventRecycled, Path: oldFull})
	logging.L().Info("item recycled",
		zap.String("path", oldFull),
		zap.String("origin", oldParent))
	return nil
}

// Restore moves a recycled item back to its recorded origin. The origin
// parent must still exist; missing ancestors are not recreated.
func (m *Mutator) Restore(src string) (err error) {
	defer func() { recordMutation("restore", err) }()

	it, unlock, err := m.resolveLocked(src)
	if err != nil {
		return err
	}
	defer unlock()

	if !vpath.InRecycleBin(it.FilePath) || it.RecycleOriginPath == "" {
		return fmt.Errorf("item is not in the recycle bin: %w", vfs.ErrInvalidTarget)
	}

	origin := it.RecycleOriginPath
	if origin != vpath.Root {
		parent, name, ok := vpath.SplitParentName(origin)
		if !ok {
			return fmt.Errorf("origin %q: %w", origin, vfs.ErrRestoreTargetMissing)
		}
		exists, err := m.store.FolderExists(m.ownerID, parent, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("origin %q: %w", origin, vfs.ErrRestoreTargetMissing)
		}
	}

	conflict, err := m.store.SiblingExists(m.ownerID, origin, it.FileName)
	if err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("%s/%s: %w", origin, it.FileName, vfs.ErrNameConflict)
	}

	binFull := it.FullPath()
	if err := m.store.RestoreItemTree(it, now()); err != nil {
		return err
	}

	m.invalidateAround(vpath.RecycleBin, origin, binFull)
	m.publish(events.Event{Type: events.EventRestored, Path: binFull, NewPath: origin + "/" + it.FileName})
	logging.L().Info("item restored",
		zap.String("path", binFull),
		zap.String("origin", origin))
	return nil
}

// DeletePermanently removes a recycled item for good: the backing remote
// messages are deleted first, local rows only after remote confirmation.
// A remote failure leaves every local row in place.
func (m *Mutator) DeletePermanently(ctx context.Context, src string) (err error) {
	defer func() { recordMutation("delete_permanently", err) }()

	it, unlock, err := m.resolveLocked(src)
	if err != nil {
		return err
	}
	defer unlock()

	if !vpath.InRecycleBin(it.FilePath) {
		return fmt.Errorf("only recycled items can be deleted permanently: %w", vfs.ErrInvalidTarget)
	}

	ids, err := m.collectMessageIDs(it)
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += remoteDeleteBatchSize {
		end := min(start+remoteDeleteBatchSize, len(ids))
		if err := m.src.SendDelete(ctx, ids[start:end]); err != nil {
			metrics.RecordRemoteDelete(false)
			return fmt.Errorf("delete %d messages: %w: %w", end-start, vfs.ErrRemoteDeleteFailed, err)
		}
		metrics.RecordRemoteDelete(true)
	}

	full := it.FullPath()
	if err := m.store.DeleteItemTree(it); err != nil {
		return err
	}

	m.invalidateAround(vpath.RecycleBin, "", full)
	m.publish(events.Event{Type: events.EventDeleted, Path: full, Count: len(ids)})
	logging.L().Info("item permanently deleted",
		zap.String("path", full),
		zap.Int("remote_messages", len(ids)))
	return nil
}

// collectMessageIDs gathers the remote ids backing an item and, for
// folders, every descendant. Synthetic rows (message_id 0) have no
// remote side and are skipped.
func (m *Mutator) collectMessageIDs(it *vfs.SavedItem) ([]int64, error) {
	var ids []int64
	if it.MessageID > 0 {
		ids = append(ids, it.MessageID)
	}
	if !it.IsFolder() {
		return ids, nil
	}

	descendants, err := m.store.GetDescendants(m.ownerID, it.FullPath())
	if err != nil {
		return nil, err
	}
	for i := range descendants {
		if descendants[i].MessageID > 0 {
			ids = append(ids, descendants[i].MessageID)
		}
	}
	return ids, nil
}

// resolveLocked resolves a source reference (tg://msg/<id> or a path) to
// its index row with the per-path mutation lock held. The caller must
// invoke the returned unlock.
func (m *Mutator) resolveLocked(src string) (*vfs.SavedItem, func(), error) {
	if id, ok := vpath.ParseMessageRef(src); ok {
		it, err := m.store.GetItemByMessageID(m.ownerID, id)
		if err != nil {
			return nil, nil, err
		}
		key := it.FullPath()
		m.locks.lock(key)
		return it, func() { m.locks.unlock(key) }, nil
	}

	saved, ok := vpath.ToSaved(src)
	if !ok {
		return nil, nil, fmt.Errorf("source %q: %w", src, vfs.ErrInvalidTarget)
	}
	parent, name, ok := vpath.SplitParentName(saved)
	if !ok {
		return nil, nil, fmt.Errorf("source %q: %w", src, vfs.ErrInvalidTarget)
	}

	m.locks.lock(saved)
	it, err := m.store.GetItemByPathName(m.ownerID, parent, name)
	if err != nil {
		m.locks.unlock(saved)
		return nil, nil, err
	}
	return it, func() { m.locks.unlock(saved) }, nil
}

// invalidateAround drops cache entries for the prior parent, the new
// parent if any, and the whole subtree under the source's old path.
func (m *Mutator) invalidateAround(oldParent, newParent, oldFull string) {
	m.cache.Invalidate(oldParent)
	if newParent != "" {
		m.cache.Invalidate(newParent)
	}
	m.cache.InvalidateSubtree(oldFull)
}

func (m *Mutator) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

func recordMutation(op string, err error) {
	metrics.RecordMutation(op, err == nil)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
