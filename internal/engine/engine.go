// Package engine wires the indexer, mutator, pagination cache, and
// thumbnail resolver into the operation surface consumed by the
// presentation layer. Every operation returns tagged errors; nothing
// leaks raw store or adapter failures.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/TG-SkyBox/SkyBox/internal/events"
	"github.com/TG-SkyBox/SkyBox/internal/index"
	"github.com/TG-SkyBox/SkyBox/internal/mutate"
	"github.com/TG-SkyBox/SkyBox/internal/pagecache"
	"github.com/TG-SkyBox/SkyBox/internal/source"
	"github.com/TG-SkyBox/SkyBox/internal/store"
	"github.com/TG-SkyBox/SkyBox/internal/thumbs"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
	"github.com/TG-SkyBox/SkyBox/internal/vpath"
)

// Options configures a new Engine.
type Options struct {
	Store        *store.Store
	Source       source.Adapter
	OwnerID      string
	ChatID       int64
	ThumbnailDir string
	ThumbWorkers int
	CacheTTL     time.Duration
}

// Engine is the virtual filesystem facade for one identity.
type Engine struct {
	store   *store.Store
	cache   *pagecache.Cache
	bus     *events.Broadcaster
	indexer *index.Indexer
	mutator *mutate.Mutator
	thumbs  *thumbs.Resolver
	ownerID string
	chatID  int64
}

// New assembles an engine and seeds the default folder layout.
func New(opts Options) (*Engine, error) {
	cache := pagecache.New(opts.CacheTTL)
	bus := events.NewBroadcaster()

	resolver, err := thumbs.New(opts.Store, opts.Source, opts.ThumbnailDir,
		opts.OwnerID, opts.ChatID, opts.ThumbWorkers)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:   opts.Store,
		cache:   cache,
		bus:     bus,
		indexer: index.New(opts.Store, opts.Source, opts.OwnerID, opts.ChatID),
		mutator: mutate.New(opts.Store, opts.Source, cache, bus, opts.OwnerID),
		thumbs:  resolver,
		ownerID: opts.OwnerID,
		chatID:  opts.ChatID,
	}

	if err := e.indexer.EnsureDefaultFolders(); err != nil {
		resolver.Close()
		return nil, err
	}
	return e, nil
}

// Close releases background workers.
func (e *Engine) Close() {
	e.thumbs.Close()
}

// ─────────────────────── Indexing ───────────────────────

// IndexNew pulls messages newer than the index high-water mark.
func (e *Engine) IndexNew(ctx context.Context) (int, error) {
	n, err := e.indexer.IndexNew(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		e.cache.Clear()
		e.bus.Publish(events.Event{Type: events.EventIndexed, Count: n})
	}
	return n, nil
}

// BackfillBatch pulls one batch of older history.
func (e *Engine) BackfillBatch(ctx context.Context, batchSize int) (index.BackfillResult, error) {
	res, err := e.indexer.BackfillBatch(ctx, batchSize)
	if err != nil {
		return res, err
	}
	if res.IndexedCount > 0 {
		e.cache.Clear()
		e.bus.Publish(events.Event{Type: events.EventBackfill, Count: res.IndexedCount})
	}
	return res, nil
}

// RebuildIndex rehydrates the index from the raw message cache.
func (e *Engine) RebuildIndex(ctx context.Context) (index.RebuildResult, error) {
	res, err := e.indexer.RebuildIndex(ctx)
	if err != nil {
		return res, err
	}
	if res.UpsertedCount > 0 {
		e.cache.Clear()
		e.bus.Publish(events.Event{Type: events.EventIndexed, Count: res.UpsertedCount})
	}
	return res, nil
}

// ─────────────────────── Listing ───────────────────────

// ListItems returns the full listing for a virtual directory. The result
// is cached as a complete snapshot, so later visits and pages for this
// path skip the store until something invalidates it.
func (e *Engine) ListItems(path string) ([]vfs.SavedItem, error) {
	saved, ok := vpath.ToSaved(path)
	if !ok {
		return nil, fmt.Errorf("path %q: %w", path, vfs.ErrInvalidTarget)
	}

	if entry, ok := e.cache.Get(saved); ok && entry.IsCompleteSnapshot {
		return copyItems(entry.Items), nil
	}

	items, err := e.store.GetItemsByPath(e.ownerID, saved)
	if err != nil {
		return nil, err
	}
	entry := e.cache.PutFull(saved, items)
	e.touchRecent(saved)
	return copyItems(entry.Items), nil
}

// ListItemsPage serves one page of a directory listing. A cached
// complete snapshot is sliced directly. A cached partial entry serves
// any range it already covers; only ranges past its frontier hit the
// store, and those grow the entry by strict append (offset equal to
// its next offset).
func (e *Engine) ListItemsPage(path string, offset, limit int) ([]vfs.SavedItem, bool, error) {
	saved, ok := vpath.ToSaved(path)
	if !ok {
		return nil, false, fmt.Errorf("path %q: %w", path, vfs.ErrInvalidTarget)
	}
	if offset < 0 {
		offset = 0
	}
	limit = index.ClampBatchSize(limit)

	if entry, ok := e.cache.Get(saved); ok {
		// Only zero-anchored entries can be sliced by offset. A replaced
		// entry cached at a later offset has NextOffset past its length.
		anchored := entry.NextOffset == len(entry.Items)
		switch {
		case entry.IsCompleteSnapshot:
			return slicePage(entry.Items, offset, limit)
		case anchored && !entry.HasMore:
			return slicePage(entry.Items, offset, limit)
		case anchored && offset+limit <= len(entry.Items):
			return copyItems(entry.Items[offset : offset+limit]), true, nil
		}
	}

	items, hasMore, err := e.store.GetItemsByPathPage(e.ownerID, saved, offset, limit)
	if err != nil {
		return nil, false, err
	}
	e.cache.PutPage(saved, offset, items, hasMore)
	e.touchRecent(saved)
	return items, hasMore, nil
}

// Breadcrumb splits a virtual path into display segments.
func (e *Engine) Breadcrumb(path string) []string {
	return vpath.Breadcrumb(path)
}

func slicePage(items []vfs.SavedItem, offset, limit int) ([]vfs.SavedItem, bool, error) {
	if offset >= len(items) {
		return nil, false, nil
	}
	end := min(offset+limit, len(items))
	return copyItems(items[offset:end]), end < len(items), nil
}

// copyItems detaches a result from the cache's backing slice.
func copyItems(items []vfs.SavedItem) []vfs.SavedItem {
	return append([]vfs.SavedItem(nil), items...)
}

// ─────────────────────── Mutations ───────────────────────

func (e *Engine) CreateFolder(parent, name string) error {
	return e.mutator.CreateFolder(parent, name)
}

func (e *Engine) Rename(src, newName string) error {
	return e.mutator.Rename(src, newName)
}

func (e *Engine) Move(src, destination string) error {
	return e.mutator.Move(src, destination)
}

func (e *Engine) MoveToRecycleBin(src string) error {
	return e.mutator.MoveToRecycleBin(src)
}

func (e *Engine) Restore(src string) error {
	return e.mutator.Restore(src)
}

func (e *Engine) DeletePermanently(ctx context.Context, src string) error {
	return e.mutator.DeletePermanently(ctx, src)
}

// ─────────────────────── Thumbnails ───────────────────────

// ResolveThumbnail returns a local thumbnail reference, "" if none.
func (e *Engine) ResolveThumbnail(ctx context.Context, messageID int64) (string, error) {
	return e.thumbs.Resolve(ctx, messageID)
}

// PrefetchThumbnails queues background thumbnail resolution.
func (e *Engine) PrefetchThumbnails(messageIDs []int64) {
	e.thumbs.Prefetch(messageIDs)
}

// ReportThumbnailFailure records a failed render, enabling one refetch.
func (e *Engine) ReportThumbnailFailure(messageID int64) {
	e.thumbs.ReportFailure(messageID)
}

// ─────────────────────── Events & Bookmarks ───────────────────────

// Subscribe returns a change event channel. Pair with Unsubscribe.
func (e *Engine) Subscribe() chan events.Event {
	return e.bus.Subscribe()
}

// Unsubscribe releases a subscriber channel.
func (e *Engine) Unsubscribe(ch chan events.Event) {
	e.bus.Unsubscribe(ch)
}

// AddFavorite pins a virtual path.
func (e *Engine) AddFavorite(path string) error {
	saved, ok := vpath.ToSaved(path)
	if !ok {
		return fmt.Errorf("path %q: %w", path, vfs.ErrInvalidTarget)
	}
	return e.store.AddFavorite(saved, time.Now().UTC().Format(time.RFC3339))
}

// RemoveFavorite unpins a virtual path.
func (e *Engine) RemoveFavorite(path string) error {
	saved, ok := vpath.ToSaved(path)
	if !ok {
		return fmt.Errorf("path %q: %w", path, vfs.ErrInvalidTarget)
	}
	return e.store.RemoveFavorite(saved)
}

// Favorites lists pinned paths.
func (e *Engine) Favorites() ([]string, error) {
	return e.store.ListFavorites()
}

// RecentPaths lists recently visited paths, newest first.
func (e *Engine) RecentPaths(limit int) ([]string, error) {
	return e.store.ListRecentPaths(limit)
}

func (e *Engine) touchRecent(saved string) {
	// Best effort; a failed bookmark write never fails a listing.
	_ = e.store.TouchRecentPath(saved, time.Now().UTC().Format(time.RFC3339))
}
