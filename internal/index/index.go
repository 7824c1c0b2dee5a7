// Package index reconciles the remote flat message stream with the local
// hierarchical index: forward indexing of new messages, resumable
// backfill of older history, and full rebuilds from the raw cache.
package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TG-SkyBox/SkyBox/internal/classify"
	"github.com/TG-SkyBox/SkyBox/internal/logging"
	"github.com/TG-SkyBox/SkyBox/internal/metrics"
	"github.com/TG-SkyBox/SkyBox/internal/source"
	"github.com/TG-SkyBox/SkyBox/internal/store"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
	"github.com/TG-SkyBox/SkyBox/internal/vpath"
)

const (
	// DefaultBatchSize is used when the caller passes no batch size.
	DefaultBatchSize = 50
	// MaxBatchSize caps one backfill round trip.
	MaxBatchSize = 200
)

// BackfillResult reports one backfill round trip.
type BackfillResult struct {
	FetchedCount int
	IndexedCount int
	HasMore      bool
	IsComplete   bool
}

// RebuildResult reports a full index rebuild from the raw cache.
type RebuildResult struct {
	UpsertedCount   int
	OldestMessageID int64
}

// Indexer pulls from the source adapter and writes the local index.
type Indexer struct {
	store   *store.Store
	src     source.Adapter
	ownerID string
	chatID  int64
}

// New builds an indexer for one identity's stream.
func New(st *store.Store, src source.Adapter, ownerID string, chatID int64) *Indexer {
	return &Indexer{store: st, src: src, ownerID: ownerID, chatID: chatID}
}

// ClampBatchSize bounds a requested batch size to [1, MaxBatchSize],
// substituting the default for zero or negative input.
func ClampBatchSize(n int) int {
	if n <= 0 {
		n = DefaultBatchSize
	}
	if n > MaxBatchSize {
		n = MaxBatchSize
	}
	return n
}

// IndexNew fetches messages newer than the highest indexed id and
// upserts them in ascending order. Returns the number of new items.
func (ix *Indexer) IndexNew(ctx context.Context) (int, error) {
	maxID, err := ix.store.MaxMessageID(ix.ownerID)
	if err != nil {
		return 0, err
	}

	msgs, err := ix.src.FetchSince(ctx, maxID)
	if err != nil {
		return 0, fmt.Errorf("fetch since %d: %w: %w", maxID, vfs.ErrRemoteFetchFailed, err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	indexed, err := ix.upsertMessages(msgs)
	if err != nil {
		return indexed, err
	}

	metrics.RecordMessagesIndexed("forward", indexed)
	ix.refreshItemsGauge()
	logging.L().Info("indexed new messages",
		zap.Int64("since", maxID),
		zap.Int("count", indexed))
	return indexed, nil
}

// BackfillBatch fetches up to batchSize messages older than the current
// checkpoint, upserts them, and advances the checkpoint. Adapter
// failures leave the checkpoint untouched; already-upserted rows stay.
func (ix *Indexer) BackfillBatch(ctx context.Context, batchSize int) (BackfillResult, error) {
	batchSize = ClampBatchSize(batchSize)

	cp, err := ix.store.GetCheckpoint(ix.chatID)
	if err != nil {
		return BackfillResult{}, err
	}
	if cp.IsComplete {
		return BackfillResult{IsComplete: true}, nil
	}

	msgs, hasMore, err := ix.src.FetchBefore(ctx, cp.OldestIndexedMessageID, batchSize)
	if err != nil {
		metrics.RecordBackfillBatch(false)
		return BackfillResult{}, fmt.Errorf("fetch before %d: %w: %w",
			cp.OldestIndexedMessageID, vfs.ErrRemoteFetchFailed, err)
	}

	indexed, err := ix.upsertMessages(msgs)
	if err != nil {
		metrics.RecordBackfillBatch(false)
		return BackfillResult{FetchedCount: len(msgs), IndexedCount: indexed}, err
	}

	next := cp
	for i := range msgs {
		if next.OldestIndexedMessageID == 0 || msgs[i].MessageID < next.OldestIndexedMessageID {
			next.OldestIndexedMessageID = msgs[i].MessageID
		}
	}
	next.IsComplete = !hasMore
	if err := ix.store.SetCheckpoint(ix.chatID, next); err != nil {
		return BackfillResult{FetchedCount: len(msgs), IndexedCount: indexed}, err
	}

	metrics.RecordBackfillBatch(true)
	metrics.RecordMessagesIndexed("backfill", indexed)
	ix.refreshItemsGauge()
	logging.L().Info("backfill batch complete",
		zap.Int("fetched", len(msgs)),
		zap.Int64("cursor", next.OldestIndexedMessageID),
		zap.Bool("has_more", hasMore))

	return BackfillResult{
		FetchedCount: len(msgs),
		IndexedCount: indexed,
		HasMore:      hasMore,
		IsComplete:   next.IsComplete,
	}, nil
}

// RebuildIndex rehydrates the saved-item table from the raw message
// cache and resets the backfill cursor to the oldest cached id.
func (ix *Indexer) RebuildIndex(ctx context.Context) (RebuildResult, error) {
	msgs, err := ix.store.GetAllMessages(ix.chatID)
	if err != nil {
		return RebuildResult{}, err
	}

	var res RebuildResult
	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		it := savedItemFromMessage(ix.ownerID, &msgs[i])
		if err := ix.store.UpsertSavedItem(it); err != nil {
			return res, err
		}
		res.UpsertedCount++
		if res.OldestMessageID == 0 || msgs[i].MessageID < res.OldestMessageID {
			res.OldestMessageID = msgs[i].MessageID
		}
	}

	if res.UpsertedCount > 0 {
		cp, err := ix.store.GetCheckpoint(ix.chatID)
		if err != nil {
			return res, err
		}
		cp.OldestIndexedMessageID = res.OldestMessageID
		if err := ix.store.SetCheckpoint(ix.chatID, cp); err != nil {
			return res, err
		}
	}

	ix.refreshItemsGauge()
	logging.L().Info("index rebuilt",
		zap.Int("upserted", res.UpsertedCount),
		zap.Int64("oldest_message_id", res.OldestMessageID))
	return res, nil
}

// EnsureDefaultFolders seeds the category buckets and the recycle bin as
// synthetic folder rows. Safe to call on every startup.
func (ix *Indexer) EnsureDefaultFolders() error {
	names := []string{
		classify.CategoryImages, classify.CategoryVideos, classify.CategoryAudios,
		classify.CategoryDocuments, classify.CategoryNotes, "Recycle Bin",
	}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, name := range names {
		exists, err := ix.store.FolderExists(ix.ownerID, vpath.Root, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		folder := &vfs.SavedItem{
			FileType:     vfs.TypeFolder,
			FileUniqueID: classify.FolderUniqueID(ix.ownerID, vpath.Root, name),
			FileName:     name,
			FileCaption:  name,
			FilePath:     vpath.Root,
			ModifiedDate: now,
			OwnerID:      ix.ownerID,
		}
		if err := ix.store.UpsertSavedItem(folder); err != nil {
			return err
		}
	}
	return nil
}

// upsertMessages caches raw messages and upserts their index rows.
// Upserts are keyed by message id, so replays update instead of
// duplicating.
func (ix *Indexer) upsertMessages(msgs []vfs.RawMessage) (int, error) {
	indexed := 0
	for i := range msgs {
		m := &msgs[i]
		if err := ix.store.UpsertMessage(m); err != nil {
			return indexed, err
		}
		if err := ix.store.UpsertSavedItem(savedItemFromMessage(ix.ownerID, m)); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

func (ix *Indexer) refreshItemsGauge() {
	if n, err := ix.store.CountItems(ix.ownerID); err == nil {
		metrics.SetIndexedItems(int64(n))
	}
}
