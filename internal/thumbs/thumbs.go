// Package thumbs resolves per-message thumbnails: persisted cache first,
// then a deduplicated remote fetch. A small worker pool serves prefetch
// requests in the background.
package thumbs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/TG-SkyBox/SkyBox/internal/logging"
	"github.com/TG-SkyBox/SkyBox/internal/metrics"
	"github.com/TG-SkyBox/SkyBox/internal/source"
	"github.com/TG-SkyBox/SkyBox/internal/store"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// maxAttemptsPerSession bounds fetches per message per browsing session:
// the initial fetch plus one caller-reported retry.
const maxAttemptsPerSession = 2

// Resolver fetches and caches thumbnails for one identity's stream.
type Resolver struct {
	store   *store.Store
	src     source.Adapter
	dir     string
	ownerID string
	chatID  int64

	group singleflight.Group

	mu       sync.Mutex
	failures map[int64]int

	jobs chan int64
	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a resolver and starts its prefetch workers. dir is created
// if missing.
func New(st *store.Store, src source.Adapter, dir, ownerID string, chatID int64, workers int) (*Resolver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	r := &Resolver{
		store:    st,
		src:      src,
		dir:      dir,
		ownerID:  ownerID,
		chatID:   chatID,
		failures: make(map[int64]int),
		jobs:     make(chan int64, 256),
		stop:     make(chan struct{}),
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r, nil
}

// Close stops the prefetch workers.
func (r *Resolver) Close() {
	close(r.stop)
	r.wg.Wait()
}

// Resolve returns a local thumbnail reference for a message, or "" when
// the message has no thumbnail available this session. Concurrent calls
// for the same message join a single in-flight fetch.
func (r *Resolver) Resolve(ctx context.Context, messageID int64) (string, error) {
	if r.exhausted(messageID) {
		return "", nil
	}

	cached, err := r.store.GetMessageThumbnail(r.chatID, messageID)
	if err != nil {
		return "", err
	}
	if cached != "" {
		return cached, nil
	}

	v, err, _ := r.group.Do(strconv.FormatInt(messageID, 10), func() (any, error) {
		return r.fetchAndPersist(ctx, messageID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Prefetch queues background resolution for a set of messages. Full
// queues drop requests rather than block the caller.
func (r *Resolver) Prefetch(messageIDs []int64) {
	for _, id := range messageIDs {
		select {
		case r.jobs <- id:
		default:
			return
		}
	}
}

// ReportFailure records that the caller failed to render a resolved
// thumbnail. The first report clears the persisted reference so the next
// Resolve refetches once; after that the message is treated as
// unavailable for the rest of the session.
func (r *Resolver) ReportFailure(messageID int64) {
	r.mu.Lock()
	r.failures[messageID]++
	n := r.failures[messageID]
	r.mu.Unlock()

	if n < maxAttemptsPerSession {
		if err := r.store.SetMessageThumbnail(r.chatID, messageID, ""); err != nil {
			logging.L().Warn("clear thumbnail reference",
				zap.Int64("message_id", messageID), zap.Error(err))
		}
	}
}

func (r *Resolver) exhausted(messageID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[messageID] >= maxAttemptsPerSession
}

func (r *Resolver) fetchAndPersist(ctx context.Context, messageID int64) (string, error) {
	metrics.AddThumbnailFetchInFlight(1)
	defer metrics.AddThumbnailFetchInFlight(-1)

	data, err := r.src.FetchThumbnail(ctx, messageID)
	if err != nil {
		metrics.RecordThumbnailFetch(false)
		r.mu.Lock()
		r.failures[messageID]++
		r.mu.Unlock()
		return "", fmt.Errorf("thumbnail for message %d: %w: %w", messageID, vfs.ErrRemoteFetchFailed, err)
	}
	if len(data) == 0 {
		metrics.RecordThumbnailFetch(true)
		return "", nil
	}

	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".bin"
	}
	path := filepath.Join(r.dir, fmt.Sprintf("thumb_%d_%d%s", r.chatID, messageID, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w: %w", vfs.ErrStoreIO, err)
	}

	if err := r.store.SetMessageThumbnail(r.chatID, messageID, path); err != nil {
		return "", err
	}
	if it, err := r.store.GetItemByMessageID(r.ownerID, messageID); err == nil {
		if err := r.store.SetItemThumbnail(it.FileUniqueID, path); err != nil {
			return "", err
		}
	}

	metrics.RecordThumbnailFetch(true)
	return path, nil
}

func (r *Resolver) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		case id := <-r.jobs:
			if _, err := r.Resolve(context.Background(), id); err != nil {
				logging.L().Debug("prefetch thumbnail",
					zap.Int64("message_id", id), zap.Error(err))
			}
		}
	}
}
