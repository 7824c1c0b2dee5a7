package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/TG-SkyBox/SkyBox/internal/source"
	"github.com/TG-SkyBox/SkyBox/internal/store"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

const (
	owner  = "alice"
	chatID = int64(777)
)

func newTestIndexer(t *testing.T, msgs ...vfs.RawMessage) (*Indexer, *store.Store, *source.Fake) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fake := source.NewFake(msgs...)
	return New(st, fake, owner, chatID), st, fake
}

func photoMessage(id int64) vfs.RawMessage {
	return vfs.RawMessage{
		MessageID: id,
		ChatID:    chatID,
		Filename:  fmt.Sprintf("photo_%d.jpg", id),
		Extension: "jpg",
		MimeType:  "image/jpeg",
		Timestamp: 1700000000 + id,
		Size:      1024,
	}
}

func historyOf(n int) []vfs.RawMessage {
	msgs := make([]vfs.RawMessage, 0, n)
	for i := 1; i <= n; i++ {
		msgs = append(msgs, photoMessage(int64(i)))
	}
	return msgs
}

func TestBackfillUntilComplete(t *testing.T) {
	ix, st, _ := newTestIndexer(t, historyOf(137)...)
	ctx := context.Background()

	calls := 0
	var last BackfillResult
	for {
		res, err := ix.BackfillBatch(ctx, 50)
		if err != nil {
			t.Fatalf("backfill call %d: %v", calls+1, err)
		}
		calls++
		last = res
		if !res.HasMore {
			break
		}
	}

	if calls != 3 {
		t.Errorf("backfill took %d calls, want 3", calls)
	}
	if !last.IsComplete {
		t.Error("final batch not complete")
	}
	if last.FetchedCount != 37 {
		t.Errorf("final fetched = %d, want 37", last.FetchedCount)
	}

	cp, err := st.GetCheckpoint(chatID)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if cp.OldestIndexedMessageID != 1 {
		t.Errorf("oldest indexed = %d, want 1", cp.OldestIndexedMessageID)
	}
	if !cp.IsComplete {
		t.Error("checkpoint not marked complete")
	}

	n, err := st.CountItems(owner)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 137 {
		t.Errorf("indexed %d items, want 137", n)
	}
}

func TestBackfillCompleteIsTerminal(t *testing.T) {
	ix, _, fake := newTestIndexer(t, historyOf(10)...)
	ctx := context.Background()

	if _, err := ix.BackfillBatch(ctx, 50); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	before := fake.FetchCalls

	res, err := ix.BackfillBatch(ctx, 50)
	if err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if !res.IsComplete || res.FetchedCount != 0 {
		t.Errorf("terminal batch = %+v", res)
	}
	if fake.FetchCalls != before {
		t.Error("complete backfill still hit the adapter")
	}
}

func TestBackfillFetchFailureKeepsCheckpoint(t *testing.T) {
	ix, st, fake := newTestIndexer(t, historyOf(120)...)
	ctx := context.Background()

	if _, err := ix.BackfillBatch(ctx, 50); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	cpBefore, _ := st.GetCheckpoint(chatID)

	fake.FailFetch = true
	_, err := ix.BackfillBatch(ctx, 50)
	if !errors.Is(err, vfs.ErrRemoteFetchFailed) {
		t.Fatalf("err = %v, want ErrRemoteFetchFailed", err)
	}

	cpAfter, _ := st.GetCheckpoint(chatID)
	if cpAfter != cpBefore {
		t.Errorf("checkpoint moved on failure: %+v -> %+v", cpBefore, cpAfter)
	}

	// Retry succeeds from the same cursor.
	fake.FailFetch = false
	res, err := ix.BackfillBatch(ctx, 50)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.FetchedCount != 50 {
		t.Errorf("retry fetched %d, want 50", res.FetchedCount)
	}
}

func TestIndexNewStopsAtHighWaterMark(t *testing.T) {
	ix, st, fake := newTestIndexer(t, historyOf(5)...)
	ctx := context.Background()

	n, err := ix.IndexNew(ctx)
	if err != nil {
		t.Fatalf("index new: %v", err)
	}
	if n != 5 {
		t.Errorf("indexed %d, want 5", n)
	}

	// No new messages: nothing indexed, nothing duplicated.
	n, err = ix.IndexNew(ctx)
	if err != nil {
		t.Fatalf("second index new: %v", err)
	}
	if n != 0 {
		t.Errorf("re-index found %d new, want 0", n)
	}
	count, _ := st.CountItems(owner)
	if count != 5 {
		t.Errorf("item count = %d after re-index, want 5", count)
	}

	fake.Add(photoMessage(6))
	n, err = ix.IndexNew(ctx)
	if err != nil {
		t.Fatalf("third index new: %v", err)
	}
	if n != 1 {
		t.Errorf("indexed %d new, want 1", n)
	}
}

func TestIndexNewFetchFailure(t *testing.T) {
	ix, _, fake := newTestIndexer(t, historyOf(3)...)
	fake.FailFetch = true

	_, err := ix.IndexNew(context.Background())
	if !errors.Is(err, vfs.ErrRemoteFetchFailed) {
		t.Fatalf("err = %v, want ErrRemoteFetchFailed", err)
	}
}

func TestRebuildIndexFromMessageCache(t *testing.T) {
	ix, st, _ := newTestIndexer(t, historyOf(20)...)
	ctx := context.Background()

	if _, err := ix.BackfillBatch(ctx, 50); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	res, err := ix.RebuildIndex(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if res.UpsertedCount != 20 {
		t.Errorf("upserted %d, want 20", res.UpsertedCount)
	}
	if res.OldestMessageID != 1 {
		t.Errorf("oldest = %d, want 1", res.OldestMessageID)
	}

	n, _ := st.CountItems(owner)
	if n != 20 {
		t.Errorf("count after rebuild = %d, want 20", n)
	}
}

func TestEnsureDefaultFolders(t *testing.T) {
	ix, st, _ := newTestIndexer(t)

	if err := ix.EnsureDefaultFolders(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := ix.EnsureDefaultFolders(); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}

	items, err := st.GetItemsByPath(owner, "/Home")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("default folders = %d, want 6", len(items))
	}
	for _, it := range items {
		if !it.IsFolder() || it.MessageID != 0 {
			t.Errorf("default entry %q is not a placeholder folder", it.FileName)
		}
	}
}

func TestClampBatchSize(t *testing.T) {
	cases := map[int]int{0: DefaultBatchSize, -5: DefaultBatchSize, 10: 10, 500: MaxBatchSize}
	for in, want := range cases {
		if got := ClampBatchSize(in); got != want {
			t.Errorf("ClampBatchSize(%d) = %d, want %d", in, got, want)
		}
	}
}
