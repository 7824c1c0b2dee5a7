package store

import (
	"errors"
	"testing"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

const owner = "alice"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func item(messageID int64, name, path string) *vfs.SavedItem {
	return &vfs.SavedItem{
		ChatID:       777,
		MessageID:    messageID,
		FileType:     vfs.TypeDocument,
		FileUniqueID: uniqueID(messageID, name),
		FileName:     name,
		FilePath:     path,
		ModifiedDate: "2026-01-01T00:00:00Z",
		OwnerID:      owner,
	}
}

func folder(name, path string) *vfs.SavedItem {
	return &vfs.SavedItem{
		FileType:     vfs.TypeFolder,
		FileUniqueID: "folder_" + path + "_" + name,
		FileName:     name,
		FilePath:     path,
		ModifiedDate: "2026-01-01T00:00:00Z",
		OwnerID:      owner,
	}
}

func uniqueID(messageID int64, name string) string {
	if messageID > 0 {
		return "msg_777_" + name
	}
	return "syn_" + name
}

func mustUpsert(t *testing.T, s *Store, items ...*vfs.SavedItem) {
	t.Helper()
	for _, it := range items {
		if err := s.UpsertSavedItem(it); err != nil {
			t.Fatalf("upsert %s: %v", it.FileName, err)
		}
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)

	it := item(10, "a.txt", "/Home/Notes")
	mustUpsert(t, s, it, it)

	items, err := s.GetItemsByPath(owner, "/Home/Notes")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d rows after double upsert, want 1", len(items))
	}

	it.FileSize = 999
	mustUpsert(t, s, it)
	got, err := s.GetItemByPathName(owner, "/Home/Notes", "a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FileSize != 999 {
		t.Errorf("upsert did not update, size = %d", got.FileSize)
	}
}

func TestGetItemNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetItemByPathName(owner, "/Home", "missing")
	if !errors.Is(err, vfs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, err = s.GetItemByMessageID(owner, 404)
	if !errors.Is(err, vfs.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFolderFirstOrdering(t *testing.T) {
	s := openTestStore(t)
	mustUpsert(t, s,
		item(1, "zzz.txt", "/Home"),
		folder("beta", "/Home"),
		item(2, "Alpha.txt", "/Home"),
		folder("alpha", "/Home"),
	)

	items, err := s.GetItemsByPath(owner, "/Home")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.FileName
	}
	want := []string{"alpha", "beta", "Alpha.txt", "zzz.txt"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestPageHasMore(t *testing.T) {
	s := openTestStore(t)
	for i := int64(1); i <= 5; i++ {
		mustUpsert(t, s, item(i, "f"+string(rune('a'+i))+".txt", "/Home"))
	}

	page, hasMore, err := s.GetItemsByPathPage(owner, "/Home", 0, 3)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 3 || !hasMore {
		t.Fatalf("page 1: len=%d hasMore=%v", len(page), hasMore)
	}

	page, hasMore, err = s.GetItemsByPathPage(owner, "/Home", 3, 3)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 2 || hasMore {
		t.Fatalf("page 2: len=%d hasMore=%v", len(page), hasMore)
	}
}

func TestMoveItemTreeRewritesDescendants(t *testing.T) {
	s := openTestStore(t)
	docs := folder("Docs", "/Home")
	mustUpsert(t, s,
		docs,
		folder("Sub", "/Home/Docs"),
		item(1, "a.txt", "/Home/Docs"),
		item(2, "b.txt", "/Home/Docs/Sub"),
	)
	mustUpsert(t, s, folder("Archive", "/Home"))

	if err := s.MoveItemTree(docs, "/Home/Archive", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("move: %v", err)
	}

	moved, err := s.GetItemByPathName(owner, "/Home/Archive", "Docs")
	if err != nil {
		t.Fatalf("moved folder: %v", err)
	}
	if moved.FilePath != "/Home/Archive" {
		t.Errorf("folder path = %q", moved.FilePath)
	}

	deep, err := s.GetItemByMessageID(owner, 2)
	if err != nil {
		t.Fatalf("descendant: %v", err)
	}
	if deep.FilePath != "/Home/Archive/Docs/Sub" {
		t.Errorf("descendant path = %q", deep.FilePath)
	}
}

func TestMoveItemTreeMultiByteName(t *testing.T) {
	s := openTestStore(t)
	deja := folder("Déjà", "/Home")
	mustUpsert(t, s,
		deja,
		folder("Sub", "/Home/Déjà"),
		item(1, "a.txt", "/Home/Déjà/Sub"),
	)
	mustUpsert(t, s, folder("Dest", "/Home"))

	if err := s.MoveItemTree(deja, "/Home/Dest", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("move: %v", err)
	}

	deep, err := s.GetItemByMessageID(owner, 1)
	if err != nil {
		t.Fatalf("descendant: %v", err)
	}
	if deep.FilePath != "/Home/Dest/Déjà/Sub" {
		t.Errorf("descendant path = %q, want /Home/Dest/Déjà/Sub", deep.FilePath)
	}
}

func TestRenameItemTreeRewritesDescendants(t *testing.T) {
	s := openTestStore(t)
	docs := folder("Docs", "/Home")
	mustUpsert(t, s,
		docs,
		folder("Sub", "/Home/Docs"),
		item(1, "a.txt", "/Home/Docs"),
		item(2, "b.txt", "/Home/Docs/Sub"),
	)

	if err := s.RenameItemTree(docs, "Papers", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	renamed, err := s.GetItemByPathName(owner, "/Home", "Papers")
	if err != nil {
		t.Fatalf("renamed folder: %v", err)
	}
	if renamed.FileUniqueID != docs.FileUniqueID {
		t.Errorf("unique id changed: %q", renamed.FileUniqueID)
	}

	child, err := s.GetItemByMessageID(owner, 1)
	if err != nil {
		t.Fatalf("child: %v", err)
	}
	if child.FilePath != "/Home/Papers" {
		t.Errorf("child path = %q", child.FilePath)
	}
	deep, err := s.GetItemByMessageID(owner, 2)
	if err != nil {
		t.Fatalf("deep child: %v", err)
	}
	if deep.FilePath != "/Home/Papers/Sub" {
		t.Errorf("deep child path = %q", deep.FilePath)
	}
}

func TestRecycleAndRestoreTree(t *testing.T) {
	s := openTestStore(t)
	docs := folder("Docs", "/Home")
	mustUpsert(t, s, docs, item(1, "a.txt", "/Home/Docs"))

	if err := s.RecycleItemTree(docs, "/Home/Recycle Bin", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("recycle: %v", err)
	}

	binned, err := s.GetItemByPathName(owner, "/Home/Recycle Bin", "Docs")
	if err != nil {
		t.Fatalf("binned: %v", err)
	}
	if binned.RecycleOriginPath != "/Home" {
		t.Errorf("origin = %q", binned.RecycleOriginPath)
	}

	child, err := s.GetItemByMessageID(owner, 1)
	if err != nil {
		t.Fatalf("child: %v", err)
	}
	if child.FilePath != "/Home/Recycle Bin/Docs" {
		t.Errorf("child path = %q", child.FilePath)
	}

	if err := s.RestoreItemTree(binned, "2026-01-03T00:00:00Z"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored, err := s.GetItemByPathName(owner, "/Home", "Docs")
	if err != nil {
		t.Fatalf("restored: %v", err)
	}
	if restored.RecycleOriginPath != "" {
		t.Errorf("origin not cleared: %q", restored.RecycleOriginPath)
	}
	child, err = s.GetItemByMessageID(owner, 1)
	if err != nil {
		t.Fatalf("child after restore: %v", err)
	}
	if child.FilePath != "/Home/Docs" {
		t.Errorf("child path after restore = %q", child.FilePath)
	}
}

func TestDeleteItemTree(t *testing.T) {
	s := openTestStore(t)
	docs := folder("Docs", "/Home")
	mustUpsert(t, s, docs,
		item(1, "a.txt", "/Home/Docs"),
		item(2, "b.txt", "/Home/Docs/Sub"),
		item(3, "keep.txt", "/Home"),
	)

	if err := s.DeleteItemTree(docs); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, id := range []int64{1, 2} {
		if _, err := s.GetItemByMessageID(owner, id); !errors.Is(err, vfs.ErrNotFound) {
			t.Errorf("message %d survived tree delete: %v", id, err)
		}
	}
	if _, err := s.GetItemByMessageID(owner, 3); err != nil {
		t.Errorf("sibling deleted: %v", err)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := openTestStore(t)

	cp, err := s.GetCheckpoint(777)
	if err != nil {
		t.Fatalf("get empty checkpoint: %v", err)
	}
	if cp.OldestIndexedMessageID != 0 || cp.IsComplete {
		t.Fatalf("fresh checkpoint = %+v", cp)
	}

	want := vfs.SyncCheckpoint{OldestIndexedMessageID: 42, IsComplete: true}
	if err := s.SetCheckpoint(777, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.GetCheckpoint(777)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("checkpoint = %+v, want %+v", got, want)
	}

	if err := s.ClearCheckpoint(777); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = s.GetCheckpoint(777)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if got.OldestIndexedMessageID != 0 || got.IsComplete {
		t.Errorf("checkpoint after clear = %+v", got)
	}
}

func TestMessageCacheThumbnails(t *testing.T) {
	s := openTestStore(t)

	m := &vfs.RawMessage{MessageID: 10, ChatID: 777, Category: "Images", Thumbnail: "thumb10.jpg"}
	if err := s.UpsertMessage(m); err != nil {
		t.Fatalf("upsert message: %v", err)
	}

	// Re-upsert without a thumbnail keeps the stored reference.
	m2 := &vfs.RawMessage{MessageID: 10, ChatID: 777, Category: "Images"}
	if err := s.UpsertMessage(m2); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	thumb, err := s.GetMessageThumbnail(777, 10)
	if err != nil {
		t.Fatalf("get thumbnail: %v", err)
	}
	if thumb != "thumb10.jpg" {
		t.Errorf("thumbnail = %q", thumb)
	}

	if err := s.SetMessageThumbnail(777, 10, "new.jpg"); err != nil {
		t.Fatalf("set thumbnail: %v", err)
	}
	thumb, _ = s.GetMessageThumbnail(777, 10)
	if thumb != "new.jpg" {
		t.Errorf("thumbnail after set = %q", thumb)
	}

	thumb, err = s.GetMessageThumbnail(777, 999)
	if err != nil || thumb != "" {
		t.Errorf("missing message thumbnail = %q, %v", thumb, err)
	}
}

func TestFavoritesAndRecents(t *testing.T) {
	s := openTestStore(t)

	if err := s.AddFavorite("/Home/Images", "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if err := s.AddFavorite("/Home/Images", "2026-01-02T00:00:00Z"); err != nil {
		t.Fatalf("re-add favorite: %v", err)
	}
	favs, err := s.ListFavorites()
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(favs) != 1 || favs[0] != "/Home/Images" {
		t.Errorf("favorites = %v", favs)
	}
	if err := s.RemoveFavorite("/Home/Images"); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	favs, _ = s.ListFavorites()
	if len(favs) != 0 {
		t.Errorf("favorites after remove = %v", favs)
	}

	s.TouchRecentPath("/Home/Docs", "2026-01-01T00:00:00Z")
	s.TouchRecentPath("/Home/Images", "2026-01-02T00:00:00Z")
	recents, err := s.ListRecentPaths(10)
	if err != nil {
		t.Fatalf("list recents: %v", err)
	}
	if len(recents) != 2 || recents[0] != "/Home/Images" {
		t.Errorf("recents = %v", recents)
	}
}

func TestMaxMessageIDAndCounts(t *testing.T) {
	s := openTestStore(t)

	id, err := s.MaxMessageID(owner)
	if err != nil || id != 0 {
		t.Fatalf("empty max = %d, %v", id, err)
	}

	mustUpsert(t, s, item(5, "a.txt", "/Home"), item(9, "b.txt", "/Home"), folder("F", "/Home"))
	id, err = s.MaxMessageID(owner)
	if err != nil || id != 9 {
		t.Fatalf("max = %d, %v", id, err)
	}

	n, err := s.CountItems(owner)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v (folders must not count)", n, err)
	}
}
