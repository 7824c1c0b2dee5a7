package source

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// Fake is an in-memory Adapter used by tests and the offline demo mode.
// Messages are held sorted by ascending id. Failure injection covers the
// error paths the engine must surface.
type Fake struct {
	mu       sync.Mutex
	messages []vfs.RawMessage
	thumbs   map[int64][]byte

	FailFetch  bool
	FailDelete bool
	FailThumbs bool

	Deleted    []int64
	FetchCalls int
}

// NewFake builds a fake stream from the given messages.
func NewFake(msgs ...vfs.RawMessage) *Fake {
	f := &Fake{thumbs: make(map[int64][]byte)}
	f.messages = append(f.messages, msgs...)
	sort.Slice(f.messages, func(i, j int) bool {
		return f.messages[i].MessageID < f.messages[j].MessageID
	})
	return f
}

// Add appends a message to the stream.
func (f *Fake) Add(m vfs.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, m)
	sort.Slice(f.messages, func(i, j int) bool {
		return f.messages[i].MessageID < f.messages[j].MessageID
	})
}

// SetThumbnail registers preview bytes for a message id.
func (f *Fake) SetThumbnail(messageID int64, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbs[messageID] = data
}

func (f *Fake) FetchSince(_ context.Context, messageID int64) ([]vfs.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls++

	if f.FailFetch {
		return nil, errors.New("fake: fetch failure")
	}

	var out []vfs.RawMessage
	for _, m := range f.messages {
		if m.MessageID > messageID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fake) FetchBefore(_ context.Context, messageID int64, batchSize int) ([]vfs.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchCalls++

	if f.FailFetch {
		return nil, false, errors.New("fake: fetch failure")
	}

	var older []vfs.RawMessage
	for i := len(f.messages) - 1; i >= 0; i-- {
		m := f.messages[i]
		if messageID == 0 || m.MessageID < messageID {
			older = append(older, m)
		}
	}

	hasMore := len(older) > batchSize
	if hasMore {
		older = older[:batchSize]
	}
	return older, hasMore, nil
}

func (f *Fake) SendDelete(_ context.Context, messageIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailDelete {
		return errors.New("fake: delete failure")
	}

	drop := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		drop[id] = true
	}

	kept := f.messages[:0]
	for _, m := range f.messages {
		if !drop[m.MessageID] {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	f.Deleted = append(f.Deleted, messageIDs...)
	return nil
}

func (f *Fake) FetchThumbnail(_ context.Context, messageID int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailThumbs {
		return nil, errors.New("fake: thumbnail failure")
	}
	data, ok := f.thumbs[messageID]
	if !ok {
		return nil, errors.New("fake: no thumbnail")
	}
	return data, nil
}
