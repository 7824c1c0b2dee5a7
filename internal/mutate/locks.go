package mutate

import "sync"

// pathLocker serializes mutations per item path. Racing calls on the
// same path queue; calls on unrelated paths proceed concurrently.
type pathLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newPathLocker() *pathLocker {
	return &pathLocker{locks: make(map[string]*lockEntry)}
}

func (pl *pathLocker) lock(path string) {
	pl.mu.Lock()
	e, ok := pl.locks[path]
	if !ok {
		e = &lockEntry{}
		pl.locks[path] = e
	}
	e.refs++
	pl.mu.Unlock()

	e.mu.Lock()
}

func (pl *pathLocker) unlock(path string) {
	pl.mu.Lock()
	e := pl.locks[path]
	e.refs--
	if e.refs == 0 {
		delete(pl.locks, path)
	}
	pl.mu.Unlock()

	e.mu.Unlock()
}
