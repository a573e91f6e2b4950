package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
)

// pathLock guards one destination path. sem admits a single writer; refs
// counts everyone who still needs the file on disk.
type pathLock struct {
	sem  *semaphore.Weighted
	refs int
}

func (l *pathLock) lock(ctx context.Context) error { return l.sem.Acquire(ctx, 1) }

func (l *pathLock) unlock() { l.sem.Release(1) }

// pathRegistry hands out pathLocks. Entries live while they have holders.
type pathRegistry struct {
	mu    sync.Mutex
	paths map[string]*pathLock
}

func newPathRegistry() *pathRegistry {
	return &pathRegistry{paths: make(map[string]*pathLock)}
}

func (r *pathRegistry) hold(path string) *pathLock {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.paths[path]
	if !ok {
		l = &pathLock{sem: semaphore.NewWeighted(1)}
		r.paths[path] = l
	}
	l.refs++
	return l
}

// release drops one holder. When discard is set and this was the last
// holder the file is removed before any new holder can take the path.
func (r *pathRegistry) release(path string, discard bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.paths[path]
	if !ok {
		return false, nil
	}
	l.refs--
	if l.refs > 0 {
		return false, nil
	}
	delete(r.paths, path)
	if !discard {
		return false, nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	return true, nil
}
