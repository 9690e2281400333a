package store

import (
	"path/filepath"
	"sync"

	codex7err "github.com/codex7/codex7/internal/errors"
	"github.com/gofrs/flock"
)

// LibraryLocks serializes indexing per library within one process via a
// keyed mutex, and across processes via a lock file. A concurrent
// request for a library already being indexed gets LibraryBusy
// immediately rather than waiting.
type LibraryLocks struct {
	dir string

	mu    sync.Mutex
	inUse map[string]*flock.Flock
}

// NewLibraryLocks creates a lock manager that stores its lock files
// under dir.
func NewLibraryLocks(dir string) *LibraryLocks {
	return &LibraryLocks{
		dir:   dir,
		inUse: make(map[string]*flock.Flock),
	}
}

// TryLock acquires the lock for libraryID without blocking. It returns
// a release function on success, or a LibraryBusy error if another
// indexing run (in this process or another) already holds it.
func (l *LibraryLocks) TryLock(libraryID string) (release func(), err error) {
	l.mu.Lock()
	if _, held := l.inUse[libraryID]; held {
		l.mu.Unlock()
		return nil, codex7err.LibraryBusy("library is already being indexed", nil).WithDetail("library_id", libraryID)
	}

	fl := flock.New(filepath.Join(l.dir, libraryID+".lock"))
	l.inUse[libraryID] = fl
	l.mu.Unlock()

	locked, lockErr := fl.TryLock()
	if lockErr != nil || !locked {
		l.mu.Lock()
		delete(l.inUse, libraryID)
		l.mu.Unlock()
		return nil, codex7err.LibraryBusy("library is locked by another process", lockErr).WithDetail("library_id", libraryID)
	}

	release = func() {
		_ = fl.Unlock()
		l.mu.Lock()
		delete(l.inUse, libraryID)
		l.mu.Unlock()
	}
	return release, nil
}
