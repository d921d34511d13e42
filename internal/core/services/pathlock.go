package services

import (
	"path/filepath"
	"sync"
)

// pathLocks serialises mutations per index path across every service
// instance in the process.
var pathLocks = struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}{locks: make(map[string]*sync.Mutex)}

// lockFor returns the mutation lock for an index path.
func lockFor(path string) *sync.Mutex {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	pathLocks.mu.Lock()
	defer pathLocks.mu.Unlock()

	l, ok := pathLocks.locks[key]
	if !ok {
		l = &sync.Mutex{}
		pathLocks.locks[key] = l
	}
	return l
}
