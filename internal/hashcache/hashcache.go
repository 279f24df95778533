// Package hashcache persists per-file content hashes so unchanged source
// files can be detected across runs.
//
// Paths are normalized relative to a fixed workspace root before storage or
// lookup, so entries survive relocation of the workspace to a new absolute
// location. Persistence failures are absorbed: a missing or corrupt store
// is a cold start, never a build failure.
package hashcache

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/anvil-build/anvil/internal/cachefile"
	"github.com/anvil-build/anvil/internal/ctxlog"
)

// Store is the persisted path→hash table.
type Store struct {
	root string
	path string

	mu      sync.Mutex
	entries map[string]string
}

// New creates a store for the given workspace root, persisted at path.
func New(root, path string) *Store {
	return &Store{
		root:    root,
		path:    path,
		entries: make(map[string]string),
	}
}

// Load reads the persisted table. A missing or corrupt file starts the
// store cold and is only logged.
func (s *Store) Load(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	var persisted map[string]string
	found, err := cachefile.Load(s.path, &persisted)
	if err != nil {
		logger.Warn("File hash store unreadable, starting cold.", "path", s.path, "error", err)
		return
	}
	if !found {
		logger.Debug("No file hash store on disk, starting cold.", "path", s.path)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = persisted
	logger.Debug("File hash store loaded.", "entries", len(persisted))
}

// Normalize converts a path to the slash-form key relative to the
// workspace root. Paths outside the root are kept as given.
func (s *Store) Normalize(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// AddOrUpdate records the current content hash for a path.
func (s *Store) AddOrUpdate(path, hash string) {
	key := s.Normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = hash
}

// HasChanged reports whether the path's recorded hash differs from the
// given one. A path with no record counts as changed.
func (s *Store) HasChanged(path, hash string) bool {
	key := s.Normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	recorded, ok := s.entries[key]
	return !ok || recorded != hash
}

// HasChangedAny batches HasChanged over a path→hash map and returns the
// normalized paths whose hashes differ from their records, sorted.
func (s *Store) HasChangedAny(hashes map[string]string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for path, hash := range hashes {
		key := s.Normalize(path)
		if recorded, ok := s.entries[key]; !ok || recorded != hash {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return changed
}

// Len returns the number of recorded paths.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Flush persists the table. The on-disk state is re-read and merged under
// the in-memory entries first, so a concurrent process's records for
// unrelated paths are not lost, then the file is atomically replaced.
func (s *Store) Flush(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]string)
	if _, err := cachefile.Load(s.path, &merged); err != nil {
		logger.Warn("File hash store unreadable on flush, overwriting.", "path", s.path, "error", err)
		merged = make(map[string]string)
	}
	for k, v := range s.entries {
		merged[k] = v
	}

	if err := cachefile.Save(s.path, merged); err != nil {
		logger.Warn("Failed to persist file hash store.", "path", s.path, "error", err)
		return
	}
	logger.Debug("File hash store flushed.", "entries", len(merged))
}
