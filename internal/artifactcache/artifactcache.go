// Package artifactcache is the persistent fingerprint→output index that
// lets unchanged artifacts skip their build entirely.
//
// The index holds one record per fingerprint: the artifact root, the
// produced file list, and creation/access timestamps. Loading tolerates a
// missing or corrupt index by starting cold; flushing re-reads and merges
// the on-disk index before atomically replacing it, so records written by a
// concurrent process are preserved.
package artifactcache

import (
	"context"
	"sync"
	"time"

	"github.com/anvil-build/anvil/internal/cachefile"
	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
)

// Entry is one cached build result.
type Entry struct {
	Fingerprint string    `cbor:"fingerprint"`
	Project     string    `cbor:"project"`
	Artifact    string    `cbor:"artifact"`
	Root        string    `cbor:"root"`
	Files       []string  `cbor:"files"`
	CreatedAt   time.Time `cbor:"created_at"`
	LastAccess  time.Time `cbor:"last_access"`
}

// Output reconstructs the artifact output recorded in the entry.
func (e *Entry) Output() *component.ArtifactOutput {
	files := make([]string, len(e.Files))
	copy(files, e.Files)
	return &component.ArtifactOutput{Root: e.Root, Files: files}
}

// Cache is the in-memory index plus its persistence path. Reads and writes
// of the index map take a short global lock; build mutual exclusion uses
// per-fingerprint locks so unrelated artifact builds never serialize on
// each other.
type Cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]*Entry

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New creates a cache persisted at the given index path.
func New(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]*Entry),
		locks:   make(map[string]*sync.Mutex),
	}
}

// LoadCache reads the persisted index. A missing or corrupt index starts
// the cache cold and is only logged.
func (c *Cache) LoadCache(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	var persisted map[string]*Entry
	found, err := cachefile.Load(c.path, &persisted)
	if err != nil {
		logger.Warn("Artifact cache index unreadable, starting cold.", "path", c.path, "error", err)
		return
	}
	if !found {
		logger.Debug("No artifact cache index on disk, starting cold.", "path", c.path)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = persisted
	logger.Debug("Artifact cache index loaded.", "entries", len(persisted))
}

// FlushCacheToDisk persists the index with a load-merge-write cycle: disk
// records absent from memory are kept, memory records win on conflict
// unless the disk record was accessed more recently.
func (c *Cache) FlushCacheToDisk(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	c.mu.RLock()
	snapshot := make(map[string]*Entry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	merged := make(map[string]*Entry)
	if _, err := cachefile.Load(c.path, &merged); err != nil {
		logger.Warn("Artifact cache index unreadable on flush, overwriting.", "path", c.path, "error", err)
		merged = make(map[string]*Entry)
	}
	for fp, entry := range snapshot {
		if existing, ok := merged[fp]; ok && existing.LastAccess.After(entry.LastAccess) {
			continue
		}
		merged[fp] = entry
	}

	if err := cachefile.Save(c.path, merged); err != nil {
		logger.Warn("Failed to persist artifact cache index.", "path", c.path, "error", err)
		return
	}
	logger.Debug("Artifact cache index flushed.", "entries", len(merged))
}

// IsCached reports whether a fingerprint has a recorded output.
func (c *Cache) IsCached(fingerprint string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[fingerprint]
	return ok
}

// Get returns the entry for a fingerprint.
func (c *Cache) Get(fingerprint string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[fingerprint]
	return e, ok
}

// CacheArtifact inserts or overwrites the entry for a fingerprint.
func (c *Cache) CacheArtifact(project, artifact, fingerprint string, out *component.ArtifactOutput) *Entry {
	now := time.Now().UTC()
	entry := &Entry{
		Fingerprint: fingerprint,
		Project:     project,
		Artifact:    artifact,
		Root:        out.Root,
		Files:       append([]string(nil), out.Files...),
		CreatedAt:   now,
		LastAccess:  now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = entry
	return entry
}

// UpdateAccessTime stamps the entry for a fingerprint with the current
// time. Called on every cache hit; the timestamp feeds a future eviction
// policy.
func (c *Cache) UpdateAccessTime(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[fingerprint]; ok {
		e.LastAccess = time.Now().UTC()
	}
}

// GetMostRecentOutputForProject returns the project's most recently
// created entry, if any.
func (c *Cache) GetMostRecentOutputForProject(project string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Entry
	for _, e := range c.entries {
		if e.Project != project {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	return best, best != nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LockFingerprint acquires the build lock for one fingerprint and returns
// its release function. At most one build may be in flight per fingerprint;
// a second concurrent request blocks here until the first finishes, then
// typically observes the fresh cache entry.
func (c *Cache) LockFingerprint(fingerprint string) func() {
	c.lockMu.Lock()
	l, ok := c.locks[fingerprint]
	if !ok {
		l = &sync.Mutex{}
		c.locks[fingerprint] = l
	}
	c.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}
