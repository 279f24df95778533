package artifactcache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvil-build/anvil/internal/component"
)

func testOutput(root string) *component.ArtifactOutput {
	return &component.ArtifactOutput{Root: root, Files: []string{"bin/server", "lib/core.a"}}
}

func TestCacheArtifact(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "index.cbor"))

	entry := c.CacheArtifact("app", "server", "fp-1", testOutput("/cache/app/server"))
	require.NotNil(t, entry)
	assert.Equal(t, "fp-1", entry.Fingerprint)
	assert.True(t, c.IsCached("fp-1"))
	assert.False(t, c.IsCached("fp-2"))
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("fp-1")
	require.True(t, ok)
	assert.Equal(t, "/cache/app/server", got.Root)

	out := got.Output()
	assert.Equal(t, []string{"bin/server", "lib/core.a"}, out.Files)
}

func TestUpdateAccessTime(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "index.cbor"))
	entry := c.CacheArtifact("app", "server", "fp-1", testOutput("/cache/app/server"))
	created := entry.LastAccess

	time.Sleep(2 * time.Millisecond)
	c.UpdateAccessTime("fp-1")

	got, ok := c.Get("fp-1")
	require.True(t, ok)
	assert.True(t, got.LastAccess.After(created))
	assert.Equal(t, created, got.CreatedAt, "creation time is immutable")
}

func TestGetMostRecentOutputForProject(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "index.cbor"))

	_, ok := c.GetMostRecentOutputForProject("app")
	assert.False(t, ok)

	c.CacheArtifact("app", "server", "fp-old", testOutput("/cache/old"))
	time.Sleep(2 * time.Millisecond)
	c.CacheArtifact("app", "client", "fp-new", testOutput("/cache/new"))
	c.CacheArtifact("other", "thing", "fp-other", testOutput("/cache/other"))

	entry, ok := c.GetMostRecentOutputForProject("app")
	require.True(t, ok)
	assert.Equal(t, "fp-new", entry.Fingerprint)
}

func TestCachePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "index.cbor")

	c := New(path)
	c.CacheArtifact("app", "server", "fp-1", testOutput("/cache/app/server"))
	c.FlushCacheToDisk(ctx)

	t.Run("reloads what was flushed", func(t *testing.T) {
		reloaded := New(path)
		reloaded.LoadCache(ctx)
		require.Equal(t, 1, reloaded.Len())

		entry, ok := reloaded.Get("fp-1")
		require.True(t, ok)
		assert.Equal(t, "app", entry.Project)
		assert.Equal(t, []string{"bin/server", "lib/core.a"}, entry.Files)
	})

	t.Run("flush keeps records written by another process", func(t *testing.T) {
		other := New(path)
		other.CacheArtifact("lib", "core", "fp-2", testOutput("/cache/lib/core"))
		other.FlushCacheToDisk(ctx)

		reloaded := New(path)
		reloaded.LoadCache(ctx)
		assert.True(t, reloaded.IsCached("fp-1"))
		assert.True(t, reloaded.IsCached("fp-2"))
	})

	t.Run("missing index starts cold", func(t *testing.T) {
		cold := New(filepath.Join(dir, "absent.cbor"))
		cold.LoadCache(ctx)
		assert.Zero(t, cold.Len())
	})

	t.Run("corrupt index starts cold", func(t *testing.T) {
		corruptPath := filepath.Join(dir, "corrupt.cbor")
		require.NoError(t, os.WriteFile(corruptPath, []byte("garbage"), 0o644))
		cold := New(corruptPath)
		cold.LoadCache(ctx)
		assert.Zero(t, cold.Len())
	})
}

func TestLockFingerprint(t *testing.T) {
	t.Run("same fingerprint serializes", func(t *testing.T) {
		c := New(filepath.Join(t.TempDir(), "index.cbor"))

		var mu sync.Mutex
		inCritical := 0
		maxConcurrent := 0

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := c.LockFingerprint("fp-shared")
				defer unlock()

				mu.Lock()
				inCritical++
				if inCritical > maxConcurrent {
					maxConcurrent = inCritical
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inCritical--
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxConcurrent, "at most one holder per fingerprint")
	})

	t.Run("distinct fingerprints do not block each other", func(t *testing.T) {
		c := New(filepath.Join(t.TempDir(), "index.cbor"))
		unlockA := c.LockFingerprint("fp-a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlockB := c.LockFingerprint("fp-b")
			unlockB()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on fp-b blocked behind fp-a")
		}
	})
}
