package job

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	t.Run("registers and retrieves a job", func(t *testing.T) {
		r := NewRegistry()
		j := &Job{Project: "app", Artifact: "server", Name: "build"}

		require.NoError(t, r.Register(j))

		got, ok := r.Get(NewURI("app", "server", "build"))
		require.True(t, ok)
		assert.Same(t, j, got)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("duplicate URI is rejected and leaves the registry unchanged", func(t *testing.T) {
		r := NewRegistry()
		first := &Job{Project: "app", Name: "lint"}
		require.NoError(t, r.Register(first))

		err := r.Register(&Job{Project: "app", Name: "lint"})
		require.Error(t, err)

		var dupErr *DuplicateJobError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, NewURI("app", "", "lint"), dupErr.URI)

		// The original registration survives.
		assert.Equal(t, 1, r.Len())
		got, ok := r.Get(NewURI("app", "", "lint"))
		require.True(t, ok)
		assert.Same(t, first, got)
	})

	t.Run("duplicate detection is case-insensitive", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&Job{Project: "App", Name: "Lint"}))

		err := r.Register(&Job{Project: "app", Name: "lint"})
		var dupErr *DuplicateJobError
		require.ErrorAs(t, err, &dupErr)
	})

	t.Run("concurrent registration of the same URI admits exactly one", func(t *testing.T) {
		r := NewRegistry()
		const racers = 32

		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = r.Register(&Job{Project: "app", Artifact: "server", Name: "build"})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				var dupErr *DuplicateJobError
				assert.ErrorAs(t, err, &dupErr)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistryAll(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Job{Name: "clean"}))
	require.NoError(t, r.Register(&Job{Project: "app", Name: "lint"}))

	seen := make(map[URI]bool)
	for j := range r.All() {
		seen[j.URI()] = true
	}
	assert.Len(t, seen, 2)
	assert.True(t, seen[NewURI("", "", "clean")])
	assert.True(t, seen[NewURI("app", "", "lint")])
}

func TestJobSatisfied(t *testing.T) {
	j := &Job{Project: "app", Artifact: "server", Name: "build"}
	assert.False(t, j.Satisfied())

	j.MarkSatisfied()
	assert.True(t, j.Satisfied())
}
