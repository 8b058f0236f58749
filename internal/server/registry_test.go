package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	registry.Register("conn-1", "alice")

	name, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", name)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	registry := NewRegistry()

	registry.Register("conn-1", "alice")
	registry.Register("conn-1", "alicia")

	name, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alicia", name)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryAllowsDuplicateDisplayNames(t *testing.T) {
	registry := NewRegistry()

	registry.Register("conn-1", "alice")
	registry.Register("conn-2", "alice")

	assert.Equal(t, 2, registry.Count())
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()

	registry.Register("conn-1", "alice")
	registry.Unregister("conn-1")

	_, ok := registry.Lookup("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 0, registry.Count())
}

func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()

	registry.Register("conn-1", "alice")
	registry.Unregister("conn-1")
	// Removing an absent id must be a no-op, not an error.
	registry.Unregister("conn-1")
	registry.Unregister("never-registered")

	assert.Equal(t, 0, registry.Count())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", n)
			registry.Register(id, "user")
			registry.Lookup(id)
			registry.Count()
			if n%2 == 0 {
				registry.Unregister(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, registry.Count())
}
