package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "mcp", "ask"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("MEMORY_BACKEND", "memory")

	_, err := newApp(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISTRAL_API_KEY")
}

func TestNewApp_MemoryBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MISTRAL_API_KEY", "test-key")
	t.Setenv("MEMORY_BACKEND", "memory")
	t.Setenv("EMBEDDING_CACHE_SIZE", "100")

	a, err := newApp(t.Context())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.pipeline)
	assert.NotNil(t, a.cache)
	require.NoError(t, a.store.Ping(t.Context()))
}
