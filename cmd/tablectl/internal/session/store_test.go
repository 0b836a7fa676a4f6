package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "worktable")

		store, err := NewStore(dir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("empty store has no session", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Load()
		require.ErrorIs(t, err, ErrNoSession)
	})
}

func TestStoreSaveLoadClear(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(Profile{
		Server:       "http://localhost:8080",
		Email:        "jane@example.com",
		SessionToken: "0199f0a4-0000-7000-8000-000000000001",
	}))

	info, err := os.Stat(filepath.Join(dir, configFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = os.Stat(filepath.Join(dir, configFile+".tmp"))
	assert.True(t, os.IsNotExist(err))

	t.Run("a new store reads the saved profile", func(t *testing.T) {
		reopened, err := NewStore(dir)
		require.NoError(t, err)

		p, err := reopened.Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", p.Server)
		assert.Equal(t, "jane@example.com", p.Email)
		assert.False(t, p.UpdatedAt.IsZero())
	})

	t.Run("profile without a token is not a session", func(t *testing.T) {
		other, err := NewStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, other.Save(Profile{Server: "http://localhost:8080"}))

		_, err = other.Load()
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear())
		_, err := store.Load()
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("corrupt config", func(t *testing.T) {
		bad := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(bad, configFile), []byte("{"), 0600))
		s, err := NewStore(bad)
		require.NoError(t, err)

		_, err = s.Load()
		require.ErrorContains(t, err, "failed to parse config")
	})
}
