package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/logger"
)

func TestStoreLoadMissingFileIsFirstRun(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "catalog.json"), logger.NewTestLogger())

	require.NoError(t, store.Load())
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	store := New(path, logger.NewTestLogger())
	require.NoError(t, store.Load())
	store.Set("playlist.Jazz", `{"name":"Jazz"}`)
	store.Set("settings.current_playlist", "Jazz")
	require.NoError(t, store.Sync())

	reloaded := New(path, logger.NewTestLogger())
	require.NoError(t, reloaded.Load())

	v, ok := reloaded.Get("playlist.Jazz")
	require.True(t, ok)
	assert.Equal(t, `{"name":"Jazz"}`, v)
	v, ok = reloaded.Get("settings.current_playlist")
	require.True(t, ok)
	assert.Equal(t, "Jazz", v)
}

func TestStoreSetIsNotDurableUntilSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	store := New(path, logger.NewTestLogger())
	require.NoError(t, store.Load())
	store.Set("key", "value")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing written before Sync")

	require.NoError(t, store.Sync())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStoreRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	store := New(path, logger.NewTestLogger())
	require.NoError(t, store.Load())
	store.Set("key", "value")
	store.Remove("key")
	store.Remove("never-existed")
	require.NoError(t, store.Sync())

	reloaded := New(path, logger.NewTestLogger())
	require.NoError(t, reloaded.Load())
	_, ok := reloaded.Get("key")
	assert.False(t, ok)
}

func TestStoreLoadCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := New(path, logger.NewTestLogger())
	err := store.Load()
	require.Error(t, err)

	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, domain.StorageRead, storageErr.Op)
}

func TestStoreSyncCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "catalog.json")

	store := New(path, logger.NewTestLogger())
	require.NoError(t, store.Load())
	store.Set("key", "value")
	require.NoError(t, store.Sync())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
