package fyneprefs

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	app := test.NewApp()
	store := New(app.Preferences())

	store.Set("playlist.Jazz", `{"name":"Jazz"}`)

	v, ok := store.Get("playlist.Jazz")
	require.True(t, ok)
	assert.Equal(t, `{"name":"Jazz"}`, v)

	_, ok = store.Get("playlist.Missing")
	assert.False(t, ok)
}

func TestStoreRemove(t *testing.T) {
	app := test.NewApp()
	store := New(app.Preferences())

	store.Set("key", "value")
	store.Remove("key")
	store.Remove("never-existed")

	_, ok := store.Get("key")
	assert.False(t, ok)
}

func TestStoreSyncIsNoOp(t *testing.T) {
	store := New(test.NewApp().Preferences())
	assert.NoError(t, store.Sync())
}
