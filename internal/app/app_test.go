package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transportmock "github.com/melodix-app/melodix/internal/adapter/transport/mock"
	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/logger"
	"github.com/melodix-app/melodix/internal/testutil"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		DataDir:         dir,
		BlobDir:         filepath.Join(dir, "blobs"),
		CatalogPath:     filepath.Join(dir, "catalog.json"),
		FlushDebounce:   time.Hour,
		LogLevel:        "warn",
		LogFormat:       "text",
		SearchLimit:     5,
		DownloadTimeout: 5 * time.Second,
	}
}

func newTestApp(t *testing.T, cfg Config) *Application {
	t.Helper()
	application := New(cfg, transportmock.New(logger.NewTestLogger()))
	require.NoError(t, application.Init(context.Background()))
	return application
}

func TestApplicationLifecycleRoundTrip(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	ctx := context.Background()
	cfg := testConfig(t)

	first := newTestApp(t, cfg)

	// First run bootstraps a default playlist.
	assert.NotEmpty(t, first.Catalog.Playlists())

	audioPath := filepath.Join(t.TempDir(), "Morning Song.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake-mpeg"), 0o644))
	local, err := first.Ingest.IngestLocalFile(ctx, audioPath, "Favorites")
	require.NoError(t, err)

	stream := domain.NewStreamSong("itunes_1", "https://example.com/preview.m4a", domain.SongMeta{DisplayName: "Preview"})
	require.NoError(t, first.Catalog.AddSong(stream, "Favorites"))
	first.Catalog.SelectPlaylist("Favorites")

	require.NoError(t, first.Close())

	// A second process over the same data observes identical state.
	second := newTestApp(t, cfg)
	defer func() { require.NoError(t, second.Close()) }()

	assert.Equal(t, "Favorites", second.Catalog.Selected())
	songs := second.Catalog.Songs("Favorites")
	require.Len(t, songs, 2)
	assert.Equal(t, local.ID, songs[0].ID)
	assert.Equal(t, domain.SourceLocal, songs[0].Kind())
	assert.Equal(t, "Morning Song", songs[0].Meta.DisplayName)
	assert.Equal(t, domain.SourceStreamRemote, songs[1].Kind())

	blobID, ok := songs[0].BlobID()
	require.True(t, ok)
	assert.True(t, second.Blobs.Exists(context.Background(), blobID))
}

func TestApplicationReconcilesOnStartup(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first := newTestApp(t, cfg)

	audioPath := filepath.Join(t.TempDir(), "Doomed.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake-mpeg"), 0o644))
	_, err := first.Ingest.IngestLocalFile(ctx, audioPath, "Favorites")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Simulate external blob loss while the process was down.
	entries, err := os.ReadDir(cfg.BlobDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		require.NoError(t, os.Remove(filepath.Join(cfg.BlobDir, entry.Name())))
	}

	second := newTestApp(t, cfg)
	defer func() { require.NoError(t, second.Close()) }()

	assert.Empty(t, second.Catalog.Songs("Favorites"), "startup reconciliation drops songs with missing blobs")
}

func TestApplicationPlaybackOverRealStores(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	transport := transportmock.New(logger.NewTestLogger())
	application := New(cfg, transport)
	require.NoError(t, application.Init(ctx))
	defer func() { require.NoError(t, application.Close()) }()

	audioPath := filepath.Join(t.TempDir(), "Track.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake-mpeg"), 0o644))
	song, err := application.Ingest.IngestLocalFile(ctx, audioPath, "Queue")
	require.NoError(t, err)
	application.Catalog.SelectPlaylist("Queue")

	require.NoError(t, application.Player.PlayAt(ctx, 0))

	loaded := transport.Loaded()
	require.NotNil(t, loaded)
	blobID, _ := song.BlobID()
	assert.Equal(t, blobID, loaded.BlobID)
	assert.FileExists(t, loaded.URI, "local playback resolves to an on-disk path")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "blobs"), cfg.BlobDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "catalog.json"), cfg.CatalogPath)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushDebounce)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 25, cfg.SearchLimit)
}
