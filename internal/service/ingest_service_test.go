package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/logger"
)

func newIngestFixture(t *testing.T) (*IngestService, *catalogFixture) {
	t.Helper()
	f := newCatalogFixture(t, time.Hour)
	return NewIngestService(logger.NewTestLogger(), f.blobs, f.catalog), f
}

func writeAudioFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestIngestLocalFile(t *testing.T) {
	ctx := context.Background()
	svc, f := newIngestFixture(t)

	path := writeAudioFile(t, "My Song.mp3", []byte("not-really-mpeg-frames"))
	song, err := svc.IngestLocalFile(ctx, path, "Imports")
	require.NoError(t, err)

	// No readable tags, so metadata falls back to the file name.
	assert.Equal(t, "My Song", song.Meta.DisplayName)
	assert.Equal(t, "Unknown Artist", song.Meta.Artist)
	assert.Equal(t, domain.SourceLocal, song.Kind())

	blobID, ok := song.BlobID()
	require.True(t, ok)
	assert.Equal(t, song.ID, blobID, "descriptor id is the blob record id")
	assert.True(t, f.blobs.Exists(ctx, blobID))

	_, content, err := f.blobs.Get(ctx, blobID)
	require.NoError(t, err)
	assert.Equal(t, []byte("not-really-mpeg-frames"), content)

	songs := f.catalog.Songs("Imports")
	require.Len(t, songs, 1)
	assertSameSong(t, song, songs[0])
}

func TestIngestLocalFileUnsupportedExtension(t *testing.T) {
	ctx := context.Background()
	svc, f := newIngestFixture(t)

	path := writeAudioFile(t, "notes.txt", []byte("text"))
	_, err := svc.IngestLocalFile(ctx, path, "Imports")

	var ingErr *domain.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Empty(t, f.catalog.Songs("Imports"))
}

func TestIngestLocalFileMissingFile(t *testing.T) {
	svc, f := newIngestFixture(t)

	_, err := svc.IngestLocalFile(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"), "Imports")

	var ingErr *domain.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Empty(t, f.catalog.Songs("Imports"))
}

func TestIngestLocalFileStorageFailureAddsNothing(t *testing.T) {
	ctx := context.Background()
	svc, f := newIngestFixture(t)

	f.blobs.FailPutWith(errors.New("disk full"))
	path := writeAudioFile(t, "song.mp3", []byte("bytes"))
	_, err := svc.IngestLocalFile(ctx, path, "Imports")

	var ingErr *domain.IngestionError
	require.ErrorAs(t, err, &ingErr)
	var storageErr *domain.StorageError
	assert.ErrorAs(t, err, &storageErr)

	assert.Empty(t, f.catalog.Songs("Imports"), "a failed ingestion leaves the playlist untouched")
	stats, err := f.blobs.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.BlobCount, "a failed ingestion leaves no blob behind")
}

func TestIngestRemoteReference(t *testing.T) {
	ctx := context.Background()
	svc, f := newIngestFixture(t)

	result := domain.SearchResult{
		ID:       "itunes_99",
		Name:     "Preview Song",
		Artist:   "Some Artist",
		Album:    "Some Album",
		Duration: 30 * time.Second,
		AudioURL: "https://example.com/preview.m4a",
		Provider: "itunes",
	}
	song, err := svc.IngestRemoteReference(result, "Queue")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceStreamRemote, song.Kind())
	url, ok := song.RemoteURL()
	require.True(t, ok)
	assert.Equal(t, "https://example.com/preview.m4a", url)

	// Adding a streaming reference moves no bytes.
	stats, err := f.blobs.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.BlobCount)

	songs := f.catalog.Songs("Queue")
	require.Len(t, songs, 1)
	assertSameSong(t, song, songs[0])
}

func TestPromoteToOffline(t *testing.T) {
	ctx := context.Background()
	svc, f := newIngestFixture(t)

	f.blobs.Remote["https://example.com/full.m4a"] = []byte("full-quality-bytes")
	song, err := svc.IngestRemoteReference(domain.SearchResult{
		ID:       "itunes_7",
		Name:     "Keeper",
		Artist:   "Artist",
		AudioURL: "https://example.com/full.m4a",
	}, "Favorites")
	require.NoError(t, err)

	promoted, err := svc.PromoteToOffline(ctx, "Favorites", song.ID)
	require.NoError(t, err)
	assert.Equal(t, song.ID, promoted.ID, "identity survives promotion")
	assert.Equal(t, domain.SourceLocal, promoted.Kind())

	songs := f.catalog.Songs("Favorites")
	require.Len(t, songs, 1)
	assertSameSong(t, promoted, songs[0])
	blobID, ok := songs[0].BlobID()
	require.True(t, ok)

	_, content, err := f.blobs.Get(ctx, blobID)
	require.NoError(t, err)
	assert.Equal(t, []byte("full-quality-bytes"), content)

	// Promoting again is a no-op: no second download, no second blob.
	again, err := svc.PromoteToOffline(ctx, "Favorites", song.ID)
	require.NoError(t, err)
	assertSameSong(t, promoted, again)
	stats, err := f.blobs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.BlobCount)
}

func TestPromoteToOfflineDownloadFailureLeavesEntryStreaming(t *testing.T) {
	ctx := context.Background()
	svc, f := newIngestFixture(t)

	song, err := svc.IngestRemoteReference(domain.SearchResult{
		ID:       "itunes_8",
		Name:     "Unreachable",
		AudioURL: "https://example.com/404.m4a",
	}, "Favorites")
	require.NoError(t, err)

	_, err = svc.PromoteToOffline(ctx, "Favorites", song.ID)
	var ingErr *domain.IngestionError
	require.ErrorAs(t, err, &ingErr)
	var dlErr *domain.DownloadError
	assert.ErrorAs(t, err, &dlErr)

	songs := f.catalog.Songs("Favorites")
	require.Len(t, songs, 1)
	assert.Equal(t, domain.SourceStreamRemote, songs[0].Kind(), "the entry stays streaming and playable")

	stats, err := f.blobs.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.BlobCount, "a failed download leaves no storage footprint")
}

func TestPromoteToOfflineSongNotFound(t *testing.T) {
	svc, _ := newIngestFixture(t)

	_, err := svc.PromoteToOffline(context.Background(), "Favorites", "nope")
	assert.ErrorIs(t, err, domain.ErrSongNotFound)
}
