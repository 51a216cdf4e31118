package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSongDescriptorConstructors(t *testing.T) {
	local := NewLocalSong("id1", "audio_abc", SongMeta{DisplayName: "Local"})
	assert.Equal(t, SourceLocal, local.Kind())
	assert.True(t, local.IsValid())

	blobID, ok := local.BlobID()
	assert.True(t, ok)
	assert.Equal(t, "audio_abc", blobID)
	_, ok = local.RemoteURL()
	assert.False(t, ok)

	stream := NewStreamSong("id2", "https://example.com/a.m4a", SongMeta{DisplayName: "Stream"})
	assert.Equal(t, SourceStreamRemote, stream.Kind())
	assert.True(t, stream.IsValid())

	url, ok := stream.RemoteURL()
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/a.m4a", url)
	_, ok = stream.BlobID()
	assert.False(t, ok)
}

func TestSongDescriptorZeroValueInvalid(t *testing.T) {
	var s SongDescriptor
	assert.Equal(t, SourceUnknown, s.Kind())
	assert.False(t, s.IsValid())
}

func TestSongDescriptorPromoted(t *testing.T) {
	stream := NewStreamSong("id1", "https://example.com/a.m4a", SongMeta{
		DisplayName: "Song",
		Artist:      "Artist",
		Duration:    30 * time.Second,
	})

	promoted := stream.Promoted("audio_new")

	assert.Equal(t, "id1", promoted.ID, "identity is preserved")
	assert.Equal(t, SourceLocal, promoted.Kind())
	assert.Equal(t, stream.Meta, promoted.Meta)

	blobID, ok := promoted.BlobID()
	require.True(t, ok)
	assert.Equal(t, "audio_new", blobID)
	_, ok = promoted.RemoteURL()
	assert.False(t, ok, "the remote URL dependence is dropped")

	// The original is a value and stays untouched.
	assert.Equal(t, SourceStreamRemote, stream.Kind())
}

func TestSongDescriptorJSONRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		song SongDescriptor
	}{
		{
			name: "local",
			song: NewLocalSong("id1", "audio_abc", SongMeta{
				DisplayName: "Offline",
				Artist:      "Artist",
				Album:       "Album",
				Duration:    215 * time.Second,
			}),
		},
		{
			name: "stream",
			song: NewStreamSong("id2", "https://example.com/a.m4a", SongMeta{
				DisplayName: "Streaming",
				ArtworkURL:  "https://example.com/art.jpg",
				Duration:    30 * time.Second,
			}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.song)
			require.NoError(t, err)

			var got SongDescriptor
			require.NoError(t, json.Unmarshal(data, &got))

			assert.Equal(t, tc.song.ID, got.ID)
			assert.Equal(t, tc.song.Kind(), got.Kind())
			assert.Equal(t, tc.song.Meta, got.Meta)
			assert.True(t, got.IsValid())
		})
	}
}

func TestSongDescriptorUnmarshalRejectsInvariantViolations(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"unknown kind", `{"id":"x","kind":"martian","displayName":"A","dateAdded":"2026-01-01T00:00:00Z"}`},
		{"local without blob id", `{"id":"x","kind":"local","displayName":"A","dateAdded":"2026-01-01T00:00:00Z"}`},
		{"stream without url", `{"id":"x","kind":"stream","displayName":"A","dateAdded":"2026-01-01T00:00:00Z"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s SongDescriptor
			assert.Error(t, json.Unmarshal([]byte(tc.data), &s))
		})
	}
}

func TestPlayableRefIsResolved(t *testing.T) {
	assert.False(t, PlayableRef{URI: "https://example.com/a.m4a"}.IsResolved())
	assert.True(t, PlayableRef{URI: "/data/a.mp3", BlobID: "audio_1", Token: "tok"}.IsResolved())
}

func TestStorageStatsHumanSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
		{2 << 40, "2.00 TB"},
		{1 << 50, "1.00 PB"},
		{1 << 60, "1.00 EB"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StorageStats{TotalBytes: tc.bytes}.HumanSize())
	}
}
