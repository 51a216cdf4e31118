// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Melodix offline media cache
// and playlist layer.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// BlobRecord describes one stored binary audio asset. The content bytes
// themselves are owned by the blob store once written; a record only carries
// the metadata needed to list, display, and reconcile stored audio.
type BlobRecord struct {
	// ID is the opaque unique key generated by the blob store at write time.
	// Callers never supply it.
	ID string `json:"id"`

	// SizeBytes is the content length, fixed at creation.
	SizeBytes int64 `json:"sizeBytes"`

	// Ext is the file extension hint (".mp3", ".ogg", ...), fixed at creation.
	Ext string `json:"ext"`

	// DisplayName is the mutable descriptive title of the audio.
	DisplayName string `json:"displayName"`

	// Artist is the mutable performing artist name.
	Artist string `json:"artist"`

	// Source records where the bytes came from ("local", "download", ...).
	Source string `json:"source"`

	// DateAdded is set once when the blob is stored.
	DateAdded time.Time `json:"dateAdded"`
}

// BlobMeta is the caller-supplied metadata for a blob store write.
type BlobMeta struct {
	DisplayName string
	Artist      string
	Ext         string
	Source      string
}

// SourceKind identifies where a playlist entry's audio comes from.
// A descriptor is exactly one of the two; the zero value is invalid.
type SourceKind int

const (
	// SourceUnknown is the zero value and never valid on a constructed descriptor.
	SourceUnknown SourceKind = iota

	// SourceLocal means the descriptor references a blob store entry.
	SourceLocal

	// SourceStreamRemote means the descriptor references an external streaming URL.
	SourceStreamRemote
)

// String returns a human-readable representation of the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceStreamRemote:
		return "stream"
	default:
		return "unknown"
	}
}

// SongMeta carries the descriptive fields of a playlist entry. They are copied
// at add-time from the source (file tags or search-result metadata) and never
// re-fetched.
type SongMeta struct {
	DisplayName string
	Artist      string
	Album       string
	Duration    time.Duration
	ArtworkURL  string
}

// SongDescriptor is one entry in a playlist's ordered song list. It is a tagged
// sum over the two source kinds: a Local descriptor carries a blob store key,
// a StreamRemote descriptor carries a streaming URL. The constructors enforce
// that "both" or "neither" cannot be represented.
type SongDescriptor struct {
	// ID is the stable identity of the entry within a playlist. It survives
	// promotion to offline.
	ID string

	// Meta holds the descriptive fields copied at add-time.
	Meta SongMeta

	// DateAdded is set once when the descriptor is created.
	DateAdded time.Time

	kind      SourceKind
	blobID    string
	remoteURL string
}

// NewLocalSong creates a Local descriptor referencing a blob store entry.
func NewLocalSong(id, blobID string, meta SongMeta) SongDescriptor {
	return SongDescriptor{
		ID:        id,
		Meta:      meta,
		DateAdded: time.Now(),
		kind:      SourceLocal,
		blobID:    blobID,
	}
}

// NewStreamSong creates a StreamRemote descriptor referencing an external URL.
func NewStreamSong(id, remoteURL string, meta SongMeta) SongDescriptor {
	return SongDescriptor{
		ID:        id,
		Meta:      meta,
		DateAdded: time.Now(),
		kind:      SourceStreamRemote,
		remoteURL: remoteURL,
	}
}

// Kind returns the source kind of the descriptor.
func (s SongDescriptor) Kind() SourceKind {
	return s.kind
}

// BlobID returns the blob store key and true for Local descriptors.
func (s SongDescriptor) BlobID() (string, bool) {
	return s.blobID, s.kind == SourceLocal
}

// RemoteURL returns the streaming URL and true for StreamRemote descriptors.
func (s SongDescriptor) RemoteURL() (string, bool) {
	return s.remoteURL, s.kind == SourceStreamRemote
}

// IsValid reports whether the descriptor was built through a constructor.
func (s SongDescriptor) IsValid() bool {
	switch s.kind {
	case SourceLocal:
		return s.blobID != ""
	case SourceStreamRemote:
		return s.remoteURL != ""
	default:
		return false
	}
}

// Promoted returns a copy of the descriptor transitioned to Local, referencing
// the given blob. The descriptor identity and metadata are preserved; the
// remote URL dependence is dropped. This is the only supported kind transition
// (StreamRemote to Local, never the reverse).
func (s SongDescriptor) Promoted(blobID string) SongDescriptor {
	s.kind = SourceLocal
	s.blobID = blobID
	s.remoteURL = ""
	return s
}

// songDescriptorJSON is the persisted wire shape of a SongDescriptor.
type songDescriptorJSON struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	BlobID          string  `json:"blobId,omitempty"`
	RemoteURL       string  `json:"remoteUrl,omitempty"`
	DisplayName     string  `json:"displayName"`
	Artist          string  `json:"artist,omitempty"`
	Album           string  `json:"album,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	ArtworkURL      string  `json:"artworkUrl,omitempty"`
	DateAdded       string  `json:"dateAdded"`
}

// MarshalJSON implements json.Marshaler.
func (s SongDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(songDescriptorJSON{
		ID:              s.ID,
		Kind:            s.kind.String(),
		BlobID:          s.blobID,
		RemoteURL:       s.remoteURL,
		DisplayName:     s.Meta.DisplayName,
		Artist:          s.Meta.Artist,
		Album:           s.Meta.Album,
		DurationSeconds: s.Meta.Duration.Seconds(),
		ArtworkURL:      s.Meta.ArtworkURL,
		DateAdded:       s.DateAdded.UTC().Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Descriptors that violate the
// sum-type invariant (unknown kind, local without a blob id, stream without a
// URL) are rejected so a corrupted document cannot smuggle an invalid entry
// into the catalog.
func (s *SongDescriptor) UnmarshalJSON(data []byte) error {
	var raw songDescriptorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var kind SourceKind
	switch raw.Kind {
	case "local":
		kind = SourceLocal
		if raw.BlobID == "" {
			return fmt.Errorf("song descriptor %q: local entry without blob id", raw.ID)
		}
	case "stream":
		kind = SourceStreamRemote
		if raw.RemoteURL == "" {
			return fmt.Errorf("song descriptor %q: stream entry without remote url", raw.ID)
		}
	default:
		return fmt.Errorf("song descriptor %q: unknown source kind %q", raw.ID, raw.Kind)
	}

	added, err := time.Parse(time.RFC3339Nano, raw.DateAdded)
	if err != nil {
		added = time.Time{}
	}

	*s = SongDescriptor{
		ID: raw.ID,
		Meta: SongMeta{
			DisplayName: raw.DisplayName,
			Artist:      raw.Artist,
			Album:       raw.Album,
			Duration:    time.Duration(raw.DurationSeconds * float64(time.Second)),
			ArtworkURL:  raw.ArtworkURL,
		},
		DateAdded: added,
		kind:      kind,
		blobID:    raw.BlobID,
		remoteURL: raw.RemoteURL,
	}
	return nil
}

// Playlist is a named, ordered sequence of song descriptors. The name is the
// primary key; order is playback order.
type Playlist struct {
	// Name is the user-chosen unique identifier. Rename is not supported;
	// a playlist changes name only by delete and recreate.
	Name string `json:"name"`

	// Songs is the ordered song list. An empty playlist is valid and persists.
	Songs []SongDescriptor `json:"songs"`

	// DateCreated is immutable after creation.
	DateCreated time.Time `json:"dateCreated"`

	// DateModified is updated on every membership or order change.
	DateModified time.Time `json:"dateModified"`
}

// PlayableRef is a playback-ready reference produced by a reference resolver
// (for Local songs) or taken directly from a descriptor's streaming URL.
// Resolved refs may be session-bounded: holders must not assume validity across
// a playback-session boundary and should re-resolve before reuse.
type PlayableRef struct {
	// URI is what the playback transport loads: a file path or URL.
	URI string

	// BlobID is set when the ref was minted from a blob store entry.
	BlobID string

	// Token identifies the mint for revocation tracking. Empty for refs that
	// were never minted by a resolver (plain streaming URLs).
	Token string
}

// IsResolved reports whether the ref was minted by a resolver and is therefore
// subject to invalidation.
func (r PlayableRef) IsResolved() bool {
	return r.Token != ""
}

// SearchResult is one entry returned by a remote search provider.
type SearchResult struct {
	ID         string
	Name       string
	Artist     string
	Album      string
	Duration   time.Duration
	ArtworkURL string
	AudioURL   string
	Provider   string
}

// StorageStats are aggregate blob store statistics, computed on demand.
type StorageStats struct {
	BlobCount  int
	TotalBytes int64
}

// HumanSize returns the total size formatted with 1024-based units.
func (s StorageStats) HumanSize() string {
	const unit = 1024
	if s.TotalBytes < unit {
		return fmt.Sprintf("%d B", s.TotalBytes)
	}
	div, exp := int64(unit), 0
	for n := s.TotalBytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(s.TotalBytes)/float64(div), "KMGTPE"[exp])
}
