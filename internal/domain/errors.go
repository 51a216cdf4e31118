// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrBlobNotFound is the explicit absence signal for blob lookups.
	// It is a normal result variant, distinct from transient I/O failures.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrPlaylistNotFound is returned when a requested playlist doesn't exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrSongNotFound is returned when no song matches a lookup predicate.
	ErrSongNotFound = errors.New("song not found")

	// ErrInvalidIndex is returned when a song index is out of bounds.
	ErrInvalidIndex = errors.New("invalid song index")

	// ErrEndOfQueue is returned when trying to navigate past the end of the song list.
	ErrEndOfQueue = errors.New("end of queue reached")

	// ErrStartOfQueue is returned when trying to navigate before the start of the song list.
	ErrStartOfQueue = errors.New("start of queue reached")

	// ErrWrongSourceKind is returned when an operation requires a descriptor of
	// the other source kind (e.g. promoting with a non-local replacement).
	ErrWrongSourceKind = errors.New("wrong song source kind")

	// ErrInvalidSong is returned when a descriptor was not built through a
	// constructor and carries neither a blob id nor a remote URL.
	ErrInvalidSong = errors.New("invalid song descriptor")

	// ErrStaleRef is returned when a playable ref is used after invalidation.
	ErrStaleRef = errors.New("playable ref has been invalidated")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrClosed is returned when an operation is attempted on a closed component.
	ErrClosed = errors.New("component closed")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNoTrackLoaded is returned when playback is attempted with nothing loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")
)

// StorageOp identifies which half of the durable medium an operation touched.
type StorageOp string

const (
	// StorageRead marks a read-side failure of the durable medium.
	StorageRead StorageOp = "read"

	// StorageWrite marks a write-side failure of the durable medium.
	StorageWrite StorageOp = "write"
)

// StorageError represents a durable-medium I/O failure (blob or catalog medium).
// Callers must be able to distinguish read failures from write failures and
// both from plain absence (ErrBlobNotFound).
type StorageError struct {
	Op     StorageOp // Which side failed
	Medium string    // Medium description ("blob", "catalog")
	Key    string    // Key or id involved (may be empty)
	Err    error     // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s failed on %s %q: %v", e.Op, e.Medium, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s failed on %s: %v", e.Op, e.Medium, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError.
func NewStorageError(op StorageOp, medium, key string, err error) *StorageError {
	return &StorageError{Op: op, Medium: medium, Key: key, Err: err}
}

// DownloadError represents a network fetch failure during a download-and-store
// operation. It is always distinguishable from StorageError so callers can tell
// "never got the bytes" from "got the bytes, failed to persist them".
type DownloadError struct {
	URL        string // Requested URL
	StatusCode int    // HTTP status, 0 when the transport itself failed
	Err        error  // Underlying error (may be nil on a non-2xx response)
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new DownloadError.
func NewDownloadError(url string, statusCode int, err error) *DownloadError {
	return &DownloadError{URL: url, StatusCode: statusCode, Err: err}
}

// IngestionError wraps an underlying storage or download error with
// ingestion-specific context: which input, which target playlist.
type IngestionError struct {
	Input    string // File name or URL being ingested
	Playlist string // Target playlist
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *IngestionError) Error() string {
	return fmt.Sprintf("failed to add %q to playlist %q: %v", e.Input, e.Playlist, e.Err)
}

// Unwrap returns the underlying error.
func (e *IngestionError) Unwrap() error {
	return e.Err
}

// NewIngestionError creates a new IngestionError.
func NewIngestionError(input, playlist string, err error) *IngestionError {
	return &IngestionError{Input: input, Playlist: playlist, Err: err}
}
