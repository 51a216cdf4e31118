// Package ports defines interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of the
// concrete storage media, network clients, and playback machinery.
package ports

import (
	"context"

	"github.com/melodix-app/melodix/internal/domain"
)

// BlobStore is the durable key-value store of opaque binary audio content plus
// per-entry metadata. Ids are generated by the store at write time; callers
// never supply or reuse them.
//
// Thread-safety: Implementations must be thread-safe.
type BlobStore interface {
	// Init prepares the underlying medium (creates directories, opens stores).
	// Must be called before any other method; calling other methods first
	// returns domain.ErrNotInitialized.
	Init(ctx context.Context) error

	// Put stores content with a freshly generated id.
	//
	// Returns the new record, or a *domain.StorageError (write) if the medium
	// rejects the write. A failed Put leaves no partial entry.
	Put(ctx context.Context, content []byte, meta domain.BlobMeta) (domain.BlobRecord, error)

	// Get retrieves a record and its content.
	//
	// Returns domain.ErrBlobNotFound for absence (a normal result variant) and
	// a *domain.StorageError (read) for real I/O faults.
	Get(ctx context.Context, id string) (domain.BlobRecord, []byte, error)

	// Exists reports whether the blob is present without materializing the
	// payload. Used heavily by the reconciliation pass.
	Exists(ctx context.Context, id string) bool

	// Delete removes a blob. Deleting a non-existent id is not an error.
	Delete(ctx context.Context, id string) error

	// DownloadAndPut fetches remote bytes fully, then behaves as Put.
	//
	// A *domain.DownloadError means the bytes were never obtained (zero
	// storage footprint); a *domain.StorageError means the download succeeded
	// but persisting failed, with nothing half-written.
	DownloadAndPut(ctx context.Context, url string, meta domain.BlobMeta) (domain.BlobRecord, error)

	// UpdateMeta changes the mutable descriptive metadata of a stored blob.
	UpdateMeta(ctx context.Context, id, displayName, artist string) error

	// Stats computes aggregate count and total bytes on demand.
	Stats(ctx context.Context) (domain.StorageStats, error)

	// Clear removes every stored blob. Storage-management action, not part of
	// any automatic lifecycle.
	Clear(ctx context.Context) error
}

// KeyValueStore is the durable string-keyed medium backing the catalog and
// settings. The contract is read-all-at-startup, write-on-flush: Set and Remove
// may buffer in memory until Sync persists them.
//
// Thread-safety: Implementations must be thread-safe.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores a value. Durability is only guaranteed after Sync.
	Set(key, value string)

	// Remove deletes a key. Removing a missing key is a no-op.
	Remove(key string)

	// Sync persists pending writes to the durable medium.
	//
	// Returns a *domain.StorageError (write) if persisting fails; the
	// in-memory view stays intact so a later Sync can retry.
	Sync() error
}
