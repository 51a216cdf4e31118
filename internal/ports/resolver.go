package ports

import (
	"context"

	"github.com/melodix-app/melodix/internal/domain"
)

// ReferenceResolver converts a blob store key into a playable ref for the
// playback transport. Refs may be session-bounded: a holder crossing a
// playback-session boundary must re-resolve before use rather than assume the
// old ref is still valid.
//
// Thread-safety: Implementations must be thread-safe.
type ReferenceResolver interface {
	// Resolve mints a fresh playable ref for a stored blob.
	//
	// Returns domain.ErrBlobNotFound when the blob does not exist.
	Resolve(ctx context.Context, blobID string) (domain.PlayableRef, error)

	// Invalidate releases a previously resolved ref. It is expected to be
	// called exactly once per successful Resolve when the ref is superseded or
	// no longer needed; invalidating twice (or invalidating an unresolved ref)
	// is a no-op, not an error.
	Invalidate(ref domain.PlayableRef)

	// Valid reports whether a ref is still live. Unresolved refs (plain
	// streaming URLs) are always considered valid.
	Valid(ref domain.PlayableRef) bool

	// Close revokes all outstanding refs for this session.
	Close() error
}
