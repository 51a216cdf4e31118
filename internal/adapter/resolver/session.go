// Package resolver implements the reference resolver over a blob store's
// content locations. Refs are session-bounded: each successful Resolve mints a
// tracked token, Invalidate revokes it, and Close revokes everything, so a
// consumer holding a ref across a session boundary observes it as stale and
// must re-resolve.
package resolver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// Locator maps a blob id to a loadable content location. The filesystem blob
// store implements it with on-disk paths; the in-memory store with pseudo-URIs.
type Locator interface {
	ContentPath(ctx context.Context, id string) (string, error)
}

// Session mints and revokes playable refs for one playback session.
//
// Thread-safe: All operations protected by sync.Mutex.
type Session struct {
	locator Locator
	logger  *slog.Logger

	mu     sync.Mutex
	live   map[string]struct{}
	closed bool
}

// New creates a resolver session over the given locator.
func New(locator Locator, logger *slog.Logger) *Session {
	return &Session{
		locator: locator,
		logger:  logger,
		live:    make(map[string]struct{}),
	}
}

// Resolve mints a fresh ref for a stored blob. Propagates
// domain.ErrBlobNotFound when the blob is gone.
func (s *Session) Resolve(ctx context.Context, blobID string) (domain.PlayableRef, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.PlayableRef{}, domain.ErrClosed
	}
	s.mu.Unlock()

	uri, err := s.locator.ContentPath(ctx, blobID)
	if err != nil {
		return domain.PlayableRef{}, err
	}

	ref := domain.PlayableRef{
		URI:    uri,
		BlobID: blobID,
		Token:  uuid.NewString(),
	}

	// Close may have run while the locator was consulted; a token must never
	// be registered after Close cleared the map.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.PlayableRef{}, domain.ErrClosed
	}
	s.live[ref.Token] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("ref resolved", slog.String("blob_id", blobID))
	return ref, nil
}

// Invalidate revokes a resolved ref. Double-invalidation, and invalidating a
// ref this session never minted, are no-ops.
func (s *Session) Invalidate(ref domain.PlayableRef) {
	if !ref.IsResolved() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live[ref.Token]; !ok {
		s.logger.Debug("ignoring invalidate of unknown ref", slog.String("blob_id", ref.BlobID))
		return
	}
	delete(s.live, ref.Token)
}

// Valid reports whether a ref is still live. Unresolved refs (plain streaming
// URLs) are always valid.
func (s *Session) Valid(ref domain.PlayableRef) bool {
	if !ref.IsResolved() {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[ref.Token]
	return ok
}

// Close revokes all outstanding refs. Further Resolve calls fail with
// domain.ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.live = make(map[string]struct{})
	return nil
}

// Verify interface implementation
var _ ports.ReferenceResolver = (*Session)(nil)
