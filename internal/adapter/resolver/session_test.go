package resolver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmem "github.com/melodix-app/melodix/internal/adapter/blob/memory"
	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/logger"
)

func newSession(t *testing.T) (*Session, *blobmem.Store) {
	t.Helper()
	log := logger.NewTestLogger()
	blobs := blobmem.New(log)
	require.NoError(t, blobs.Init(context.Background()))
	return New(blobs, log), blobs
}

func putBlob(t *testing.T, blobs *blobmem.Store) string {
	t.Helper()
	record, err := blobs.Put(context.Background(), []byte("bytes"), domain.BlobMeta{})
	require.NoError(t, err)
	return record.ID
}

func TestSessionResolve(t *testing.T) {
	ctx := context.Background()
	session, blobs := newSession(t)
	id := putBlob(t, blobs)

	ref, err := session.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "mem://"+id, ref.URI)
	assert.Equal(t, id, ref.BlobID)
	assert.True(t, ref.IsResolved())
	assert.True(t, session.Valid(ref))
}

func TestSessionResolveMintsDistinctRefs(t *testing.T) {
	ctx := context.Background()
	session, blobs := newSession(t)
	id := putBlob(t, blobs)

	first, err := session.Resolve(ctx, id)
	require.NoError(t, err)
	second, err := session.Resolve(ctx, id)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)

	// Revoking one does not touch the other.
	session.Invalidate(first)
	assert.False(t, session.Valid(first))
	assert.True(t, session.Valid(second))
}

func TestSessionResolveMissingBlob(t *testing.T) {
	session, _ := newSession(t)

	_, err := session.Resolve(context.Background(), "audio_missing")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestSessionInvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	session, blobs := newSession(t)
	id := putBlob(t, blobs)

	ref, err := session.Resolve(ctx, id)
	require.NoError(t, err)

	session.Invalidate(ref)
	session.Invalidate(ref)
	assert.False(t, session.Valid(ref))

	// Unresolved refs are ignored entirely.
	session.Invalidate(domain.PlayableRef{URI: "https://example.com/a.m4a"})
}

func TestSessionUnresolvedRefsAlwaysValid(t *testing.T) {
	session, _ := newSession(t)
	assert.True(t, session.Valid(domain.PlayableRef{URI: "https://example.com/a.m4a"}))
}

func TestSessionCloseRevokesRacingResolves(t *testing.T) {
	ctx := context.Background()
	session, blobs := newSession(t)
	id := putBlob(t, blobs)

	var mu sync.Mutex
	var resolved []domain.PlayableRef

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ref, err := session.Resolve(ctx, id)
				if err != nil {
					return
				}
				mu.Lock()
				resolved = append(resolved, ref)
				mu.Unlock()
			}
		}()
	}

	require.NoError(t, session.Close())
	wg.Wait()

	// Every ref that Resolve handed out, even one racing Close, must be
	// revoked once Close has returned.
	for _, ref := range resolved {
		assert.False(t, session.Valid(ref))
	}
}

func TestSessionClose(t *testing.T) {
	ctx := context.Background()
	session, blobs := newSession(t)
	id := putBlob(t, blobs)

	ref, err := session.Resolve(ctx, id)
	require.NoError(t, err)

	require.NoError(t, session.Close())

	assert.False(t, session.Valid(ref), "close revokes all outstanding refs")
	_, err = session.Resolve(ctx, id)
	assert.ErrorIs(t, err, domain.ErrClosed)
}
