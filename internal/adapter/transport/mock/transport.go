// Package mock implements an in-memory playback transport for tests and for
// running the core without a real audio stack. It records what was loaded,
// simulates play/pause/seek state, and lets tests inject load failures and
// trigger end-of-track.
package mock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// Transport is a mock playback transport.
//
// Thread-safe: All operations protected by sync.Mutex.
type Transport struct {
	mu         sync.Mutex
	logger     *slog.Logger
	loaded     *domain.PlayableRef
	playing    bool
	position   time.Duration
	duration   time.Duration
	onComplete func()

	// failLoadFor maps URIs to errors returned once on Load, then cleared.
	// Used to exercise the re-resolve-and-retry path.
	failLoadFor map[string]error

	// LoadCount counts successful loads, for retry assertions.
	LoadCount int
}

// New creates a mock transport.
func New(logger *slog.Logger) *Transport {
	return &Transport{
		logger:      logger,
		failLoadFor: make(map[string]error),
		duration:    3 * time.Minute,
	}
}

// FailNextLoadFor makes the next Load of the given URI fail once with err.
func (t *Transport) FailNextLoadFor(uri string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failLoadFor[uri] = err
}

// SetDuration sets the duration reported for loaded refs.
func (t *Transport) SetDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = d
}

// Load prepares a ref for playback.
func (t *Transport) Load(ref domain.PlayableRef, autoplay bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err, ok := t.failLoadFor[ref.URI]; ok {
		delete(t.failLoadFor, ref.URI)
		return err
	}

	r := ref
	t.loaded = &r
	t.playing = autoplay
	t.position = 0
	t.LoadCount++
	t.logger.Debug("transport loaded", slog.String("uri", ref.URI))
	return nil
}

// Play starts or resumes playback.
func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded == nil {
		return domain.ErrNoTrackLoaded
	}
	t.playing = true
	return nil
}

// Pause pauses playback, preserving position.
func (t *Transport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded == nil {
		return domain.ErrNoTrackLoaded
	}
	t.playing = false
	return nil
}

// Playing reports whether the transport is playing.
func (t *Transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Seek moves the playback position.
func (t *Transport) Seek(position time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded == nil {
		return domain.ErrNoTrackLoaded
	}
	if position < 0 || (t.duration > 0 && position > t.duration) {
		return domain.ErrInvalidIndex
	}
	t.position = position
	return nil
}

// Position returns the current playback position.
func (t *Transport) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Duration returns the duration of the loaded ref.
func (t *Transport) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded == nil {
		return 0
	}
	return t.duration
}

// SetOnComplete registers the end-of-track callback.
func (t *Transport) SetOnComplete(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onComplete = fn
}

// CompleteTrack simulates natural end-of-track, invoking the registered
// callback synchronously on the caller's goroutine.
func (t *Transport) CompleteTrack() {
	t.mu.Lock()
	fn := t.onComplete
	t.playing = false
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Loaded returns the currently loaded ref, or nil.
func (t *Transport) Loaded() *domain.PlayableRef {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded == nil {
		return nil
	}
	r := *t.loaded
	return &r
}

// Close releases the transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loaded = nil
	t.playing = false
	t.onComplete = nil
	return nil
}

// Verify interface implementation
var _ ports.PlaybackTransport = (*Transport)(nil)
