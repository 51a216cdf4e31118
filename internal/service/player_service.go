package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// RepeatMode controls what happens when a track finishes naturally.
type RepeatMode int

const (
	// RepeatOff stops at the end of the queue.
	RepeatOff RepeatMode = iota

	// RepeatAll wraps from the last song back to the first.
	RepeatAll

	// RepeatOne replays the current song.
	RepeatOne
)

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// PlayerService is the glue between the catalog and the playback transport. It
// owns the play queue (a snapshot of one playlist's song list), the current
// index, and the currently resolved ref.
//
// Local songs are resolved to refs on demand; the previous ref is invalidated
// when superseded. A ref that fails to load is re-resolved and retried exactly
// once before the failure is surfaced, covering refs that went stale across a
// session boundary.
//
// Thread-safe: All operations protected by sync.Mutex.
type PlayerService struct {
	logger    *slog.Logger
	catalog   *CatalogService
	resolver  ports.ReferenceResolver
	transport ports.PlaybackTransport
	bus       ports.EventBus

	mu         sync.Mutex
	queue      []domain.SongDescriptor
	queueOwner string
	current    int
	currentRef domain.PlayableRef
	shuffle    bool
	repeat     RepeatMode
	closed     bool

	removedSub domain.SubscriptionID
}

// NewPlayerService creates the playback glue and wires it to the transport's
// end-of-track callback and the catalog's removal events.
func NewPlayerService(
	logger *slog.Logger,
	catalog *CatalogService,
	resolver ports.ReferenceResolver,
	transport ports.PlaybackTransport,
	bus ports.EventBus,
) *PlayerService {
	s := &PlayerService{
		logger:    logger,
		catalog:   catalog,
		resolver:  resolver,
		transport: transport,
		bus:       bus,
		current:   -1,
	}

	transport.SetOnComplete(s.onTrackComplete)
	s.removedSub = bus.Subscribe(domain.EventSongRemoved, s.onSongRemoved)
	return s
}

// PlayAt loads and plays the song at index in the selected playlist, snapshotting
// the playlist as the play queue.
func (s *PlayerService) PlayAt(ctx context.Context, index int) error {
	playlist := s.catalog.Selected()
	songs := s.catalog.Songs(playlist)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}
	if index < 0 || index >= len(songs) {
		return domain.ErrInvalidIndex
	}

	s.queue = songs
	s.queueOwner = playlist
	return s.loadLocked(ctx, index, true)
}

// PlayNext advances to the next song. With shuffle on, a random other song is
// chosen. Returns domain.ErrEndOfQueue past the last song unless repeat-all
// wraps around.
func (s *PlayerService) PlayNext(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}
	next, err := s.nextIndexLocked()
	if err != nil {
		return err
	}
	return s.loadLocked(ctx, next, true)
}

// PlayPrevious steps back to the previous song. Returns domain.ErrStartOfQueue
// before the first song unless repeat-all wraps around.
func (s *PlayerService) PlayPrevious(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}
	if len(s.queue) == 0 || s.current < 0 {
		return domain.ErrNoTrackLoaded
	}

	prev := s.current - 1
	if prev < 0 {
		if s.repeat != RepeatAll {
			return domain.ErrStartOfQueue
		}
		prev = len(s.queue) - 1
	}
	return s.loadLocked(ctx, prev, true)
}

// TogglePlay pauses a playing transport and resumes a paused one.
func (s *PlayerService) TogglePlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport.Playing() {
		return s.transport.Pause()
	}
	return s.transport.Play()
}

// Seek moves the playback position within the current track.
func (s *PlayerService) Seek(position time.Duration) error {
	return s.transport.Seek(position)
}

// Position returns the current playback position.
func (s *PlayerService) Position() time.Duration {
	return s.transport.Position()
}

// Duration returns the current track's duration, zero when unknown.
func (s *PlayerService) Duration() time.Duration {
	return s.transport.Duration()
}

// Playing reports whether the transport is currently playing.
func (s *PlayerService) Playing() bool {
	return s.transport.Playing()
}

// CurrentIndex returns the queue index of the current song, -1 when none.
func (s *PlayerService) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentSong returns the current song and whether one is loaded.
func (s *PlayerService) CurrentSong() (domain.SongDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.queue) {
		return domain.SongDescriptor{}, false
	}
	return s.queue[s.current], true
}

// SetShuffle toggles random next-song selection.
func (s *PlayerService) SetShuffle(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = on
}

// Shuffle reports whether shuffle is on.
func (s *PlayerService) Shuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuffle
}

// SetRepeat sets the repeat mode.
func (s *PlayerService) SetRepeat(mode RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = mode
}

// Repeat returns the repeat mode.
func (s *PlayerService) Repeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

// Close releases the current ref and the transport and detaches from the bus.
func (s *PlayerService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ref := s.currentRef
	s.currentRef = domain.PlayableRef{}
	s.current = -1
	s.mu.Unlock()

	s.bus.Unsubscribe(s.removedSub)
	if ref.IsResolved() {
		s.resolver.Invalidate(ref)
	}
	return s.transport.Close()
}

// loadLocked resolves and loads the song at index. Must be called with s.mu
// held. The superseded ref is invalidated once the new one is loaded.
func (s *PlayerService) loadLocked(ctx context.Context, index int, autoplay bool) error {
	song := s.queue[index]

	ref, err := s.resolveLocked(ctx, song)
	if err != nil {
		s.bus.Publish(domain.NewTrackErrorEvent(song, err))
		return err
	}

	if err := s.transport.Load(ref, autoplay); err != nil {
		// A stale ref is the expected failure here: invalidate it, mint a
		// fresh one, and retry once.
		if ref.IsResolved() {
			s.resolver.Invalidate(ref)
			if ref, err = s.resolveLocked(ctx, song); err == nil {
				err = s.transport.Load(ref, autoplay)
			}
		}
		if err != nil {
			s.bus.Publish(domain.NewTrackErrorEvent(song, err))
			return err
		}
	}

	prev := s.currentRef
	s.currentRef = ref
	s.current = index
	if prev.IsResolved() {
		s.resolver.Invalidate(prev)
	}

	s.bus.Publish(domain.NewTrackLoadedEvent(song, index))
	s.logger.Info("track loaded",
		slog.String("song", song.Meta.DisplayName),
		slog.Int("index", index),
		slog.String("kind", song.Kind().String()))
	return nil
}

// resolveLocked produces a playable ref for the song: minted by the resolver
// for Local songs, the bare streaming URL otherwise.
func (s *PlayerService) resolveLocked(ctx context.Context, song domain.SongDescriptor) (domain.PlayableRef, error) {
	if blobID, ok := song.BlobID(); ok {
		return s.resolver.Resolve(ctx, blobID)
	}
	url, ok := song.RemoteURL()
	if !ok {
		return domain.PlayableRef{}, domain.ErrInvalidSong
	}
	return domain.PlayableRef{URI: url}, nil
}

// nextIndexLocked picks the index PlayNext should load. Must be called with
// s.mu held.
func (s *PlayerService) nextIndexLocked() (int, error) {
	if len(s.queue) == 0 || s.current < 0 {
		return 0, domain.ErrNoTrackLoaded
	}

	if s.shuffle && len(s.queue) > 1 {
		next := rand.IntN(len(s.queue) - 1)
		if next >= s.current {
			next++
		}
		return next, nil
	}

	next := s.current + 1
	if next >= len(s.queue) {
		if s.repeat != RepeatAll {
			return 0, domain.ErrEndOfQueue
		}
		next = 0
	}
	return next, nil
}

// onTrackComplete runs on the transport's goroutine at natural end-of-track.
func (s *PlayerService) onTrackComplete() {
	s.mu.Lock()

	if s.closed || s.current < 0 {
		s.mu.Unlock()
		return
	}
	song := s.queue[s.current]

	if s.repeat == RepeatOne {
		err := s.loadLocked(context.Background(), s.current, true)
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("repeat-one reload failed", slog.Any("error", err))
		}
		return
	}

	next, err := s.nextIndexLocked()
	if err != nil {
		s.mu.Unlock()
		s.bus.Publish(domain.NewTrackCompletedEvent(song))
		return
	}

	err = s.loadLocked(context.Background(), next, true)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("auto-advance failed", slog.Any("error", err))
	}
}

// onSongRemoved keeps the queue and current index coherent when the catalog
// removes a song from the playlist backing the queue. Removing the current
// song stops playback; removing an earlier song shifts the index down.
func (s *PlayerService) onSongRemoved(event domain.Event) {
	removed, ok := event.(domain.SongRemovedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || removed.Playlist != s.queueOwner || s.current < 0 {
		return
	}

	s.queue = s.catalog.Songs(s.queueOwner)

	switch {
	case removed.Index == s.current:
		if err := s.transport.Pause(); err != nil {
			s.logger.Debug("pause after removal failed", slog.Any("error", err))
		}
		if s.currentRef.IsResolved() {
			s.resolver.Invalidate(s.currentRef)
		}
		s.currentRef = domain.PlayableRef{}
		s.current = -1
	case removed.Index < s.current:
		s.current--
	}
}
