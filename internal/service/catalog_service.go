// Package service provides the business logic of the Melodix core: the
// playlist catalog, the ingestion pipeline, and the playback glue.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// Catalog persistence keys in the key-value medium. One key per playlist plus
// a name index (the medium cannot enumerate keys) and the current selection.
const (
	keyPlaylistPrefix = "playlist."
	keyPlaylistNames  = "playlist._names"
	keySelected       = "settings.current_playlist"
)

// DefaultFlushDebounce is the quiescence window between the last catalog
// mutation and the flush to durable storage. Rapid successive mutations reset
// the window so a burst of adds produces one write.
const DefaultFlushDebounce = 500 * time.Millisecond

// DefaultPlaylistName is created lazily on first run.
const DefaultPlaylistName = "My Playlist"

// CatalogService owns the in-memory catalog: every playlist plus the current
// selection. It is the single logical owner of that state in the process;
// durable storage is only touched at load time and on debounced flushes.
//
// Every mutating method schedules a debounced flush as part of its contract.
// Flush failures are logged and retried on the next mutation; they never
// corrupt or crash the in-memory state.
//
// Thread-safe: All operations protected by sync.RWMutex.
type CatalogService struct {
	logger *slog.Logger
	kv     ports.KeyValueStore
	blobs  ports.BlobStore
	bus    ports.EventBus

	debounce time.Duration

	mu            sync.RWMutex
	playlists     map[string]*domain.Playlist
	selected      string
	pendingRemove []string
	dirty         bool
	gen           uint64
	closed        bool
	timer         *time.Timer

	// flushMu serializes flushes from the timer goroutine, explicit Flush
	// calls, and Close.
	flushMu sync.Mutex
}

// NewCatalogService creates a catalog service. A non-positive debounce falls
// back to DefaultFlushDebounce.
func NewCatalogService(
	logger *slog.Logger,
	kv ports.KeyValueStore,
	blobs ports.BlobStore,
	bus ports.EventBus,
	debounce time.Duration,
) *CatalogService {
	if debounce <= 0 {
		debounce = DefaultFlushDebounce
	}
	return &CatalogService{
		logger:    logger,
		kv:        kv,
		blobs:     blobs,
		bus:       bus,
		debounce:  debounce,
		playlists: make(map[string]*domain.Playlist),
	}
}

// Load reads the whole catalog from the key-value medium. Missing or corrupt
// playlist entries are skipped with a warning rather than failing the load.
// On a first run (no name index) an empty catalog is initialized with a
// default playlist.
func (s *CatalogService) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlists = make(map[string]*domain.Playlist)

	namesData, ok := s.kv.Get(keyPlaylistNames)
	if !ok {
		// First run.
		now := time.Now()
		s.playlists[DefaultPlaylistName] = &domain.Playlist{
			Name:         DefaultPlaylistName,
			Songs:        []domain.SongDescriptor{},
			DateCreated:  now,
			DateModified: now,
		}
		s.selected = DefaultPlaylistName
		s.scheduleFlushLocked()
		s.logger.Info("catalog initialized", slog.String("default_playlist", DefaultPlaylistName))
		return nil
	}

	var names []string
	if err := json.Unmarshal([]byte(namesData), &names); err != nil {
		return domain.NewStorageError(domain.StorageRead, "catalog", keyPlaylistNames, err)
	}

	for _, name := range names {
		data, ok := s.kv.Get(keyPlaylistPrefix + name)
		if !ok {
			s.logger.Warn("playlist data missing", slog.String("name", name))
			continue
		}
		var playlist domain.Playlist
		if err := json.Unmarshal([]byte(data), &playlist); err != nil {
			s.logger.Warn("playlist corrupted", slog.String("name", name), slog.Any("error", err))
			continue
		}
		if playlist.Songs == nil {
			playlist.Songs = []domain.SongDescriptor{}
		}
		s.playlists[playlist.Name] = &playlist
	}

	if sel, ok := s.kv.Get(keySelected); ok {
		s.selected = sel
	}

	s.logger.Info("catalog loaded",
		slog.Int("playlists", len(s.playlists)),
		slog.String("selected", s.selected))
	return nil
}

// Reconcile checks every Local descriptor against the blob store and drops
// those whose blob is missing, emitting a diagnostic event per drop.
// StreamRemote descriptors are never checked. Durable storage is untouched:
// the correction persists with the next natural flush, so running Reconcile
// twice with no intervening mutation yields the same in-memory state.
func (s *CatalogService) Reconcile(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, playlist := range s.playlists {
		kept := playlist.Songs[:0]
		for _, song := range playlist.Songs {
			blobID, isLocal := song.BlobID()
			if isLocal && !s.blobs.Exists(ctx, blobID) {
				s.logger.Warn("dropping song with missing blob",
					slog.String("playlist", name),
					slog.String("song", song.Meta.DisplayName),
					slog.String("blob_id", blobID))
				s.bus.Publish(domain.NewBlobMissingEvent(name, song.Meta.DisplayName, blobID))
				continue
			}
			kept = append(kept, song)
		}
		playlist.Songs = kept
	}
}

// CreatePlaylist creates an empty playlist. Returns false without side effects
// when the name is blank or already taken.
func (s *CatalogService) CreatePlaylist(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.playlists[name]; exists {
		return false
	}

	now := time.Now()
	s.playlists[name] = &domain.Playlist{
		Name:         name,
		Songs:        []domain.SongDescriptor{},
		DateCreated:  now,
		DateModified: now,
	}
	s.scheduleFlushLocked()
	s.bus.Publish(domain.NewPlaylistUpdatedEvent(name, nil))
	s.logger.Info("playlist created", slog.String("name", name))
	return true
}

// DeletePlaylist removes a playlist. With cascadeDeleteBlobs, every Local
// descriptor's blob is deleted first, best-effort: individual blob failures
// are logged and never abort the playlist delete. Deleting the selected
// playlist clears the selection. Deleting an unknown name is a no-op.
func (s *CatalogService) DeletePlaylist(ctx context.Context, name string, cascadeDeleteBlobs bool) {
	s.mu.RLock()
	playlist, exists := s.playlists[name]
	var songs []domain.SongDescriptor
	if exists {
		songs = append(songs, playlist.Songs...)
	}
	s.mu.RUnlock()

	if !exists {
		return
	}

	if cascadeDeleteBlobs {
		for _, song := range songs {
			blobID, isLocal := song.BlobID()
			if !isLocal {
				continue
			}
			if err := s.blobs.Delete(ctx, blobID); err != nil {
				s.logger.Warn("cascade blob delete failed",
					slog.String("playlist", name),
					slog.String("blob_id", blobID),
					slog.Any("error", err))
			}
		}
	}

	s.mu.Lock()
	delete(s.playlists, name)
	s.pendingRemove = append(s.pendingRemove, keyPlaylistPrefix+name)
	if s.selected == name {
		s.selected = ""
		s.bus.Publish(domain.NewSelectionChangedEvent(""))
	}
	s.scheduleFlushLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewPlaylistUpdatedEvent(name, nil))
	s.logger.Info("playlist deleted", slog.String("name", name), slog.Bool("cascade", cascadeDeleteBlobs))
}

// SelectPlaylist sets the current selection. Existence is deliberately not
// validated: selecting an unknown name simply yields an empty song list, since
// selection and existence are decoupled.
func (s *CatalogService) SelectPlaylist(name string) {
	s.mu.Lock()
	s.selected = name
	s.scheduleFlushLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewSelectionChangedEvent(name))
}

// AddSong appends a descriptor to the target playlist, creating the playlist
// if it does not exist yet. The auto-create keeps "add from search with no
// playlist selected" working.
func (s *CatalogService) AddSong(song domain.SongDescriptor, playlistName string) error {
	if !song.IsValid() {
		return domain.ErrInvalidSong
	}

	s.mu.Lock()
	playlist, exists := s.playlists[playlistName]
	if !exists {
		now := time.Now()
		playlist = &domain.Playlist{
			Name:         playlistName,
			Songs:        []domain.SongDescriptor{},
			DateCreated:  now,
			DateModified: now,
		}
		s.playlists[playlistName] = playlist
	}
	playlist.Songs = append(playlist.Songs, song)
	playlist.DateModified = time.Now()
	index := len(playlist.Songs) - 1
	songs := s.copySongsLocked(playlist)
	s.scheduleFlushLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewSongAddedEvent(playlistName, song, index))
	s.bus.Publish(domain.NewPlaylistUpdatedEvent(playlistName, songs))
	s.logger.Info("song added",
		slog.String("playlist", playlistName),
		slog.String("song", song.Meta.DisplayName),
		slog.String("kind", song.Kind().String()))
	return nil
}

// RemoveSong removes the song at index from the playlist. An unknown playlist
// or an out-of-range index is a no-op, tolerating races between UI index
// capture and concurrent mutation.
func (s *CatalogService) RemoveSong(playlistName string, index int) {
	s.mu.Lock()
	playlist, exists := s.playlists[playlistName]
	if !exists || index < 0 || index >= len(playlist.Songs) {
		s.mu.Unlock()
		return
	}
	playlist.Songs = append(playlist.Songs[:index], playlist.Songs[index+1:]...)
	playlist.DateModified = time.Now()
	songs := s.copySongsLocked(playlist)
	s.scheduleFlushLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewSongRemovedEvent(playlistName, index))
	s.bus.Publish(domain.NewPlaylistUpdatedEvent(playlistName, songs))
}

// PromoteToOffline replaces the first descriptor matching the predicate with
// newSong, which must be Local. The swap happens under the catalog lock, so
// concurrent readers observe either the old or the new descriptor, never a
// torn state. Only one instance is promoted even if the predicate would match
// several (duplicate remote adds stay independent entries).
func (s *CatalogService) PromoteToOffline(playlistName string, match func(domain.SongDescriptor) bool, newSong domain.SongDescriptor) error {
	if newSong.Kind() != domain.SourceLocal {
		return domain.ErrWrongSourceKind
	}

	s.mu.Lock()
	playlist, exists := s.playlists[playlistName]
	if !exists {
		s.mu.Unlock()
		return domain.ErrPlaylistNotFound
	}

	replaced := false
	for i, song := range playlist.Songs {
		if match(song) {
			playlist.Songs[i] = newSong
			replaced = true
			break
		}
	}
	if !replaced {
		s.mu.Unlock()
		return domain.ErrSongNotFound
	}
	playlist.DateModified = time.Now()
	songs := s.copySongsLocked(playlist)
	s.scheduleFlushLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewSongPromotedEvent(playlistName, newSong))
	s.bus.Publish(domain.NewPlaylistUpdatedEvent(playlistName, songs))
	s.logger.Info("song promoted to offline",
		slog.String("playlist", playlistName),
		slog.String("song", newSong.Meta.DisplayName))
	return nil
}

// Playlists returns copies of all playlists sorted by name.
func (s *CatalogService) Playlists() []domain.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Playlist, 0, len(s.playlists))
	for _, playlist := range s.playlists {
		p := *playlist
		p.Songs = s.copySongsLocked(playlist)
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Songs returns a copy of a playlist's song list. Unknown names yield an empty
// list, mirroring the decoupled selection contract.
func (s *CatalogService) Songs(playlistName string) []domain.SongDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, exists := s.playlists[playlistName]
	if !exists {
		return []domain.SongDescriptor{}
	}
	return s.copySongsLocked(playlist)
}

// Selected returns the current playlist selection, empty when none.
func (s *CatalogService) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SelectedSongs returns the song list of the selected playlist.
func (s *CatalogService) SelectedSongs() []domain.SongDescriptor {
	return s.Songs(s.Selected())
}

// Stats returns aggregate blob store statistics for display.
func (s *CatalogService) Stats(ctx context.Context) (domain.StorageStats, error) {
	return s.blobs.Stats(ctx)
}

// copySongsLocked copies a playlist's song slice. Must be called with at least
// a read lock held.
func (s *CatalogService) copySongsLocked(playlist *domain.Playlist) []domain.SongDescriptor {
	songs := make([]domain.SongDescriptor, len(playlist.Songs))
	copy(songs, playlist.Songs)
	return songs
}

// scheduleFlushLocked marks the catalog dirty and (re)starts the coalescing
// timer. Must be called with the write lock held. Part of the contract of
// every mutating method.
func (s *CatalogService) scheduleFlushLocked() {
	if s.closed {
		return
	}
	s.dirty = true
	s.gen++
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flushFromTimer)
		return
	}
	s.timer.Reset(s.debounce)
}

// flushFromTimer runs on the timer goroutine when the quiescence window
// elapses. Errors are logged; the dirty flag stays set so the next mutation
// retries.
func (s *CatalogService) flushFromTimer() {
	if err := s.Flush(context.Background()); err != nil {
		s.logger.Warn("debounced catalog flush failed", slog.Any("error", err))
	}
}

// Flush synchronously persists the whole catalog to the key-value medium. The
// in-memory state is never modified by a flush; on failure the dirty flag
// stays set for a later retry.
func (s *CatalogService) Flush(_ context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	names := make([]string, 0, len(s.playlists))
	docs := make(map[string]string, len(s.playlists))
	for name, playlist := range s.playlists {
		data, err := json.Marshal(playlist)
		if err != nil {
			s.mu.Unlock()
			return domain.NewStorageError(domain.StorageWrite, "catalog", name, err)
		}
		names = append(names, name)
		docs[name] = string(data)
	}
	sort.Strings(names)
	removed := make([]string, len(s.pendingRemove))
	copy(removed, s.pendingRemove)
	selected := s.selected
	s.mu.Unlock()

	for _, key := range removed {
		s.kv.Remove(key)
	}
	for name, doc := range docs {
		s.kv.Set(keyPlaylistPrefix+name, doc)
	}
	namesData, err := json.Marshal(names)
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, "catalog", keyPlaylistNames, err)
	}
	s.kv.Set(keyPlaylistNames, string(namesData))
	if selected != "" {
		s.kv.Set(keySelected, selected)
	} else {
		s.kv.Remove(keySelected)
	}

	if err := s.kv.Sync(); err != nil {
		return err
	}

	s.mu.Lock()
	// A mutation may have landed while the lock was free during the KV
	// writes; it is not in this snapshot, so the dirty flag must survive for
	// the next flush.
	if s.gen == gen {
		s.dirty = false
	}
	s.pendingRemove = s.pendingRemove[len(removed):]
	s.mu.Unlock()

	s.bus.Publish(domain.NewCatalogFlushedEvent(len(names)))
	s.logger.Debug("catalog flushed", slog.Int("playlists", len(names)))
	return nil
}

// Close stops the flush timer and performs a final synchronous flush when
// unflushed mutations remain.
func (s *CatalogService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	dirty := s.dirty
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	return s.Flush(context.Background())
}
