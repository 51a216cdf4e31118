// Package domain defines events for the event-driven architecture.
// Events enable loose coupling between the catalog, ingestion, and playback glue.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Catalog events
	EventPlaylistUpdated  EventType = "playlist.updated"
	EventSelectionChanged EventType = "playlist.selection_changed"
	EventSongAdded        EventType = "song.added"
	EventSongRemoved      EventType = "song.removed"
	EventSongPromoted     EventType = "song.promoted"
	EventCatalogFlushed   EventType = "catalog.flushed"

	// Blob store events
	EventBlobStored  EventType = "blob.stored"
	EventBlobDeleted EventType = "blob.deleted"
	EventBlobMissing EventType = "blob.missing"

	// Playback glue events
	EventTrackLoaded    EventType = "track.loaded"
	EventTrackCompleted EventType = "track.completed"
	EventTrackError     EventType = "track.error"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PlaylistUpdatedEvent is published on any playlist membership or order change.
type PlaylistUpdatedEvent struct {
	baseEvent
	Playlist string
	Songs    []SongDescriptor
}

// Type returns the event type.
func (e PlaylistUpdatedEvent) Type() EventType { return EventPlaylistUpdated }

// NewPlaylistUpdatedEvent creates a new PlaylistUpdatedEvent.
func NewPlaylistUpdatedEvent(playlist string, songs []SongDescriptor) PlaylistUpdatedEvent {
	return PlaylistUpdatedEvent{baseEvent: newBaseEvent(), Playlist: playlist, Songs: songs}
}

// SelectionChangedEvent is published when the current playlist selection changes.
// Name is empty when the selection was cleared.
type SelectionChangedEvent struct {
	baseEvent
	Name string
}

// Type returns the event type.
func (e SelectionChangedEvent) Type() EventType { return EventSelectionChanged }

// NewSelectionChangedEvent creates a new SelectionChangedEvent.
func NewSelectionChangedEvent(name string) SelectionChangedEvent {
	return SelectionChangedEvent{baseEvent: newBaseEvent(), Name: name}
}

// SongAddedEvent is published when a song is appended to a playlist.
type SongAddedEvent struct {
	baseEvent
	Playlist string
	Song     SongDescriptor
	Index    int
}

// Type returns the event type.
func (e SongAddedEvent) Type() EventType { return EventSongAdded }

// NewSongAddedEvent creates a new SongAddedEvent.
func NewSongAddedEvent(playlist string, song SongDescriptor, index int) SongAddedEvent {
	return SongAddedEvent{baseEvent: newBaseEvent(), Playlist: playlist, Song: song, Index: index}
}

// SongRemovedEvent is published when a song is removed from a playlist by index.
// Consumers holding positional state (the playback glue) use it to adjust.
type SongRemovedEvent struct {
	baseEvent
	Playlist string
	Index    int
}

// Type returns the event type.
func (e SongRemovedEvent) Type() EventType { return EventSongRemoved }

// NewSongRemovedEvent creates a new SongRemovedEvent.
func NewSongRemovedEvent(playlist string, index int) SongRemovedEvent {
	return SongRemovedEvent{baseEvent: newBaseEvent(), Playlist: playlist, Index: index}
}

// SongPromotedEvent is published when a descriptor transitions from streaming
// to offline.
type SongPromotedEvent struct {
	baseEvent
	Playlist string
	Song     SongDescriptor
}

// Type returns the event type.
func (e SongPromotedEvent) Type() EventType { return EventSongPromoted }

// NewSongPromotedEvent creates a new SongPromotedEvent.
func NewSongPromotedEvent(playlist string, song SongDescriptor) SongPromotedEvent {
	return SongPromotedEvent{baseEvent: newBaseEvent(), Playlist: playlist, Song: song}
}

// CatalogFlushedEvent is published after the catalog is persisted to the
// durable medium.
type CatalogFlushedEvent struct {
	baseEvent
	Playlists int
}

// Type returns the event type.
func (e CatalogFlushedEvent) Type() EventType { return EventCatalogFlushed }

// NewCatalogFlushedEvent creates a new CatalogFlushedEvent.
func NewCatalogFlushedEvent(playlists int) CatalogFlushedEvent {
	return CatalogFlushedEvent{baseEvent: newBaseEvent(), Playlists: playlists}
}

// BlobStoredEvent is published when a blob write succeeds.
type BlobStoredEvent struct {
	baseEvent
	Record BlobRecord
}

// Type returns the event type.
func (e BlobStoredEvent) Type() EventType { return EventBlobStored }

// NewBlobStoredEvent creates a new BlobStoredEvent.
func NewBlobStoredEvent(record BlobRecord) BlobStoredEvent {
	return BlobStoredEvent{baseEvent: newBaseEvent(), Record: record}
}

// BlobDeletedEvent is published when a blob is deleted.
type BlobDeletedEvent struct {
	baseEvent
	BlobID string
}

// Type returns the event type.
func (e BlobDeletedEvent) Type() EventType { return EventBlobDeleted }

// NewBlobDeletedEvent creates a new BlobDeletedEvent.
func NewBlobDeletedEvent(blobID string) BlobDeletedEvent {
	return BlobDeletedEvent{baseEvent: newBaseEvent(), BlobID: blobID}
}

// BlobMissingEvent is the diagnostic record emitted by the reconciliation pass
// when a local descriptor references a blob that no longer exists.
type BlobMissingEvent struct {
	baseEvent
	Playlist string
	SongName string
	BlobID   string
}

// Type returns the event type.
func (e BlobMissingEvent) Type() EventType { return EventBlobMissing }

// NewBlobMissingEvent creates a new BlobMissingEvent.
func NewBlobMissingEvent(playlist, songName, blobID string) BlobMissingEvent {
	return BlobMissingEvent{baseEvent: newBaseEvent(), Playlist: playlist, SongName: songName, BlobID: blobID}
}

// TrackLoadedEvent is published when the playback glue loads a song into the transport.
type TrackLoadedEvent struct {
	baseEvent
	Song  SongDescriptor
	Index int
}

// Type returns the event type.
func (e TrackLoadedEvent) Type() EventType { return EventTrackLoaded }

// NewTrackLoadedEvent creates a new TrackLoadedEvent.
func NewTrackLoadedEvent(song SongDescriptor, index int) TrackLoadedEvent {
	return TrackLoadedEvent{baseEvent: newBaseEvent(), Song: song, Index: index}
}

// TrackCompletedEvent is published when the transport reports end-of-track and
// no further song follows.
type TrackCompletedEvent struct {
	baseEvent
	Song SongDescriptor
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType { return EventTrackCompleted }

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(song SongDescriptor) TrackCompletedEvent {
	return TrackCompletedEvent{baseEvent: newBaseEvent(), Song: song}
}

// TrackErrorEvent is published when loading or playing a song fails after retry.
type TrackErrorEvent struct {
	baseEvent
	Song  SongDescriptor
	Error error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType { return EventTrackError }

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(song SongDescriptor, err error) TrackErrorEvent {
	return TrackErrorEvent{baseEvent: newBaseEvent(), Song: song, Error: err}
}
