package ports

import (
	"time"

	"github.com/melodix-app/melodix/internal/domain"
)

// PlaybackTransport is the narrow contract with the external playback
// machinery (decoder, output device, media element). The core hands it a
// resolved ref and transport reports position, duration, and end-of-track; it
// knows nothing about playlists or where the ref came from.
//
// Thread-safety: Implementations must be thread-safe.
type PlaybackTransport interface {
	// Load prepares a ref for playback, replacing whatever was loaded before.
	// When autoplay is true, playback starts immediately.
	Load(ref domain.PlayableRef, autoplay bool) error

	// Play starts or resumes playback of the loaded ref.
	//
	// Returns domain.ErrNoTrackLoaded when nothing is loaded.
	Play() error

	// Pause pauses playback, preserving position.
	Pause() error

	// Playing reports whether the transport is currently playing.
	Playing() bool

	// Seek moves the playback position within the loaded ref.
	Seek(position time.Duration) error

	// Position returns the current playback position.
	Position() time.Duration

	// Duration returns the total duration of the loaded ref, or zero when
	// unknown (live streams before metadata arrives).
	Duration() time.Duration

	// SetOnComplete registers the end-of-track callback. The transport calls
	// it from its own goroutine once per natural track completion.
	SetOnComplete(fn func())

	// Close releases the transport.
	Close() error
}
