// Package fyneprefs implements the durable key-value medium over Fyne's
// Preferences API, for embedding the core inside a Fyne application. Fyne
// persists values itself, so Sync is a no-op.
//
// Fyne preferences cannot enumerate keys or distinguish an empty value from a
// missing one; the catalog never stores empty values and maintains its own
// name index, so neither limitation is observable here.
package fyneprefs

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/melodix-app/melodix/internal/ports"
)

// Store adapts fyne.Preferences to the KeyValueStore port.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Store struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// New creates a store over the given preferences. The preferences parameter
// should be obtained from fyne.CurrentApp().Preferences().
func New(prefs fyne.Preferences) *Store {
	return &Store{prefs: prefs}
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.prefs.String(key)
	return v, v != ""
}

// Set stores a value. Fyne writes through immediately.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.SetString(key, value)
}

// Remove deletes a key.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.RemoveValue(key)
}

// Sync is a no-op; Fyne persists preferences on write.
func (s *Store) Sync() error {
	return nil
}

// Verify interface implementation
var _ ports.KeyValueStore = (*Store)(nil)
