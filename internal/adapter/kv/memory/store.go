// Package memory implements an in-memory key-value store for tests, with a
// failure-injection hook for exercising flush error paths.
package memory

import (
	"sync"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// Store is an in-memory key-value store.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Store struct {
	mu       sync.RWMutex
	values   map[string]string
	synced   map[string]string
	failSync error
	syncHook func()
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		values: make(map[string]string),
		synced: make(map[string]string),
	}
}

// FailSyncWith makes subsequent Sync calls fail with err. Pass nil to restore.
func (s *Store) FailSyncWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSync = err
}

// SetSyncHook installs a function Sync calls before writing, outside the
// store lock. Lets tests hold a sync open to exercise in-flight-flush races.
func (s *Store) SetSyncHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncHook = fn
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value; durable after the next Sync.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Remove deletes a key.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Sync copies the live view to the synced snapshot, simulating a durable write.
func (s *Store) Sync() error {
	s.mu.RLock()
	hook := s.syncHook
	s.mu.RUnlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSync != nil {
		return domain.NewStorageError(domain.StorageWrite, "catalog", "", s.failSync)
	}
	s.synced = make(map[string]string, len(s.values))
	for k, v := range s.values {
		s.synced[k] = v
	}
	return nil
}

// Synced returns the last durably written value for key, for test assertions.
func (s *Store) Synced(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.synced[key]
	return v, ok
}

// SyncedLen returns the number of durably written keys.
func (s *Store) SyncedLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.synced)
}

// Verify interface implementation
var _ ports.KeyValueStore = (*Store)(nil)
