// Package file implements the durable key-value medium as a single JSON
// document on disk. The whole document is read once at load time and written
// back on every Sync (write-on-flush), matching the catalog's debounced
// persistence model.
package file

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// Store is a file-backed key-value store.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]string
}

// New creates a store persisting to path. Call Load before first use.
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		values: make(map[string]string),
	}
}

// Load reads the document from disk. A missing file is a first run, not an
// error: the store starts empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.values = make(map[string]string)
		return nil
	}
	if err != nil {
		return domain.NewStorageError(domain.StorageRead, "catalog", s.path, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return domain.NewStorageError(domain.StorageRead, "catalog", s.path, err)
	}
	s.values = values
	s.logger.Debug("catalog document loaded",
		slog.String("path", s.path),
		slog.Int("keys", len(values)))
	return nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value in memory; durable after the next Sync.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Remove deletes a key. Removing a missing key is a no-op.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Sync writes the document to disk via temp file and rename. The in-memory
// view is untouched on failure so a later Sync can retry.
func (s *Store) Sync() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.values, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, "catalog", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.NewStorageError(domain.StorageWrite, "catalog", s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".catalog-*")
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, "catalog", s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return domain.NewStorageError(domain.StorageWrite, "catalog", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return domain.NewStorageError(domain.StorageWrite, "catalog", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return domain.NewStorageError(domain.StorageWrite, "catalog", s.path, err)
	}
	return nil
}

// Verify interface implementation
var _ ports.KeyValueStore = (*Store)(nil)
