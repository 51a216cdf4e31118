// Package memory implements an in-memory blob store.
// It backs unit tests and browser-like hosts where no filesystem is available,
// and exposes failure-injection hooks for exercising error paths.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

type entry struct {
	record  domain.BlobRecord
	content []byte
}

// Store is an in-memory blob store.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Store struct {
	mu          sync.RWMutex
	initialized bool
	entries     map[string]*entry
	logger      *slog.Logger

	// Remote maps URLs to canned payloads served by DownloadAndPut. URLs not
	// present yield a *domain.DownloadError, like a 404 would.
	Remote map[string][]byte

	// Failure injection for tests.
	failPut      error
	failDelete   map[string]error
	failDownload error
}

// New creates an empty in-memory blob store.
func New(logger *slog.Logger) *Store {
	return &Store{
		entries:    make(map[string]*entry),
		logger:     logger,
		Remote:     make(map[string][]byte),
		failDelete: make(map[string]error),
	}
}

// Init marks the store ready. No medium to prepare.
func (s *Store) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

// FailPutWith makes subsequent Put calls fail with err. Pass nil to restore.
func (s *Store) FailPutWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = err
}

// FailDeleteFor makes Delete fail for a specific id.
func (s *Store) FailDeleteFor(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[id] = err
}

// FailDownloadWith makes DownloadAndPut fail before fetching. Pass nil to restore.
func (s *Store) FailDownloadWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDownload = err
}

// Put stores content under a freshly generated id.
func (s *Store) Put(_ context.Context, content []byte, meta domain.BlobMeta) (domain.BlobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.BlobRecord{}, domain.ErrNotInitialized
	}
	if s.failPut != nil {
		return domain.BlobRecord{}, domain.NewStorageError(domain.StorageWrite, "blob", "", s.failPut)
	}

	record := domain.BlobRecord{
		ID:          "audio_" + uuid.NewString(),
		SizeBytes:   int64(len(content)),
		Ext:         meta.Ext,
		DisplayName: meta.DisplayName,
		Artist:      meta.Artist,
		Source:      meta.Source,
		DateAdded:   time.Now(),
	}
	if record.Ext == "" {
		record.Ext = ".mp3"
	}
	if record.Source == "" {
		record.Source = "local"
	}

	buf := make([]byte, len(content))
	copy(buf, content)
	s.entries[record.ID] = &entry{record: record, content: buf}
	return record, nil
}

// Get retrieves a record and its content.
func (s *Store) Get(_ context.Context, id string) (domain.BlobRecord, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return domain.BlobRecord{}, nil, domain.ErrNotInitialized
	}
	e, ok := s.entries[id]
	if !ok {
		return domain.BlobRecord{}, nil, domain.ErrBlobNotFound
	}
	content := make([]byte, len(e.content))
	copy(content, e.content)
	return e.record, content, nil
}

// Exists reports whether the blob is present.
func (s *Store) Exists(_ context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// Delete removes a blob. Deleting a non-existent id is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}
	if err, ok := s.failDelete[id]; ok {
		return domain.NewStorageError(domain.StorageWrite, "blob", id, err)
	}
	delete(s.entries, id)
	return nil
}

// DownloadAndPut serves bytes from the Remote map, then behaves as Put.
func (s *Store) DownloadAndPut(ctx context.Context, url string, meta domain.BlobMeta) (domain.BlobRecord, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return domain.BlobRecord{}, domain.ErrNotInitialized
	}
	if s.failDownload != nil {
		err := s.failDownload
		s.mu.RUnlock()
		return domain.BlobRecord{}, domain.NewDownloadError(url, 0, err)
	}
	content, ok := s.Remote[url]
	s.mu.RUnlock()

	if !ok {
		return domain.BlobRecord{}, domain.NewDownloadError(url, 404, nil)
	}
	if meta.Source == "" {
		meta.Source = "download"
	}
	return s.Put(ctx, content, meta)
}

// UpdateMeta changes the mutable descriptive metadata of a stored blob.
func (s *Store) UpdateMeta(_ context.Context, id, displayName, artist string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.ErrBlobNotFound
	}
	if displayName != "" {
		e.record.DisplayName = displayName
	}
	if artist != "" {
		e.record.Artist = artist
	}
	return nil
}

// Stats computes aggregate count and total bytes.
func (s *Store) Stats(_ context.Context) (domain.StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.StorageStats
	for _, e := range s.entries {
		stats.BlobCount++
		stats.TotalBytes += e.record.SizeBytes
	}
	return stats, nil
}

// Clear removes every stored blob.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	return nil
}

// ContentPath returns a pseudo-URI for a stored blob so the session resolver
// can mint refs over this store in tests.
func (s *Store) ContentPath(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entries[id]; !ok {
		return "", domain.ErrBlobNotFound
	}
	return "mem://" + id, nil
}

// Verify interface implementation
var _ ports.BlobStore = (*Store)(nil)
