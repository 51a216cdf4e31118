// Package fs implements the blob store on a filesystem directory.
// Each blob is a content file named <id><ext> plus a JSON metadata sidecar
// <id>.meta.json; the sidecar is the authoritative record, the content file the
// payload. Writes go through a temp file and rename so a crash never leaves a
// half-written entry visible.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

const metaSuffix = ".meta.json"

// Store is a filesystem-backed blob store.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Store struct {
	dir    string
	client *http.Client
	logger *slog.Logger
	bus    ports.EventBus

	mu          sync.RWMutex
	initialized bool
}

// New creates a filesystem blob store rooted at dir. Construction has no side
// effects; call Init to prepare the directory. The HTTP client is used by
// DownloadAndPut; pass nil for http.DefaultClient.
func New(dir string, client *http.Client, logger *slog.Logger, bus ports.EventBus) *Store {
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{
		dir:    dir,
		client: client,
		logger: logger,
		bus:    bus,
	}
}

// Init creates the blob directory if it does not exist.
func (s *Store) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.NewStorageError(domain.StorageWrite, "blob", "", err)
	}
	s.initialized = true
	s.logger.Debug("blob store initialized", slog.String("dir", s.dir))
	return nil
}

// Dir returns the blob directory root.
func (s *Store) Dir() string {
	return s.dir
}

// Put stores content under a freshly generated id.
func (s *Store) Put(_ context.Context, content []byte, meta domain.BlobMeta) (domain.BlobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.BlobRecord{}, domain.ErrNotInitialized
	}

	record := domain.BlobRecord{
		ID:          "audio_" + uuid.NewString(),
		SizeBytes:   int64(len(content)),
		Ext:         normalizeExt(meta.Ext),
		DisplayName: meta.DisplayName,
		Artist:      meta.Artist,
		Source:      meta.Source,
		DateAdded:   time.Now(),
	}
	if record.DisplayName == "" {
		record.DisplayName = "Unknown Track"
	}
	if record.Artist == "" {
		record.Artist = "Unknown Artist"
	}
	if record.Source == "" {
		record.Source = "local"
	}

	if err := s.writeEntry(record, content); err != nil {
		return domain.BlobRecord{}, err
	}

	s.logger.Info("blob stored",
		slog.String("id", record.ID),
		slog.String("name", record.DisplayName),
		slog.Int64("size", record.SizeBytes))
	if s.bus != nil {
		s.bus.Publish(domain.NewBlobStoredEvent(record))
	}
	return record, nil
}

// writeEntry writes content then sidecar, each via temp+rename. If the sidecar
// write fails the content file is removed, keeping the entry all-or-nothing.
// Must be called with the lock held.
func (s *Store) writeEntry(record domain.BlobRecord, content []byte) error {
	contentPath := s.contentPath(record.ID, record.Ext)
	if err := atomicWrite(contentPath, content); err != nil {
		return domain.NewStorageError(domain.StorageWrite, "blob", record.ID, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		_ = os.Remove(contentPath)
		return domain.NewStorageError(domain.StorageWrite, "blob", record.ID, err)
	}
	if err := atomicWrite(s.metaPath(record.ID), data); err != nil {
		_ = os.Remove(contentPath)
		return domain.NewStorageError(domain.StorageWrite, "blob", record.ID, err)
	}
	return nil
}

// Get retrieves a record and its content.
func (s *Store) Get(_ context.Context, id string) (domain.BlobRecord, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return domain.BlobRecord{}, nil, domain.ErrNotInitialized
	}

	record, err := s.readMeta(id)
	if err != nil {
		return domain.BlobRecord{}, nil, err
	}

	content, err := os.ReadFile(s.contentPath(id, record.Ext))
	if err != nil {
		if os.IsNotExist(err) {
			// Sidecar present but payload gone: drift, reported as absence.
			return domain.BlobRecord{}, nil, domain.ErrBlobNotFound
		}
		return domain.BlobRecord{}, nil, domain.NewStorageError(domain.StorageRead, "blob", id, err)
	}
	return record, content, nil
}

// Exists reports presence of both sidecar and payload without reading them.
func (s *Store) Exists(_ context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return false
	}

	record, err := s.readMeta(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(s.contentPath(id, record.Ext))
	return err == nil
}

// Delete removes a blob. Deleting a non-existent id is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}

	record, err := s.readMeta(id)
	if errors.Is(err, domain.ErrBlobNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.Remove(s.contentPath(id, record.Ext)); err != nil && !os.IsNotExist(err) {
		return domain.NewStorageError(domain.StorageWrite, "blob", id, err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil && !os.IsNotExist(err) {
		return domain.NewStorageError(domain.StorageWrite, "blob", id, err)
	}

	s.logger.Info("blob deleted", slog.String("id", id))
	if s.bus != nil {
		s.bus.Publish(domain.NewBlobDeletedEvent(id))
	}
	return nil
}

// DownloadAndPut fetches the URL fully, then stores the bytes as Put would.
// Transport failures and non-2xx responses surface as *domain.DownloadError
// with zero storage footprint; only a failure after the body was read can
// produce a *domain.StorageError.
func (s *Store) DownloadAndPut(ctx context.Context, url string, meta domain.BlobMeta) (domain.BlobRecord, error) {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()
	if !initialized {
		return domain.BlobRecord{}, domain.ErrNotInitialized
	}

	s.logger.Info("downloading audio", slog.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.BlobRecord{}, domain.NewDownloadError(url, 0, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.BlobRecord{}, domain.NewDownloadError(url, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.BlobRecord{}, domain.NewDownloadError(url, resp.StatusCode, nil)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.BlobRecord{}, domain.NewDownloadError(url, 0, err)
	}

	if meta.Ext == "" {
		meta.Ext = extFromURL(url)
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

	if !s.initialized {
		return domain.ErrNotInitialized
	}

	record, err := s.readMeta(id)
	if err != nil {
		return err
	}
	if displayName != "" {
		record.DisplayName = displayName
	}
	if artist != "" {
		record.Artist = artist
	}

	data, err := json.Marshal(record)
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, "blob", id, err)
	}
	if err := atomicWrite(s.metaPath(id), data); err != nil {
		return domain.NewStorageError(domain.StorageWrite, "blob", id, err)
	}
	return nil
}

// Stats walks the metadata sidecars and sums sizes. Computed on demand, never
// cached: the result feeds UI display, not admission control.
func (s *Store) Stats(_ context.Context) (domain.StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return domain.StorageStats{}, domain.ErrNotInitialized
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return domain.StorageStats{}, domain.NewStorageError(domain.StorageRead, "blob", "", err)
	}

	var stats domain.StorageStats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), metaSuffix)
		record, err := s.readMeta(id)
		if err != nil {
			s.logger.Warn("skipping unreadable blob metadata", slog.String("file", entry.Name()))
			continue
		}
		stats.BlobCount++
		stats.TotalBytes += record.SizeBytes
	}
	return stats, nil
}

// Clear removes every stored blob.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return domain.NewStorageError(domain.StorageWrite, "blob", "", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.NewStorageError(domain.StorageWrite, "blob", "", err)
	}
	s.logger.Info("blob store cleared", slog.String("dir", s.dir))
	return nil
}

// ContentPath returns the on-disk path of a blob's payload. Used by the
// reference resolver to mint playable refs.
func (s *Store) ContentPath(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return "", domain.ErrNotInitialized
	}

	record, err := s.readMeta(id)
	if err != nil {
		return "", err
	}
	path := s.contentPath(id, record.Ext)
	if _, err := os.Stat(path); err != nil {
		return "", domain.ErrBlobNotFound
	}
	return path, nil
}

// readMeta loads a sidecar. Must be called with the lock held.
func (s *Store) readMeta(id string) (domain.BlobRecord, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.BlobRecord{}, domain.ErrBlobNotFound
		}
		return domain.BlobRecord{}, domain.NewStorageError(domain.StorageRead, "blob", id, err)
	}

	var record domain.BlobRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.BlobRecord{}, domain.NewStorageError(domain.StorageRead, "blob", id, err)
	}
	return record, nil
}

func (s *Store) contentPath(id, ext string) string {
	return filepath.Join(s.dir, id+ext)
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.dir, id+metaSuffix)
}

// atomicWrite writes data to a temp file in the target directory and renames
// it into place.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".melodix-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// normalizeExt lowercases an extension hint and guarantees a leading dot.
// Blobs with no hint are stored as .mp3.
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ".mp3"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// extFromURL guesses an extension from a download URL path.
func extFromURL(url string) string {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := filepath.Ext(trimmed)
	if ext == "" || len(ext) > 5 {
		return ".mp3"
	}
	return ext
}

// Verify interface implementation
var _ ports.BlobStore = (*Store)(nil)
