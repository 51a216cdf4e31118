package service

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// supportedExtensions lists the audio container formats accepted for local
// ingestion. Anything else is rejected before touching the blob store.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
	".wav":  true,
	".aiff": true,
}

// IngestService is the high-level pipeline for getting audio into the catalog:
// local files go through the blob store first, remote search results are added
// as streaming entries without any network activity, and streaming entries can
// later be promoted to offline copies.
//
// Every pipeline is all-or-nothing from the catalog's point of view: a failed
// ingestion leaves the target playlist untouched.
type IngestService struct {
	logger  *slog.Logger
	blobs   ports.BlobStore
	catalog *CatalogService
}

// NewIngestService creates an ingestion service.
func NewIngestService(logger *slog.Logger, blobs ports.BlobStore, catalog *CatalogService) *IngestService {
	return &IngestService{
		logger:  logger,
		blobs:   blobs,
		catalog: catalog,
	}
}

// IngestLocalFile reads an audio file, stores its bytes as a blob, and appends
// a Local descriptor to the playlist. Title and artist come from embedded tags
// when present, falling back to the file name. The descriptor's ID is the blob
// record's id.
//
// Any failure is returned as a *domain.IngestionError and nothing is added.
func (s *IngestService) IngestLocalFile(ctx context.Context, path, playlistName string) (domain.SongDescriptor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return domain.SongDescriptor{}, domain.NewIngestionError(filepath.Base(path), playlistName, domain.ErrUnsupportedFormat)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.SongDescriptor{}, domain.NewIngestionError(filepath.Base(path), playlistName, err)
	}

	meta := s.extractMeta(path, content)

	record, err := s.blobs.Put(ctx, content, domain.BlobMeta{
		DisplayName: meta.DisplayName,
		Artist:      meta.Artist,
		Ext:         ext,
		Source:      "local",
	})
	if err != nil {
		return domain.SongDescriptor{}, domain.NewIngestionError(filepath.Base(path), playlistName, err)
	}

	song := domain.NewLocalSong(record.ID, record.ID, meta)
	if err := s.catalog.AddSong(song, playlistName); err != nil {
		// Keep the blob store consistent with the catalog.
		if derr := s.blobs.Delete(ctx, record.ID); derr != nil {
			s.logger.Warn("orphan blob cleanup failed",
				slog.String("blob_id", record.ID),
				slog.Any("error", derr))
		}
		return domain.SongDescriptor{}, domain.NewIngestionError(filepath.Base(path), playlistName, err)
	}

	s.logger.Info("local file ingested",
		slog.String("file", filepath.Base(path)),
		slog.String("playlist", playlistName),
		slog.String("blob_id", record.ID))
	return song, nil
}

// IngestRemoteReference appends a streaming descriptor built from a search
// result. No bytes are fetched; the entry plays from the remote URL until it
// is promoted.
func (s *IngestService) IngestRemoteReference(result domain.SearchResult, playlistName string) (domain.SongDescriptor, error) {
	song := domain.NewStreamSong(result.ID, result.AudioURL, domain.SongMeta{
		DisplayName: result.Name,
		Artist:      result.Artist,
		Album:       result.Album,
		Duration:    result.Duration,
		ArtworkURL:  result.ArtworkURL,
	})
	if err := s.catalog.AddSong(song, playlistName); err != nil {
		return domain.SongDescriptor{}, domain.NewIngestionError(result.Name, playlistName, err)
	}

	s.logger.Info("remote reference added",
		slog.String("song", result.Name),
		slog.String("playlist", playlistName))
	return song, nil
}

// PromoteToOffline downloads a streaming entry's audio and swaps the
// descriptor to a Local one referencing the new blob, returning the promoted
// descriptor. The descriptor's ID is preserved across the transition.
//
// Promoting an entry that is already Local returns it unchanged without a
// second download, so retrying after a reported failure that actually
// committed stays safe. A download or storage failure leaves the playlist
// entry streaming and playable.
func (s *IngestService) PromoteToOffline(ctx context.Context, playlistName, songID string) (domain.SongDescriptor, error) {
	var target domain.SongDescriptor
	found := false
	for _, song := range s.catalog.Songs(playlistName) {
		if song.ID == songID {
			target = song
			found = true
			break
		}
	}
	if !found {
		return domain.SongDescriptor{}, domain.ErrSongNotFound
	}

	if target.Kind() == domain.SourceLocal {
		s.logger.Debug("song already offline", slog.String("song_id", songID))
		return target, nil
	}

	remoteURL, _ := target.RemoteURL()
	record, err := s.blobs.DownloadAndPut(ctx, remoteURL, domain.BlobMeta{
		DisplayName: target.Meta.DisplayName,
		Artist:      target.Meta.Artist,
		Source:      "download",
	})
	if err != nil {
		return domain.SongDescriptor{}, domain.NewIngestionError(target.Meta.DisplayName, playlistName, err)
	}

	promoted := target.Promoted(record.ID)
	err = s.catalog.PromoteToOffline(playlistName, func(song domain.SongDescriptor) bool {
		return song.ID == songID && song.Kind() == domain.SourceStreamRemote
	}, promoted)
	if err != nil {
		// The entry vanished between download and swap; drop the orphan blob.
		if derr := s.blobs.Delete(ctx, record.ID); derr != nil {
			s.logger.Warn("orphan blob cleanup failed",
				slog.String("blob_id", record.ID),
				slog.Any("error", derr))
		}
		return domain.SongDescriptor{}, domain.NewIngestionError(target.Meta.DisplayName, playlistName, err)
	}

	return promoted, nil
}

// extractMeta parses embedded tags, falling back to the file name for the
// title. Tag parse failures are expected for raw formats and never fatal.
func (s *IngestService) extractMeta(path string, content []byte) domain.SongMeta {
	meta := domain.SongMeta{
		DisplayName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Artist:      "Unknown Artist",
	}

	parsed, err := tag.ReadFrom(bytes.NewReader(content))
	if err != nil {
		s.logger.Debug("no readable tags", slog.String("file", filepath.Base(path)))
		return meta
	}

	if title := strings.TrimSpace(parsed.Title()); title != "" {
		meta.DisplayName = title
	}
	if artist := strings.TrimSpace(parsed.Artist()); artist != "" {
		meta.Artist = artist
	}
	meta.Album = strings.TrimSpace(parsed.Album())
	return meta
}
