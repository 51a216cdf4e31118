package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/melodix-app/melodix/internal/adapter/blob/fs"
	"github.com/melodix-app/melodix/internal/adapter/eventbus"
	kvfile "github.com/melodix-app/melodix/internal/adapter/kv/file"
	"github.com/melodix-app/melodix/internal/adapter/resolver"
	"github.com/melodix-app/melodix/internal/adapter/search/itunes"
	"github.com/melodix-app/melodix/internal/logger"
	"github.com/melodix-app/melodix/internal/ports"
	"github.com/melodix-app/melodix/internal/service"
)

// Application is the composition root: it constructs the adapters and services
// and owns their lifecycle. The playback transport is injected since it is the
// one piece that differs per platform.
type Application struct {
	Logger   *slog.Logger
	Bus      ports.EventBus
	Blobs    *fs.Store
	KV       *kvfile.Store
	Resolver ports.ReferenceResolver
	Catalog  *service.CatalogService
	Ingest   *service.IngestService
	Search   ports.SearchProvider
	Player   *service.PlayerService

	cfg Config
}

// New constructs the application graph from configuration. Nothing touches
// disk until Init.
func New(cfg Config, transport ports.PlaybackTransport) *Application {
	log := logger.NewLogger(logger.Config{
		Level:  parseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})

	bus := eventbus.NewSyncEventBus()
	bus.SetLogger(log)
	httpClient := &http.Client{Timeout: cfg.DownloadTimeout}

	blobs := fs.New(cfg.BlobDir, httpClient, log, bus)
	kv := kvfile.New(cfg.CatalogPath, log)
	catalog := service.NewCatalogService(log, kv, blobs, bus, cfg.FlushDebounce)
	res := resolver.New(blobs, log)

	return &Application{
		Logger:   log,
		Bus:      bus,
		Blobs:    blobs,
		KV:       kv,
		Resolver: res,
		Catalog:  catalog,
		Ingest:   service.NewIngestService(log, blobs, catalog),
		Search:   itunes.New(cfg.SearchBaseURL, httpClient, log),
		Player:   service.NewPlayerService(log, catalog, res, transport, bus),
		cfg:      cfg,
	}
}

// Init brings up durable state in dependency order: blob medium, catalog
// document, in-memory catalog, then the reconciliation pass that drops local
// entries whose blobs vanished while the process was down.
func (a *Application) Init(ctx context.Context) error {
	if err := a.Blobs.Init(ctx); err != nil {
		return fmt.Errorf("initializing blob store: %w", err)
	}
	if err := a.KV.Load(); err != nil {
		return fmt.Errorf("loading catalog document: %w", err)
	}
	if err := a.Catalog.Load(ctx); err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	a.Catalog.Reconcile(ctx)
	return nil
}

// Close shuts the application down in reverse order. The catalog close
// performs a final flush so no debounced mutation is lost.
func (a *Application) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(a.Player.Close())
	keep(a.Catalog.Close())
	keep(a.Resolver.Close())
	keep(a.Bus.Close())
	return firstErr
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
