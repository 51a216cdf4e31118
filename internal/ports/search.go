package ports

import (
	"context"

	"github.com/melodix-app/melodix/internal/domain"
)

// SearchProvider is an external, best-effort source of streamable tracks.
// The core does not retry provider failures: a failed search yields zero
// results plus the error, surfaced to the caller.
type SearchProvider interface {
	// Search returns up to limit results for the query.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}
