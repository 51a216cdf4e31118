// Package itunes implements the search provider against the iTunes Search API.
// The API is treated as an external, best-effort source: no retries, no
// backoff; a failed request surfaces as zero results plus the error.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/melodix-app/melodix/internal/domain"
	"github.com/melodix-app/melodix/internal/ports"
)

// DefaultBaseURL is the public iTunes search endpoint.
const DefaultBaseURL = "https://itunes.apple.com/search"

// Client queries the iTunes Search API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a search client. Pass an empty baseURL for the public endpoint
// and a nil client for http.DefaultClient.
func New(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{baseURL: baseURL, client: client, logger: logger}
}

type searchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []searchResult `json:"results"`
}

type searchResult struct {
	TrackID          int64  `json:"trackId"`
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	TrackTimeMillis  int64  `json:"trackTimeMillis"`
	ArtworkURL100    string `json:"artworkUrl100"`
	PreviewURL       string `json:"previewUrl"`
}

// Search returns up to limit playable results for the query. Results without a
// preview URL are skipped since nothing can be streamed from them.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 25
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searching %q: unexpected status %d", query, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(body.Results))
	for _, r := range body.Results {
		if r.PreviewURL == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:         fmt.Sprintf("itunes_%d", r.TrackID),
			Name:       r.TrackName,
			Artist:     r.ArtistName,
			Album:      r.CollectionName,
			Duration:   time.Duration(r.TrackTimeMillis) * time.Millisecond,
			ArtworkURL: r.ArtworkURL100,
			AudioURL:   r.PreviewURL,
			Provider:   "itunes",
		})
	}

	c.logger.Debug("search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))
	return results, nil
}

// Verify interface implementation
var _ ports.SearchProvider = (*Client)(nil)
