package itunes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodix-app/melodix/internal/logger"
)

const cannedResponse = `{
	"resultCount": 3,
	"results": [
		{
			"trackId": 1440857781,
			"trackName": "Bohemian Rhapsody",
			"artistName": "Queen",
			"collectionName": "A Night at the Opera",
			"trackTimeMillis": 354320,
			"artworkUrl100": "https://example.com/art1.jpg",
			"previewUrl": "https://example.com/preview1.m4a"
		},
		{
			"trackId": 2,
			"trackName": "No Preview Available",
			"artistName": "Someone"
		},
		{
			"trackId": 3,
			"trackName": "Another Song",
			"artistName": "Someone Else",
			"trackTimeMillis": 30000,
			"previewUrl": "https://example.com/preview3.m4a"
		}
	]
}`

func TestClientSearch(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"term":   q.Get("term"),
			"media":  q.Get("media"),
			"entity": q.Get("entity"),
			"limit":  q.Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cannedResponse))
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), logger.NewTestLogger())
	results, err := client.Search(context.Background(), "queen", 10)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"term":   "queen",
		"media":  "music",
		"entity": "song",
		"limit":  "10",
	}, gotQuery)

	// The entry without a preview URL is dropped.
	require.Len(t, results, 2)
	first := results[0]
	assert.Equal(t, "itunes_1440857781", first.ID)
	assert.Equal(t, "Bohemian Rhapsody", first.Name)
	assert.Equal(t, "Queen", first.Artist)
	assert.Equal(t, "A Night at the Opera", first.Album)
	assert.Equal(t, 354320*time.Millisecond, first.Duration)
	assert.Equal(t, "https://example.com/preview1.m4a", first.AudioURL)
	assert.Equal(t, "itunes", first.Provider)
}

func TestClientSearchDefaultLimit(t *testing.T) {
	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"resultCount":0,"results":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), logger.NewTestLogger())
	results, err := client.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, "25", gotLimit)
}

func TestClientSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), logger.NewTestLogger())
	_, err := client.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}

func TestClientSearchBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{truncated"))
	}))
	defer server.Close()

	client := New(server.URL, server.Client(), logger.NewTestLogger())
	_, err := client.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}
