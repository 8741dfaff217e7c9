package unsplash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPhotos_Success(t *testing.T) {
	t.Parallel()

	want := SearchResponse{
		Total: 1,
		Results: []Photo{{
			ID:             "abc123",
			AltDescription: "two players at the kitchen line",
			URLs:           PhotoURLs{Regular: "https://images.unsplash.com/abc123?w=1080"},
			Links:          PhotoLinks{DownloadLocation: "https://api.unsplash.com/photos/abc123/download"},
			User:           User{Name: "Jordan Photographer", Username: "jordanphoto"},
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.Header.Get("Accept-Version"))
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "pickleball serve", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("per_page"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.SearchPhotos(context.Background(), "pickleball serve",
		WithPerPage(3), WithOrientation("landscape"))

	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "abc123", got.Results[0].ID)
	assert.Equal(t, "Jordan Photographer", got.Results[0].User.Name)
}

func TestSearchPhotos_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SearchResponse{Total: 0})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := client.SearchPhotos(context.Background(), "pickleball")

	require.NoError(t, err)
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchPhotos_AuthError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":["OAuth error: The access token is invalid"]}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.SearchPhotos(context.Background(), "pickleball")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTrackDownload(t *testing.T) {
	t.Parallel()

	var tracked atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracked.Add(1)
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"url": "https://images.unsplash.com/abc123"})
	}))
	defer srv.Close()

	client := NewClient("test-key")
	err := client.TrackDownload(context.Background(), srv.URL+"/photos/abc123/download")

	require.NoError(t, err)
	assert.Equal(t, int32(1), tracked.Load())
}

func TestTrackDownload_EmptyLocationIsNoop(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key")
	assert.NoError(t, client.TrackDownload(context.Background(), ""))
}
