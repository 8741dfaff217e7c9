package dalle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "dall-e-3", req.Model)
		assert.Equal(t, 1, req.N)
		assert.Equal(t, "1792x1024", req.Size)
		assert.Contains(t, req.Prompt, "pickleball")

		json.NewEncoder(w).Encode(generateResponse{Data: []Image{{
			URL:           "https://oaidalleapi.example/img.png",
			RevisedPrompt: "A sunlit outdoor pickleball court",
		}}})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	img, err := client.Generate(context.Background(), "pickleball court at golden hour")

	require.NoError(t, err)
	assert.Equal(t, "https://oaidalleapi.example/img.png", img.URL)
	assert.NotEmpty(t, img.RevisedPrompt)
}

func TestGenerate_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Your prompt was rejected"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Generate(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestGenerate_EmptyData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Generate(context.Background(), "anything")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}
