// Package unsplash provides a client for the Unsplash photo search API.
package unsplash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Unsplash operations used for hero image curation.
type Client interface {
	// SearchPhotos searches the Unsplash library.
	SearchPhotos(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
	// TrackDownload reports a download event, required by the Unsplash API
	// guidelines whenever a photo is used.
	TrackDownload(ctx context.Context, downloadLocation string) error
}

// SearchResponse is the parsed photo search response.
type SearchResponse struct {
	Total   int     `json:"total"`
	Results []Photo `json:"results"`
}

// Photo is a single Unsplash photo.
type Photo struct {
	ID             string     `json:"id"`
	Description    string     `json:"description"`
	AltDescription string     `json:"alt_description"`
	URLs           PhotoURLs  `json:"urls"`
	Links          PhotoLinks `json:"links"`
	User           User       `json:"user"`
}

// PhotoURLs holds the rendered sizes of a photo.
type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
}

// PhotoLinks holds the API links for a photo.
type PhotoLinks struct {
	HTML             string `json:"html"`
	Download         string `json:"download"`
	DownloadLocation string `json:"download_location"`
}

// User is the photographer, needed for attribution.
type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// SearchOption configures a photo search.
type SearchOption func(*searchOpts)

type searchOpts struct {
	perPage     int
	orientation string
}

// WithPerPage sets the page size (default 5).
func WithPerPage(n int) SearchOption {
	return func(o *searchOpts) {
		o.perPage = n
	}
}

// WithOrientation restricts results to "landscape", "portrait", or "squarish".
func WithOrientation(orientation string) SearchOption {
	return func(o *searchOpts) {
		o.orientation = orientation
	}
}

// Option configures the Unsplash client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	accessKey string
	baseURL   string
	http      *http.Client
}

// NewClient creates a new Unsplash client.
func NewClient(accessKey string, opts ...Option) Client {
	c := &httpClient{
		accessKey: accessKey,
		baseURL:   "https://api.unsplash.com",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a GET with exponential backoff on transient failures.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "unsplash: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("unsplash: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) SearchPhotos(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{perPage: 5}
	for _, opt := range opts {
		opt(so)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", so.perPage))
	if so.orientation != "" {
		params.Set("orientation", so.orientation)
	}
	reqURL := fmt.Sprintf("%s/search/photos?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "unsplash: create request")
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "unsplash: search request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("unsplash: unexpected status %d: %s", statusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "unsplash: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) TrackDownload(ctx context.Context, downloadLocation string) error {
	if downloadLocation == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadLocation, nil)
	if err != nil {
		return eris.Wrap(err, "unsplash: create download request")
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return eris.Wrap(err, "unsplash: track download failed")
	}
	if statusCode != http.StatusOK {
		return eris.Errorf("unsplash: track download status %d: %s", statusCode, string(body))
	}
	return nil
}
