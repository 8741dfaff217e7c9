// Package dalle provides a minimal client for the OpenAI image generation
// API, used as the fallback when no suitable stock photo exists.
package dalle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the image generation operations.
type Client interface {
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Image, error)
}

// Image is one generated image.
type Image struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt"`
}

// GenerateOption configures a generation request.
type GenerateOption func(*generateOpts)

type generateOpts struct {
	model   string
	size    string
	quality string
}

// WithModel overrides the image model (default dall-e-3).
func WithModel(model string) GenerateOption {
	return func(o *generateOpts) {
		o.model = model
	}
}

// WithSize sets the output size (default 1792x1024, a wide hero format).
func WithSize(size string) GenerateOption {
	return func(o *generateOpts) {
		o.size = size
	}
}

// WithQuality sets "standard" or "hd" (default standard).
func WithQuality(quality string) GenerateOption {
	return func(o *generateOpts) {
		o.quality = quality
	}
}

// Option configures the client.
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new image generation client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		// Image generation regularly takes tens of seconds.
		http: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type generateResponse struct {
	Data []Image `json:"data"`
}

func (c *httpClient) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Image, error) {
	o := &generateOpts{
		model:   "dall-e-3",
		size:    "1792x1024",
		quality: "standard",
	}
	for _, opt := range opts {
		opt(o)
	}

	payload, err := json.Marshal(generateRequest{
		Model:   o.model,
		Prompt:  prompt,
		N:       1,
		Size:    o.size,
		Quality: o.quality,
	})
	if err != nil {
		return nil, eris.Wrap(err, "dalle: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "dalle: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dalle: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dalle: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("dalle: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "dalle: unmarshal response")
	}
	if len(result.Data) == 0 {
		return nil, eris.New("dalle: empty response")
	}
	return &result.Data[0], nil
}
