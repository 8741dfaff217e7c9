package safety

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/courtline/content-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func (m *mockClient) CreateBatch(ctx context.Context, req anthropic.BatchRequest) (*anthropic.BatchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.BatchResponse), args.Error(1)
}

func (m *mockClient) GetBatch(ctx context.Context, batchID string) (*anthropic.BatchResponse, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.BatchResponse), args.Error(1)
}

func (m *mockClient) GetBatchResults(ctx context.Context, batchID string) (anthropic.BatchResultIterator, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(anthropic.BatchResultIterator), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

func TestCheckTopicKeywordFastPath(t *testing.T) {
	client := &mockClient{}
	gate := NewGate(client, "haiku", DefaultTaxonomy())

	verdict, usage, err := gate.CheckTopic(context.Background(), "Best betting odds for pickleball tournaments", "pickleball betting")
	require.NoError(t, err)

	assert.False(t, verdict.Safe)
	assert.True(t, verdict.KeywordHit)
	assert.Contains(t, verdict.Categories, "gambling")
	// A substring hit is weaker evidence than a model verdict.
	assert.InDelta(t, 0.6, verdict.Confidence, 0.001)
	assert.Zero(t, usage.InputTokens)
	// The fast path must not spend tokens.
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestCheckTopicModelPass(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"safe": true, "categories": [], "reason": ""}`), nil)

	gate := NewGate(client, "haiku", DefaultTaxonomy())
	verdict, usage, err := gate.CheckTopic(context.Background(), "How to improve your dink shot", "dink shot tips")
	require.NoError(t, err)

	assert.True(t, verdict.Safe)
	assert.False(t, verdict.KeywordHit)
	assert.Equal(t, int64(100), usage.InputTokens)
}

func TestCheckTopicModelBlock(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"safe": false, "categories": ["medical_advice"], "reason": "injury treatment"}`), nil)

	gate := NewGate(client, "haiku", DefaultTaxonomy())
	verdict, _, err := gate.CheckTopic(context.Background(), "Recovering from tennis elbow", "elbow recovery")
	require.NoError(t, err)

	assert.False(t, verdict.Safe)
	assert.Contains(t, verdict.Categories, "medical_advice")
}

func TestClassifyFailsClosedOnGarbage(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("I think this topic is probably fine!"), nil)

	gate := NewGate(client, "haiku", DefaultTaxonomy())
	verdict, usage, err := gate.CheckTopic(context.Background(), "Paddle grip basics", "paddle grip")
	require.NoError(t, err)

	assert.False(t, verdict.Safe)
	assert.Equal(t, "safety verdict unparseable", verdict.Reason)
	assert.Equal(t, int64(100), usage.InputTokens)
}

func TestClassifyTransportError(t *testing.T) {
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	gate := NewGate(client, "haiku", DefaultTaxonomy())
	verdict, _, err := gate.CheckTopic(context.Background(), "Court shoes compared", "court shoes")

	assert.Error(t, err)
	assert.False(t, verdict.Safe)
}

func TestCheckContentTruncates(t *testing.T) {
	client := &mockClient{}
	var gotPrompt string
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		gotPrompt = req.Messages[0].Content
		return true
	})).Return(textResponse(`{"safe": true}`), nil)

	gate := NewGate(client, "haiku", DefaultTaxonomy(), WithMaxContentChars(100))
	// Three-byte runes ensure the 100-byte cut would land mid-rune if the
	// truncation ignored boundaries.
	long := strings.Repeat("→", 2000)
	verdict, _, err := gate.CheckContent(context.Background(), long)
	require.NoError(t, err)

	assert.True(t, verdict.Safe)
	assert.Less(t, len(gotPrompt), 1000)
	assert.True(t, utf8.ValidString(gotPrompt))
}

func TestCheckContentKeywordFastPath(t *testing.T) {
	client := &mockClient{}
	gate := NewGate(client, "haiku", DefaultTaxonomy())

	body := "Before the final, check the betting odds at your local sportsbook."
	verdict, usage, err := gate.CheckContent(context.Background(), body)
	require.NoError(t, err)

	assert.False(t, verdict.Safe)
	assert.True(t, verdict.KeywordHit)
	assert.Contains(t, verdict.Categories, "gambling")
	require.NotEmpty(t, verdict.Issues)
	assert.Equal(t, "gambling", verdict.Issues[0].Category)
	assert.InDelta(t, 0.6, verdict.Confidence, 0.001)
	assert.Zero(t, usage.InputTokens)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestDisabledGatePassesThrough(t *testing.T) {
	client := &mockClient{}
	gate := NewGate(client, "haiku", DefaultTaxonomy(), WithDisabled(true))

	verdict, _, err := gate.CheckTopic(context.Background(), "betting odds", "betting")
	require.NoError(t, err)
	assert.True(t, verdict.Safe)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestLoadTaxonomy(t *testing.T) {
	tax, err := LoadTaxonomy("")
	require.NoError(t, err)
	assert.NotEmpty(t, tax.Categories)

	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - name: custom
    keywords: ["forbidden phrase"]
`), 0644))

	tax, err = LoadTaxonomy(path)
	require.NoError(t, err)
	require.Len(t, tax.Categories, 1)
	assert.Equal(t, []string{"custom"}, tax.Match("a Forbidden Phrase appears"))
	assert.Empty(t, tax.Match("harmless"))

	_, err = LoadTaxonomy(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
