package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// batchCacheTTL is the cache lifetime for system prompts shared across a
// batch. A title batch can take most of an hour to drain, longer than the
// default five-minute cache window.
const batchCacheTTL = "1h"

// CachedSystem wraps a shared system prompt in a single block with a cache
// breakpoint, so every entry in a title batch reads the prompt at the
// cached-input rate instead of paying the full input price per entry.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{
		Text:         text,
		CacheControl: &CacheControl{TTL: batchCacheTTL},
	}}
}

// WarmCache issues one sequential request before a batch is submitted. The
// first request carrying a cache breakpoint pays the cache write; entries
// racing each other inside the batch would each miss and pay it again, so
// the warmer runs alone first. The response is a normal completion whose
// usage the caller should account for.
func WarmCache(ctx context.Context, client Client, req MessageRequest) (*MessageResponse, error) {
	resp, err := client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: cache warm request")
	}
	return resp, nil
}
