package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// rateLimitedClient throttles CreateMessage calls. Batch submission and
// polling are infrequent enough that only the direct message path is gated.
type rateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimited wraps a client with a requests-per-second cap. A cap of
// zero or less returns the client unchanged.
func NewRateLimited(inner Client, rps float64) Client {
	if rps <= 0 {
		return inner
	}
	return &rateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *rateLimitedClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropic: rate limit wait")
	}
	return c.inner.CreateMessage(ctx, req)
}

func (c *rateLimitedClient) CreateBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	return c.inner.CreateBatch(ctx, req)
}

func (c *rateLimitedClient) GetBatch(ctx context.Context, batchID string) (*BatchResponse, error) {
	return c.inner.GetBatch(ctx, batchID)
}

func (c *rateLimitedClient) GetBatchResults(ctx context.Context, batchID string) (BatchResultIterator, error) {
	return c.inner.GetBatchResults(ctx, batchID)
}
