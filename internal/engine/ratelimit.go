package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// limitedClient throttles calls to the wrapped ModelClient.
type limitedClient struct {
	inner   ModelClient
	limiter *rate.Limiter
}

// RateLimited wraps mc so that at most perSecond requests are started per
// second, with a burst of one. A non-positive rate disables throttling.
func RateLimited(mc ModelClient, perSecond float64) ModelClient {
	if perSecond <= 0 {
		return mc
	}
	return &limitedClient{inner: mc, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (c *limitedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Complete(ctx, req)
}
