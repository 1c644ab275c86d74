package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClient spaces out calls to an inner Client.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient allows requestsPerMinute calls per minute with a burst
// of one. A non-positive rate returns inner unchanged.
func NewRateLimitedClient(inner Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (c *RateLimitedClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Complete(ctx, messages)
}
