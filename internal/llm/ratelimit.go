package llm

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

type limitedClient struct {
	ChatClient
	limiter *rate.Limiter
}

// WithRateLimit wraps c so that at most rps requests per second are sent.
func WithRateLimit(c ChatClient, rps float64) ChatClient {
	return &limitedClient{ChatClient: c, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (l *limitedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.ChatClient.Complete(ctx, req)
}

// Close releases the wrapped client when it holds resources.
func (l *limitedClient) Close() error {
	if c, ok := l.ChatClient.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
