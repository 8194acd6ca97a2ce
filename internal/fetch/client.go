// Package fetch wraps outbound HTTP with the retry policy the upstream
// API expects: only 429 responses are retried, honoring Retry-After.
package fetch

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	http        *http.Client
	maxAttempts int
	logger      *zap.Logger
	sleep       func(context.Context, time.Duration) error
}

func New(httpClient *http.Client, maxAttempts int, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Client{
		http:        httpClient,
		maxAttempts: maxAttempts,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// WithSleep replaces the backoff sleeper. Test hook.
func (c *Client) WithSleep(sleep func(context.Context, time.Duration) error) *Client {
	c.sleep = sleep
	return c
}

// Do issues the request, retrying on 429 up to the attempt budget and then
// making one final unthrottled attempt whose result is returned as-is. Any
// non-429 response, success or failure, is returned immediately; the caller
// still owns status checking. Network errors are not retried.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		attemptReq, err := rewind(req)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		delay := retryDelay(resp, attempt)
		_ = resp.Body.Close()
		if c.logger != nil {
			c.logger.Warn("rate limited",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
		}
		if err := c.sleep(req.Context(), delay); err != nil {
			return nil, err
		}
	}

	finalReq, err := rewind(req)
	if err != nil {
		return nil, err
	}
	return c.http.Do(finalReq)
}

// retryDelay prefers the server's Retry-After hint (seconds) over the
// exponential fallback of 2^attempt seconds.
func retryDelay(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

// rewind produces a request safe to send again. Bodies built by
// http.NewRequest from byte readers carry GetBody, so replay is cheap.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
