// Package throttle paces and retries HTTP calls to remote model providers.
//
// Each adapter owns one Limiter. Do waits on the limiter before every
// attempt and retries transient failures (network errors, 429 and 5xx)
// with exponential backoff, honouring Retry-After when the server sends it.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff bounds.
const (
	baseDelay = 200 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// Limiter is a token bucket with an optional server-imposed pause.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewLimiter creates a limiter. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request may be sent.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return l.limiter.Wait(ctx)
}

// Pause holds every caller back for d.
func (l *Limiter) Pause(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := time.Now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// StatusError is a non-2xx response that was not retried, or that was
// still failing when retries ran out.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Client sends requests through a Limiter with retries.
type Client struct {
	HTTP       *http.Client
	Limiter    *Limiter
	Provider   string
	MaxRetries int
}

// Do sends the request built by newReq, retrying transient failures.
// newReq is called once per attempt so bodies can be replayed.
// On success the caller owns the response body.
func (c *Client) Do(ctx context.Context, newReq func(context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("send request: %w", err)
			if attempt < c.MaxRetries {
				if err := Sleep(ctx, RetryDelay(attempt)); err != nil {
					return nil, err
				}
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		lastErr = &StatusError{Provider: c.Provider, StatusCode: resp.StatusCode, Body: string(body)}

		if !Retryable(resp.StatusCode) || attempt == c.MaxRetries {
			break
		}

		delay := RetryDelay(attempt)
		if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			delay = ra
			if c.Limiter != nil {
				c.Limiter.Pause(ra)
			}
		}
		if err := Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, lastErr
}

// RetryDelay returns the backoff before attempt+1.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		return maxDelay
	}
	d := baseDelay << attempt
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if d > maxDelay {
		d = maxDelay
	}
	return d, true
}
