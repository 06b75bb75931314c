// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verkada

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/netutil"
)

// RetryPolicy bounds automatic retries on the external surface.
type RetryPolicy struct {
	// MaxAttempts caps attempts per request, the first one included.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry. Each later
	// retry waits twice as long as the one before.
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait, including a server-supplied
	// Retry-After.
	MaxBackoff time.Duration

	// Statuses are the HTTP statuses that trigger a retry.
	Statuses []int

	// Methods are the HTTP methods that may be retried.
	Methods []string
}

// DefaultRetryPolicy is four attempts with 0.5s, 1s, 2s between them,
// on 429 and the common 5xx statuses, for GET, POST, and DELETE.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     2 * time.Minute,
		Statuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}
}

func (p RetryPolicy) methodAllowed(method string) bool {
	return slices.Contains(p.Methods, method)
}

func (p RetryPolicy) statusRetryable(status int) bool {
	return slices.Contains(p.Statuses, status)
}

// backoff returns the wait before retry number retry (1-based).
// Retry-After is honored only on 429 and 503 replies.
func (p RetryPolicy) backoff(retry, status int, header http.Header, now time.Time) time.Duration {
	delay := p.InitialBackoff << (retry - 1)
	if header != nil && (status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable) {
		if after, ok := retryAfter(header.Get("Retry-After"), now); ok {
			delay = after
		}
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}
	return delay
}

// retryAfter parses a Retry-After value in seconds or as an HTTP date.
func retryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := at.Sub(now); wait > 0 {
			return wait, true
		}
		return 0, true
	}
	return 0, false
}

// retrier sends a request under a RetryPolicy.
type retrier struct {
	policy     RetryPolicy
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// exchange is one completed HTTP round trip.
type exchange struct {
	status int
	header http.Header
	body   []byte
}

// do sends method target with body and headers, retrying as the policy
// allows. The final reply is returned whatever its status; err is set
// only when no reply was obtained.
func (r *retrier) do(ctx context.Context, method, target string, body []byte, header http.Header) (exchange, error) {
	attempts := max(r.policy.MaxAttempts, 1)
	if !r.policy.methodAllowed(method) {
		attempts = 1
	}

	var last exchange
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		last, lastErr = r.once(ctx, method, target, body, header)

		retryable := lastErr != nil || r.policy.statusRetryable(last.status)
		if !retryable || attempt == attempts || ctx.Err() != nil {
			break
		}

		delay := r.policy.backoff(attempt, last.status, last.header, r.clock.Now())
		r.logger.Warn("retrying external request",
			"method", method,
			"url", target,
			"status", last.status,
			"error", lastErr,
			"attempt", attempt,
			"delay", delay,
		)
		select {
		case <-r.clock.After(delay):
		case <-ctx.Done():
			return exchange{}, ctx.Err()
		}
	}
	return last, lastErr
}

func (r *retrier) once(ctx context.Context, method, target string, body []byte, header http.Header) (exchange, error) {
	var request *http.Request
	var err error
	if body != nil {
		request, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	} else {
		request, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return exchange{}, fmt.Errorf("verkada: creating request: %w", err)
	}
	for name, values := range header {
		request.Header[name] = values
	}

	response, err := r.httpClient.Do(request)
	if err != nil {
		return exchange{}, fmt.Errorf("verkada: %s %s: %w", method, target, err)
	}
	defer response.Body.Close()

	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return exchange{}, fmt.Errorf("verkada: %s %s: %w", method, target, err)
	}
	return exchange{status: response.StatusCode, header: response.Header, body: data}, nil
}
