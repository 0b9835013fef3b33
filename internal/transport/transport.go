// Package transport holds the HTTP plumbing shared by the outbound API clients.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// maxRetryAfter caps how long a single retry-after header can make us wait
const maxRetryAfter = 2 * time.Minute

type RateLimitedTransport struct {
	base   http.RoundTripper
	logger *zap.Logger
}

// WithRateLimiting wraps base so that 429 responses carrying a retry-after header are retried after the requested
// delay
func WithRateLimiting(base http.RoundTripper, logger *zap.Logger) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitedTransport{base: base, logger: logger}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Preserve the original request body for retries
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		err = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close request body: %w", err)
		}
	}

	for {
		// Restore the request body for each attempt
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return resp, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		waitDuration := ParseRetryAfter(resp.Header.Get("retry-after"))
		if waitDuration <= 0 {
			return resp, nil
		}

		// Close the response body to free resources
		err = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to close response body: %w", err)
		}

		t.logger.Info("rate limited, waiting",
			zap.String("host", req.URL.Host),
			zap.Duration("wait", waitDuration),
		)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(waitDuration):
		}
	}
}

// ParseRetryAfter interprets a retry-after header given either in seconds or as an HTTP date. Unparseable values
// yield zero
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	var wait time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		wait = time.Duration(seconds) * time.Second
	} else if retryTime, err := http.ParseTime(value); err == nil {
		wait = time.Until(retryTime)
	}

	if wait > maxRetryAfter {
		wait = maxRetryAfter
	}
	return wait
}
