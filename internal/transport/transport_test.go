package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRateLimitedTransport_RetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Equal(t, "payload", string(body))
		if calls.Add(1) == 1 {
			w.Header().Set("retry-after", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := &http.Client{Transport: WithRateLimiting(nil, zap.NewNop())}
	resp, err := client.Post(server.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, calls.Load())
}

func TestRateLimitedTransport_NoRetryAfterHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := &http.Client{Transport: WithRateLimiting(nil, nil)}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, 3*time.Second, ParseRetryAfter("3"))
	require.Zero(t, ParseRetryAfter(""))
	require.Zero(t, ParseRetryAfter("soon"))
	require.Equal(t, maxRetryAfter, ParseRetryAfter("86400"))

	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	wait := ParseRetryAfter(future)
	require.Greater(t, wait, time.Duration(0))
	require.LessOrEqual(t, wait, 10*time.Second)
}

type notRetryable struct{}

func (notRetryable) Error() string   { return "bad request" }
func (notRetryable) Retryable() bool { return false }

func TestDo(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{MaxRetries: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		got, err := Do(ctx, policy, nil, func(ctx context.Context) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("transient")
			}
			return "done", nil
		})
		require.NoError(t, err)
		require.Equal(t, "done", got)
		require.Equal(t, 3, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		_, err := Do(ctx, policy, nil, func(ctx context.Context) (int, error) {
			attempts++
			return 0, errors.New("still failing")
		})
		require.EqualError(t, err, "still failing")
		require.Equal(t, 3, attempts)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		attempts := 0
		sentinel := errors.New("fatal")
		_, err := Do(ctx, policy, nil, func(ctx context.Context) (int, error) {
			attempts++
			return 0, Permanent(sentinel)
		})
		require.ErrorIs(t, err, sentinel)
		require.Equal(t, 1, attempts)
	})

	t.Run("non-retryable errors stop immediately", func(t *testing.T) {
		attempts := 0
		_, err := Do(ctx, policy, nil, func(ctx context.Context) (int, error) {
			attempts++
			return 0, notRetryable{}
		})
		require.Error(t, err)
		require.Equal(t, 1, attempts)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Do(cctx, RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}, nil, func(ctx context.Context) (int, error) {
			return 0, errors.New("transient")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	require.GreaterOrEqual(t, p.backoff(0), time.Second)
	require.LessOrEqual(t, p.backoff(0), 1250*time.Millisecond)
	require.GreaterOrEqual(t, p.backoff(5), 3*time.Second)
	require.LessOrEqual(t, p.backoff(5), 3750*time.Millisecond)
}
