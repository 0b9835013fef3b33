// Package ai turns bug descriptions into code fixes using a large language model.
package ai

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/telemetry"
	"github.com/cchalm/codebot/internal/transport"
)

// Completer sends a single prompt to a model and returns its text output
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// APIError is returned when a model provider rejects a request or fails to answer
type APIError struct {
	Provider   string
	StatusCode int // 0 when the request never received an HTTP response
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request might succeed. Client errors other than rate limiting won't
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// RetryingCompleter retries a Completer according to a bounded backoff policy and traces each completion
type RetryingCompleter struct {
	inner  Completer
	name   string
	policy transport.RetryPolicy
	logger *zap.Logger
}

// NewRetryingCompleter wraps inner. name identifies the provider in traces and logs
func NewRetryingCompleter(inner Completer, name string, policy transport.RetryPolicy, logger *zap.Logger) *RetryingCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingCompleter{
		inner:  inner,
		name:   name,
		policy: policy,
		logger: logger.Named("ai").With(zap.String("provider", name)),
	}
}

func (rc *RetryingCompleter) Complete(ctx context.Context, prompt string) (_ string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "llm.complete",
		attribute.String("llm.provider", rc.name),
		attribute.Int("llm.prompt_bytes", len(prompt)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	output, err := transport.Do(ctx, rc.policy, rc.logger, func(ctx context.Context) (string, error) {
		return rc.inner.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.output_bytes", len(output)))
	return output, nil
}
