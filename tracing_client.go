package gochat

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shaharia-lab/gochat/observability"
)

// Completer is the operation surface shared by ChatClient and its
// decorators.
type Completer interface {
	Ask(ctx context.Context, request string) (string, error)
	RequestCompletion(ctx context.Context, request Content) (Completion, error)
	StreamCompletion(ctx context.Context, request Content) (*CompletionStream, error)
}

// TracingCompleter implements the decorator pattern for tracing.
type TracingCompleter struct {
	inner Completer
}

// NewTracingCompleter creates a new tracing decorator for any Completer.
func NewTracingCompleter(inner Completer) *TracingCompleter {
	return &TracingCompleter{
		inner: inner,
	}
}

// Ask implements Completer with added tracing.
func (t *TracingCompleter) Ask(ctx context.Context, request string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "ChatClient.Ask")
	defer span.End()

	response, err := t.inner.Ask(ctx, request)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("response_length", len(response)))
	return response, nil
}

// RequestCompletion implements Completer with added tracing.
func (t *TracingCompleter) RequestCompletion(ctx context.Context, request Content) (Completion, error) {
	ctx, span := observability.StartSpan(ctx, "ChatClient.RequestCompletion")
	defer span.End()

	startTime := time.Now()

	completion, err := t.inner.RequestCompletion(ctx, request)
	if err != nil {
		span.RecordError(err)
		return Completion{}, err
	}

	span.SetAttributes(
		attribute.Int("input_tokens", completion.Usage.InputTokens),
		attribute.Int("cached_input_tokens", completion.Usage.CachedInputTokens),
		attribute.Int("output_tokens", completion.Usage.OutputTokens),
		attribute.Int("reasoning_tokens", completion.Usage.ReasoningTokens),
		attribute.Float64("completion_time", time.Since(startTime).Seconds()),
	)

	return completion, nil
}

// StreamCompletion implements Completer with added tracing. The span
// covers stream setup; iteration happens on the caller's schedule.
func (t *TracingCompleter) StreamCompletion(ctx context.Context, request Content) (*CompletionStream, error) {
	ctx, span := observability.StartSpan(ctx, "ChatClient.StreamCompletion")
	defer span.End()

	stream, err := t.inner.StreamCompletion(ctx, request)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return stream, nil
}
