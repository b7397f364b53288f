package gochat

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvent struct {
	payload string
	err     error
}

// fakeEventSource replays a scripted sequence of raw events, ending
// with io.EOF.
type fakeEventSource struct {
	events []fakeEvent
	index  int
	closed bool
}

func (f *fakeEventSource) Recv() (string, error) {
	if f.index >= len(f.events) {
		return "", io.EOF
	}
	event := f.events[f.index]
	f.index++
	return event.payload, event.err
}

func (f *fakeEventSource) Close() error {
	f.closed = true
	return nil
}

func contentEvent(text string) fakeEvent {
	return fakeEvent{payload: `{"choices":[{"delta":{"content":"` + text + `"}}]}`}
}

func reasoningEvent(text string) fakeEvent {
	return fakeEvent{payload: `{"choices":[{"delta":{"reasoning":"` + text + `"}}]}`}
}

var usageEvent = fakeEvent{payload: `{"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":7,"total_tokens":12}}`}

var doneEvent = fakeEvent{payload: doneSentinel}

// collect drains the stream and returns all yielded deltas.
func collect(stream *CompletionStream) []Delta {
	var deltas []Delta
	for stream.Next() {
		deltas = append(deltas, stream.Current())
	}
	return deltas
}

type recordedFlush struct {
	responses []string
}

func (r *recordedFlush) finalize(response string) {
	r.responses = append(r.responses, response)
}

func TestStreamContentThenUsageThenDone(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("Hi"),
		contentEvent(" there"),
		usageEvent,
		doneEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{
		ContentDelta("Hi"),
		ContentDelta(" there"),
		UsageDelta(TokenUsage{InputTokens: 5, OutputTokens: 7}),
	}, deltas)

	// Finalized exactly once, via the usage record.
	assert.Equal(t, []string{"Hi there"}, flush.responses)
}

func TestStreamReasoningBeforeContent(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		reasoningEvent("let me think"),
		reasoningEvent(" harder"),
		contentEvent("answer"),
		usageEvent,
		doneEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{
		ReasoningDelta("let me think"),
		ReasoningDelta(" harder"),
		ContentDelta("answer"),
		UsageDelta(TokenUsage{InputTokens: 5, OutputTokens: 7}),
	}, deltas)
	assert.Equal(t, []string{"answer"}, flush.responses)
}

func TestStreamReasoningAfterContentIsViolation(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("x"),
		reasoningEvent("y"),
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	assert.Equal(t, []Delta{ContentDelta("x")}, deltas)
	require.Error(t, stream.Err())
	assert.Equal(t, ErrorTypeProtocol, ErrorTypeOf(stream.Err()))

	// The partial answer is flushed before the stream terminates.
	assert.Equal(t, []string{"x"}, flush.responses)
}

func TestStreamReasoningAfterUsageIsViolation(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		usageEvent,
		reasoningEvent("late"),
	}}
	stream := newCompletionStream(source, (&recordedFlush{}).finalize)

	deltas := collect(stream)

	assert.Len(t, deltas, 1)
	assert.Equal(t, ErrorTypeProtocol, ErrorTypeOf(stream.Err()))
}

func TestStreamContentAfterUsageIsViolation(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("a"),
		usageEvent,
		contentEvent("b"),
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	assert.Len(t, deltas, 2)
	assert.Equal(t, ErrorTypeProtocol, ErrorTypeOf(stream.Err()))

	// Flushed by the usage record, not again by the violation.
	assert.Equal(t, []string{"a"}, flush.responses)
}

func TestStreamDuplicateUsageIsViolation(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		usageEvent,
		usageEvent,
	}}
	stream := newCompletionStream(source, (&recordedFlush{}).finalize)

	deltas := collect(stream)

	assert.Len(t, deltas, 1)
	assert.Equal(t, ErrorTypeProtocol, ErrorTypeOf(stream.Err()))
}

func TestStreamSentinelWithoutUsageFlushes(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("partial"),
		doneEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{ContentDelta("partial")}, deltas)
	assert.Equal(t, []string{"partial"}, flush.responses)
}

func TestStreamNaturalEndWithoutSentinelFlushes(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("cut off"),
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{ContentDelta("cut off")}, deltas)
	assert.Equal(t, []string{"cut off"}, flush.responses)
}

func TestStreamTransportErrorFlushesAndTerminates(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("so far"),
		{err: errors.New("connection reset")},
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	assert.Equal(t, []Delta{ContentDelta("so far")}, deltas)
	assert.Equal(t, ErrorTypeTransport, ErrorTypeOf(stream.Err()))
	assert.Equal(t, []string{"so far"}, flush.responses)
}

func TestStreamDecodeErrorFlushesAndTerminates(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("good"),
		{payload: `{"broken`},
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	assert.Equal(t, []Delta{ContentDelta("good")}, deltas)
	assert.Equal(t, ErrorTypeDecode, ErrorTypeOf(stream.Err()))
	assert.Equal(t, []string{"good"}, flush.responses)
}

func TestStreamRefusalTerminates(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		{payload: `{"choices":[{"delta":{"refusal":"no"}}]}`},
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	assert.Empty(t, deltas)
	assert.Equal(t, ErrorTypeRefusal, ErrorTypeOf(stream.Err()))
	assert.Empty(t, flush.responses)
}

func TestStreamPayloadsAfterSentinelDiscarded(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("done deal"),
		doneEvent,
		contentEvent("ghost"),
		usageEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{ContentDelta("done deal")}, deltas)
	assert.Equal(t, []string{"done deal"}, flush.responses)
}

func TestStreamTransportErrorAfterSentinelDiscarded(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("complete"),
		doneEvent,
		{err: errors.New("late failure")},
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{ContentDelta("complete")}, deltas)
	assert.Equal(t, []string{"complete"}, flush.responses)
}

func TestStreamIgnoredPayloadsYieldNothing(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		{payload: `{"choices":[{"delta":{"role":"assistant"}}]}`},
		contentEvent("hi"),
		{payload: `{"choices":[{"delta":{},"finish_reason":"stop"}]}`},
		usageEvent,
		doneEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Equal(t, []Delta{
		ContentDelta("hi"),
		UsageDelta(TokenUsage{InputTokens: 5, OutputTokens: 7}),
	}, deltas)
}

func TestStreamCloseBeforeCompletionForfeitsPartial(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		contentEvent("abandoned"),
		contentEvent(" midway"),
		usageEvent,
		doneEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	require.True(t, stream.Next())
	require.NoError(t, stream.Close())

	assert.True(t, source.closed)
	assert.False(t, stream.Next())
	assert.NoError(t, stream.Err())

	// Cancellation never writes the partial turn.
	assert.Empty(t, flush.responses)
}

func TestStreamUsageWithoutContentDoesNotFlush(t *testing.T) {
	source := &fakeEventSource{events: []fakeEvent{
		usageEvent,
		doneEvent,
	}}
	flush := &recordedFlush{}
	stream := newCompletionStream(source, flush.finalize)

	deltas := collect(stream)

	require.NoError(t, stream.Err())
	assert.Len(t, deltas, 1)
	assert.Empty(t, flush.responses)
}
