package gochat

import (
	"errors"
	"io"
	"strings"
)

// streamState tracks the progress of one in-flight streamed response.
// The machine only ever moves forward; terminated is absorbing.
type streamState int

const (
	waitingForData streamState = iota
	receivingReasoning
	receivingContent
	waitingForDone
	waitingForEndOfStream
	terminated
)

func (s streamState) String() string {
	switch s {
	case waitingForData:
		return "waiting_for_data"
	case receivingReasoning:
		return "receiving_reasoning"
	case receivingContent:
		return "receiving_content"
	case waitingForDone:
		return "waiting_for_done"
	case waitingForEndOfStream:
		return "waiting_for_end_of_stream"
	case terminated:
		return "terminated"
	}
	return "unknown"
}

// CompletionStream drives the incremental decoding of one streamed
// response. Iterate with Next/Current and check Err after Next returns
// false:
//
//	stream, err := client.StreamCompletion(ctx, request)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for stream.Next() {
//	    switch delta := stream.Current().(type) {
//	    case gochat.ReasoningDelta:
//	        ...
//	    case gochat.ContentDelta:
//	        fmt.Print(delta)
//	    case gochat.UsageDelta:
//	        ...
//	    }
//	}
//	if err := stream.Err(); err != nil {
//	    return err
//	}
//
// Buffered answer text is flushed into the conversation at most once
// per stream, at completion or on the first error after partial
// content. Closing the stream before completion forfeits the partial
// turn; the conversation is left untouched.
type CompletionStream struct {
	source   EventSource
	finalize func(response string)

	state   streamState
	partial strings.Builder
	flushed bool
	current Delta
	err     error
}

func newCompletionStream(source EventSource, finalize func(response string)) *CompletionStream {
	return &CompletionStream{
		source:   source,
		finalize: finalize,
		state:    waitingForData,
	}
}

// Next advances the stream to the next delta. It returns false when the
// stream is finished, either cleanly or with the error reported by Err.
func (s *CompletionStream) Next() bool {
	for s.state != terminated {
		payload, err := s.source.Recv()

		if errors.Is(err, io.EOF) {
			s.flush()
			s.state = terminated
			return false
		}
		if err != nil {
			if s.state == waitingForEndOfStream {
				// The response already completed at the sentinel; a
				// late transport error carries no information worth
				// surfacing.
				s.state = terminated
				return false
			}
			s.fail(NewTransportError(err))
			return false
		}

		if payload == doneSentinel {
			s.flush()
			s.state = waitingForEndOfStream
			continue
		}

		if s.state == waitingForEndOfStream {
			// Payloads after the sentinel are discarded.
			continue
		}

		delta, err := decodeDelta(payload)
		if err != nil {
			s.fail(err)
			return false
		}
		if delta == nil {
			continue
		}

		if !s.apply(delta) {
			return false
		}

		s.current = delta
		return true
	}

	return false
}

// apply runs the transition table for one delta. It returns false when
// the delta arrived in an invalid state, after recording the protocol
// violation.
func (s *CompletionStream) apply(delta Delta) bool {
	switch d := delta.(type) {
	case ReasoningDelta:
		switch s.state {
		case waitingForData, receivingReasoning:
			s.state = receivingReasoning
		case receivingContent:
			s.fail(NewProtocolError("reasoning delta after content"))
			return false
		case waitingForDone:
			s.fail(NewProtocolError("reasoning delta after usage"))
			return false
		}

	case ContentDelta:
		switch s.state {
		case waitingForData, receivingReasoning:
			s.state = receivingContent
			s.partial.WriteString(string(d))
		case receivingContent:
			s.partial.WriteString(string(d))
		case waitingForDone:
			s.fail(NewProtocolError("content delta after usage"))
			return false
		}

	case UsageDelta:
		switch s.state {
		case waitingForData, receivingReasoning:
			s.state = waitingForDone
		case receivingContent:
			s.flush()
			s.state = waitingForDone
		case waitingForDone:
			s.fail(NewProtocolError("duplicate usage"))
			return false
		}
	}

	return true
}

// fail flushes buffered content and records the terminal error. An
// already-buffered partial answer is never lost.
func (s *CompletionStream) fail(err error) {
	s.flush()
	s.state = terminated
	s.err = err
}

func (s *CompletionStream) flush() {
	if s.flushed || s.partial.Len() == 0 {
		return
	}
	s.flushed = true
	s.finalize(s.partial.String())
}

// Current returns the delta produced by the last successful Next.
func (s *CompletionStream) Current() Delta {
	return s.current
}

// Err returns the terminal error, if the stream ended with one.
func (s *CompletionStream) Err() error {
	return s.err
}

// Close releases the underlying event source. Closing before the stream
// completes abandons the response without touching the conversation.
func (s *CompletionStream) Close() error {
	s.state = terminated
	return s.source.Close()
}
