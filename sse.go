package gochat

import (
	"bufio"
	"bytes"
	"io"
)

// doneSentinel is the reserved payload marking the logical end of a
// streamed response. It is matched before any JSON decoding.
const doneSentinel = "[DONE]"

// EventSource yields the raw payload strings of a streamed response,
// one per call. Recv returns io.EOF at the natural end of the sequence
// and any other error on transport failure. The sequence is finite,
// non-restartable, and single-consumer.
type EventSource interface {
	Recv() (string, error)
	Close() error
}

var dataPrefix = []byte("data:")

// sseEventSource reads server-sent events off an HTTP response body,
// surfacing the payload of every data field. Comment lines and other
// SSE fields are skipped.
type sseEventSource struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func newSSEEventSource(body io.ReadCloser) *sseEventSource {
	scanner := bufio.NewScanner(body)
	// Single deltas are small, but error payloads and usage chunks can
	// run long.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &sseEventSource{
		body:    body,
		scanner: scanner,
	}
}

func (s *sseEventSource) Recv() (string, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		return string(bytes.TrimSpace(line[len(dataPrefix):])), nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *sseEventSource) Close() error {
	return s.body.Close()
}
