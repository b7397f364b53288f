package gochat

import "encoding/json"

// streamChunk is the wire shape of one streamed chat completions event.
type streamChunk struct {
	ID      string         `json:"id"`
	Choices []streamChoice `json:"choices"`
	Usage   *usagePayload  `json:"usage"`
}

type streamChoice struct {
	Delta        deltaPayload `json:"delta"`
	FinishReason string       `json:"finish_reason"`
}

type deltaPayload struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
	Refusal   string `json:"refusal"`
}

// decodeDelta parses one raw event payload into at most one semantic
// delta. A nil, nil return means the payload carried nothing of
// interest (role-only opener, bare finish_reason marker, empty delta)
// and must be skipped. An explicit refusal in the delta is surfaced as
// a Refusal error, malformed JSON as a Decode error.
func decodeDelta(payload string) (Delta, error) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, NewDecodeError(err)
	}

	// The usage chunk closes the response and arrives with an empty
	// choices list when stream_options.include_usage is set.
	if chunk.Usage != nil {
		return UsageDelta(chunk.Usage.toTokenUsage()), nil
	}

	if len(chunk.Choices) == 0 {
		return nil, nil
	}

	delta := chunk.Choices[0].Delta
	switch {
	case delta.Refusal != "":
		return nil, NewRefusalError(delta.Refusal)
	case delta.Reasoning != "":
		return ReasoningDelta(delta.Reasoning), nil
	case delta.Content != "":
		return ContentDelta(delta.Content), nil
	}

	return nil, nil
}
