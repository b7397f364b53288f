// Package gochat is a conversational client for OpenAI-compatible chat
// completion APIs (OpenAI, Azure, OpenRouter). It maintains a bounded
// conversation context under a token budget and decodes both plain and
// streamed completions, including reasoning output and usage accounting.
package gochat

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// SystemRole initializes the model's behavior.
	SystemRole Role = "system"
	// UserRole marks a request from the user.
	UserRole Role = "user"
	// AssistantRole marks a response generated by the model.
	AssistantRole Role = "assistant"
)

// Content is the payload of a request message: either plain text or an
// ordered list of parts for multi-modal requests. It is a closed union;
// the only implementations are TextContent and PartsContent.
type Content interface {
	isContent()
}

// TextContent is a plain text request.
type TextContent string

func (TextContent) isContent() {}

// PartsContent is a multi-part request mixing text with image and file
// references.
type PartsContent []ContentPart

func (PartsContent) isContent() {}

// ContentPart is one element of a multi-part request. Closed union of
// TextPart, ImagePart, and FilePart.
type ContentPart interface {
	isContentPart()
}

// TextPart is a text fragment of a multi-part request.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ImagePart references an image by URL or data URL.
type ImagePart struct {
	URL string
	// Detail controls image resolution: "low", "high", or "auto".
	Detail string
}

func (ImagePart) isContentPart() {}

// FilePart attaches a file by name and base64 data URL.
type FilePart struct {
	Filename string
	FileData string
}

func (FilePart) isContentPart() {}

// ContentText renders the textual portion of content. Image and file
// parts contribute nothing.
func ContentText(content Content) string {
	switch c := content.(type) {
	case TextContent:
		return string(c)
	case PartsContent:
		var sb strings.Builder
		for _, part := range c {
			if text, ok := part.(TextPart); ok {
				sb.WriteString(text.Text)
			}
		}
		return sb.String()
	}
	return ""
}

// Message is one role-tagged entry of a chat completion request.
type Message struct {
	Role    Role
	Content Content
}

type wirePart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *wireImageURL `json:"image_url,omitempty"`
	File     *wireFile     `json:"file,omitempty"`
}

type wireImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type wireFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

// MarshalJSON encodes the message in the chat completions wire shape:
// content is a bare string for text requests and an array of typed
// parts for multi-modal requests.
func (m Message) MarshalJSON() ([]byte, error) {
	content, err := marshalContent(m.Content)
	if err != nil {
		return nil, err
	}

	return json.Marshal(struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}{
		Role:    m.Role,
		Content: content,
	})
}

// UnmarshalJSON decodes the wire shape back into a Message. The inverse
// of MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.Role = wire.Role

	var text string
	if err := json.Unmarshal(wire.Content, &text); err == nil {
		m.Content = TextContent(text)
		return nil
	}

	var wireParts []wirePart
	if err := json.Unmarshal(wire.Content, &wireParts); err != nil {
		return err
	}

	parts := make(PartsContent, 0, len(wireParts))
	for _, part := range wireParts {
		switch {
		case part.ImageURL != nil:
			parts = append(parts, ImagePart{URL: part.ImageURL.URL, Detail: part.ImageURL.Detail})
		case part.File != nil:
			parts = append(parts, FilePart{Filename: part.File.Filename, FileData: part.File.FileData})
		default:
			parts = append(parts, TextPart{Text: part.Text})
		}
	}
	m.Content = parts
	return nil
}

func marshalContent(content Content) (json.RawMessage, error) {
	switch c := content.(type) {
	case TextContent:
		return json.Marshal(string(c))
	case PartsContent:
		parts := make([]wirePart, 0, len(c))
		for _, part := range c {
			switch p := part.(type) {
			case TextPart:
				parts = append(parts, wirePart{Type: "text", Text: p.Text})
			case ImagePart:
				parts = append(parts, wirePart{
					Type:     "image_url",
					ImageURL: &wireImageURL{URL: p.URL, Detail: p.Detail},
				})
			case FilePart:
				parts = append(parts, wirePart{
					Type: "file",
					File: &wireFile{Filename: p.Filename, FileData: p.FileData},
				})
			}
		}
		return json.Marshal(parts)
	}
	return json.Marshal("")
}

// TokenUsage reports the token accounting of one completion. Zero
// values mean the API did not report the corresponding detail.
type TokenUsage struct {
	// InputTokens is the number of prompt tokens consumed.
	InputTokens int
	// CachedInputTokens is the cached portion of the prompt tokens.
	CachedInputTokens int
	// OutputTokens is the number of generated tokens.
	OutputTokens int
	// ReasoningTokens is the portion of output spent on reasoning.
	ReasoningTokens int
}

// Completion is a fully generated response.
type Completion struct {
	// Response is the generated answer text.
	Response string
	// Reasoning holds the reasoning text, when the model returned any.
	Reasoning string
	// Usage is the token accounting reported by the API.
	Usage TokenUsage
}

// Delta is one incremental fragment of a streamed completion. Closed
// union of ReasoningDelta, ContentDelta, and UsageDelta.
type Delta interface {
	isDelta()
}

// ReasoningDelta is a fragment of reasoning text. Reasoning always
// precedes the answer.
type ReasoningDelta string

func (ReasoningDelta) isDelta() {}

// ContentDelta is a fragment of the answer text.
type ContentDelta string

func (ContentDelta) isDelta() {}

// UsageDelta carries the token accounting. It is the last semantic
// event of a stream before the done sentinel.
type UsageDelta TokenUsage

func (UsageDelta) isDelta() {}
