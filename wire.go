package gochat

// APIFlavor selects the request shape for reasoning options.
type APIFlavor string

const (
	// FlavorOpenAI targets the OpenAI API, including Azure deployments.
	FlavorOpenAI APIFlavor = "openai"
	// FlavorOpenRouter targets the OpenRouter API.
	FlavorOpenRouter APIFlavor = "openrouter"
)

// requestOptions are the per-request knobs attached to an assembled
// request body.
type requestOptions struct {
	model           string
	flavor          APIFlavor
	reasoningEffort string
	reasoningBudget int64
	verbosity       string
	stream          bool
}

// chatCompletionsRequest is the chat completions request body. Only the
// fields this client drives are modeled; everything else keeps its API
// default.
type chatCompletionsRequest struct {
	Model           string            `json:"model"`
	Messages        []Message         `json:"messages"`
	ReasoningEffort string            `json:"reasoning_effort,omitempty"`
	Reasoning       *reasoningOptions `json:"reasoning,omitempty"`
	Verbosity       string            `json:"verbosity,omitempty"`
	Stream          bool              `json:"stream,omitempty"`
	StreamOptions   *streamOptions    `json:"stream_options,omitempty"`
}

// reasoningOptions is the OpenRouter reasoning object. Effort and
// MaxTokens are mutually exclusive.
type reasoningOptions struct {
	Effort    string `json:"effort,omitempty"`
	MaxTokens int64  `json:"max_tokens,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// assembleRequest projects the conversation plus a new request into a
// request body. Stateless; no side effects on the conversation.
func assembleRequest(conversation *Conversation, request Content, opts requestOptions) *chatCompletionsRequest {
	body := &chatCompletionsRequest{
		Model:     opts.model,
		Messages:  conversation.WithRequest(request),
		Verbosity: opts.verbosity,
		Stream:    opts.stream,
	}

	switch opts.flavor {
	case FlavorOpenRouter:
		if opts.reasoningBudget > 0 {
			body.Reasoning = &reasoningOptions{MaxTokens: opts.reasoningBudget}
		} else if opts.reasoningEffort != "" {
			body.Reasoning = &reasoningOptions{Effort: opts.reasoningEffort}
		}
	default:
		body.ReasoningEffort = opts.reasoningEffort
	}

	if opts.stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	return body
}

// chatCompletionsResponse is the non-streaming chat completions
// response.
type chatCompletionsResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   usagePayload       `json:"usage"`
}

type completionChoice struct {
	FinishReason string           `json:"finish_reason"`
	Index        int              `json:"index"`
	Message      assistantPayload `json:"message"`
}

type assistantPayload struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
	Refusal   string `json:"refusal"`
}

type usagePayload struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	PromptTokensDetails     *promptTokensDetails     `json:"prompt_tokens_details"`
	CompletionTokensDetails *completionTokensDetails `json:"completion_tokens_details"`
}

type promptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type completionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

func (u usagePayload) toTokenUsage() TokenUsage {
	usage := TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
	}
	if u.PromptTokensDetails != nil {
		usage.CachedInputTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return usage
}

// errorBody is the best-effort shape of an error response body.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
