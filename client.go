package gochat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shaharia-lab/gochat/observability"
)

const (
	chatCompletionsEndpoint = "chat/completions"

	defaultAPIURL  = "https://api.openai.com/v1/"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 300 * time.Second
)

// Auth holds the API credentials. Set exactly one field.
type Auth struct {
	// Token is sent as "Authorization: Bearer {token}".
	Token string
	// APIKey is sent as "api-key: {key}" (Azure flavor).
	APIKey string
}

func (a Auth) headers() http.Header {
	headers := http.Header{}
	if a.Token != "" {
		headers.Set("Authorization", "Bearer "+a.Token)
	}
	if a.APIKey != "" {
		headers.Set("api-key", a.APIKey)
	}
	return headers
}

// Config holds configuration for ChatClient.
type Config struct {
	// Auth is the API credential.
	Auth Auth
	// APIURL is the base API URL. Defaults to the OpenAI endpoint.
	APIURL string
	// APIVersion is the api-version query parameter used by Azure
	// endpoints.
	APIVersion string
	// Flavor selects the request shape for reasoning options.
	// Defaults to FlavorOpenAI.
	Flavor APIFlavor
	// Model is the model ID. You likely need to include the version
	// date. Defaults to gpt-4o-mini.
	Model string
	// SystemMessage initializes the model. Empty disables it.
	SystemMessage string
	// ReasoningEffort is passed to the API as is. Typical values are
	// "minimal", "low", "medium", and "high".
	ReasoningEffort string
	// ReasoningBudget is the reasoning budget in tokens. Only
	// supported by the OpenRouter flavor; takes precedence over
	// ReasoningEffort.
	ReasoningBudget int64
	// Verbosity of the answers. Typical values are "low", "medium",
	// and "high".
	Verbosity string
	// MinHistoryTokens keeps at least that many tokens of recent turns
	// in the conversation context, but no more than one turn above the
	// threshold. Zero disables the bound.
	MinHistoryTokens int
	// MaxHistoryTokens caps the conversation context. Zero disables
	// the bound.
	MaxHistoryTokens int
	// TokenCounter measures turn costs. Required only when a history
	// bound is set; when nil a tiktoken counter is created.
	TokenCounter TokenCounter
	// HTTPClient is the HTTP client to use. A shared client may be
	// injected; by default a fresh one is created.
	HTTPClient *http.Client
	// Timeout bounds each HTTP request. Defaults to 300s.
	Timeout time.Duration
	// RequestsPerMinute throttles outgoing requests client-side. Zero
	// disables throttling.
	RequestsPerMinute int
	// History records session transcripts when set.
	History SessionStore
	// Logger receives diagnostics. Defaults to a NullLogger.
	Logger observability.Logger
}

// ChatClient is a chatbot API client. It owns the conversation context
// and extends it after every successful completion. A ChatClient must
// not be used by more than one in-flight request at a time.
type ChatClient struct {
	httpClient *http.Client
	endpoint   string
	headers    http.Header
	timeout    time.Duration
	limiter    *rate.Limiter

	model           string
	flavor          APIFlavor
	reasoningEffort string
	reasoningBudget int64
	verbosity       string

	conversation *Conversation
	counter      TokenCounter

	history   SessionStore
	sessionID string

	logger observability.Logger
}

// NewChatClient creates a new ChatClient from config.
func NewChatClient(config Config) (*ChatClient, error) {
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Logger == nil {
		config.Logger = observability.NewNullLogger()
	}
	if config.Flavor == "" {
		config.Flavor = FlavorOpenAI
	}
	if config.ReasoningBudget > 0 && config.Flavor != FlavorOpenRouter {
		return nil, NewConfigError("reasoning budget is only supported by the openrouter flavor")
	}

	endpoint, err := buildEndpoint(config.APIURL, config.APIVersion)
	if err != nil {
		return nil, NewConfigError("invalid API URL: " + err.Error())
	}

	counter := config.TokenCounter
	windowed := config.MinHistoryTokens > 0 || config.MaxHistoryTokens > 0
	if windowed && counter == nil {
		counter, err = NewTiktokenCounter()
		if err != nil {
			return nil, err
		}
	}

	systemTokens := 0
	if config.SystemMessage != "" && counter != nil {
		systemTokens, err = counter.CountTokens(config.SystemMessage)
		if err != nil {
			return nil, err
		}
	}

	client := &ChatClient{
		httpClient:      config.HTTPClient,
		endpoint:        endpoint,
		headers:         config.Auth.headers(),
		timeout:         config.Timeout,
		model:           config.Model,
		flavor:          config.Flavor,
		reasoningEffort: config.ReasoningEffort,
		reasoningBudget: config.ReasoningBudget,
		verbosity:       config.Verbosity,
		conversation: NewConversation(config.SystemMessage, systemTokens,
			config.MinHistoryTokens, config.MaxHistoryTokens),
		counter: counter,
		history: config.History,
		logger:  config.Logger,
	}

	if config.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}

	if client.history != nil {
		session, err := client.history.CreateSession(context.Background())
		if err != nil {
			return nil, NewConfigError("failed to create history session: " + err.Error())
		}
		client.sessionID = session.ID
	}

	return client, nil
}

func buildEndpoint(apiURL, apiVersion string) (string, error) {
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	endpoint, err := url.Parse(apiURL + chatCompletionsEndpoint)
	if err != nil {
		return "", err
	}

	if apiVersion != "" {
		query := endpoint.Query()
		query.Set("api-version", apiVersion)
		endpoint.RawQuery = query.Encode()
	}

	return endpoint.String(), nil
}

// Ask sends a plain text question and returns the response text,
// extending the chat context after a successful response.
func (c *ChatClient) Ask(ctx context.Context, request string) (string, error) {
	completion, err := c.RequestCompletion(ctx, TextContent(request))
	if err != nil {
		return "", err
	}
	return completion.Response, nil
}

// RequestCompletion requests a completion for a single request,
// extending the chat context after a successful response.
func (c *ChatClient) RequestCompletion(ctx context.Context, request Content) (Completion, error) {
	body := assembleRequest(c.conversation, request, c.options(false))

	response, err := c.send(ctx, body)
	if err != nil {
		return Completion{}, err
	}

	if len(response.Choices) == 0 {
		return Completion{}, NewMissingFieldError("choices")
	}

	message := response.Choices[0].Message
	if message.Content == "" {
		if message.Refusal != "" {
			return Completion{}, NewRefusalError(message.Refusal)
		}
		return Completion{}, NewMissingFieldError("content")
	}

	usage := response.Usage.toTokenUsage()
	c.extendConversation(request, message.Content)
	c.recordExchange(ctx, request, message.Content, usage)

	return Completion{
		Response:  message.Content,
		Reasoning: message.Reasoning,
		Usage:     usage,
	}, nil
}

// StreamCompletion requests a streamed completion. The returned stream
// extends the chat context exactly once, when the response completes or
// fails after partial content. Abandoning the stream early leaves the
// context untouched.
func (c *ChatClient) StreamCompletion(ctx context.Context, request Content) (*CompletionStream, error) {
	body := assembleRequest(c.conversation, request, c.options(true))

	source, err := c.sendStream(ctx, body)
	if err != nil {
		return nil, err
	}

	return newCompletionStream(source, func(response string) {
		c.extendConversation(request, response)
		c.recordExchange(ctx, request, response, TokenUsage{})
	}), nil
}

// Conversation exposes the client's conversation context. Intended for
// inspection; the context is owned by the client.
func (c *ChatClient) Conversation() *Conversation {
	return c.conversation
}

func (c *ChatClient) options(stream bool) requestOptions {
	return requestOptions{
		model:           c.model,
		flavor:          c.flavor,
		reasoningEffort: c.reasoningEffort,
		reasoningBudget: c.reasoningBudget,
		verbosity:       c.verbosity,
		stream:          stream,
	}
}

// extendConversation pushes a completed turn, measuring its token cost
// when a counter is configured.
func (c *ChatClient) extendConversation(request Content, response string) {
	cost := 0
	if c.counter != nil {
		requestTokens, err := c.counter.CountTokens(ContentText(request))
		if err == nil {
			var responseTokens int
			responseTokens, err = c.counter.CountTokens(response)
			cost = requestTokens + responseTokens
		}
		if err != nil {
			c.logger.WithErr(err).Warn("token count failed, falling back to estimate")
			requestTokens, _ := HeuristicCounter{}.CountTokens(ContentText(request))
			responseTokens, _ := HeuristicCounter{}.CountTokens(response)
			cost = requestTokens + responseTokens
		}
	}

	c.conversation.Push(request, response, cost)
}

// recordExchange journals a completed exchange into the session store.
// Failures are logged, never surfaced; the transcript is best-effort.
func (c *ChatClient) recordExchange(ctx context.Context, request Content, response string, usage TokenUsage) {
	if c.history == nil {
		return
	}

	now := time.Now()
	records := []ExchangeRecord{
		{Role: UserRole, Text: ContentText(request), GeneratedAt: now, InputTokens: usage.InputTokens},
		{Role: AssistantRole, Text: response, GeneratedAt: now, OutputTokens: usage.OutputTokens},
	}

	for _, record := range records {
		if err := c.history.AppendRecord(ctx, c.sessionID, record); err != nil {
			c.logger.WithErr(err).WithFields(map[string]interface{}{
				"session_id": c.sessionID,
			}).Warn("failed to record exchange")
			return
		}
	}
}

func (c *ChatClient) send(ctx context.Context, body *chatCompletionsRequest) (*chatCompletionsResponse, error) {
	httpResponse, err := c.do(ctx, body)
	if err != nil {
		return nil, err
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, apiRejection(httpResponse)
	}

	var response chatCompletionsResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil {
		return nil, NewDecodeError(err)
	}

	return &response, nil
}

func (c *ChatClient) sendStream(ctx context.Context, body *chatCompletionsRequest) (EventSource, error) {
	httpResponse, err := c.do(ctx, body)
	if err != nil {
		return nil, err
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		defer httpResponse.Body.Close()
		return nil, apiRejection(httpResponse)
	}

	return newSSEEventSource(httpResponse.Body), nil
}

func (c *ChatClient) do(ctx context.Context, body *chatCompletionsRequest) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewTransportError(err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewDecodeError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, NewTransportError(err)
	}

	for key, values := range c.headers {
		request.Header[key] = values
	}
	request.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(map[string]interface{}{
		"model":    body.Model,
		"messages": len(body.Messages),
		"stream":   body.Stream,
	}).Debug("sending chat completions request")

	response, err := c.httpClient.Do(request)
	if err != nil {
		cancel()
		return nil, NewTransportError(err)
	}

	// Tie the timeout to the response body so streamed reads are
	// covered as well.
	response.Body = &cancelReadCloser{ReadCloser: response.Body, cancel: cancel}
	return response, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}

// apiRejection extracts the error message best-effort from a
// non-success response body.
func apiRejection(response *http.Response) error {
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return NewAPIRejectionError(response.StatusCode, "<unreadable body>")
	}

	description := strings.TrimSpace(string(raw))
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		description = body.Error.Message
	}

	return NewAPIRejectionError(response.StatusCode, description)
}
