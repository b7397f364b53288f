package gochat

import "math"

// Turn is one request/response pair with its token cost.
type Turn struct {
	Request   Content
	Response  string
	TokenCost int
}

// Conversation stores the system message and the ordered log of turns,
// and enforces the token-bounded retention window. It is exclusively
// owned by its client; it has no internal locking and must not be
// shared across concurrent requests.
type Conversation struct {
	systemMessage string
	systemTokens  int
	turns         []Turn
	minTokens     int
	maxTokens     int
}

// NewConversation creates a conversation with an optional system
// message (empty string disables it) and optional retention bounds
// (zero disables the corresponding bound).
//
// The window keeps at least minTokens worth of recent turns but no more
// than one turn above that threshold, and under no circumstances more
// than maxTokens. This way the latest round of messages is always kept,
// even when it alone exceeds maxTokens.
func NewConversation(systemMessage string, systemTokens, minTokens, maxTokens int) *Conversation {
	return &Conversation{
		systemMessage: systemMessage,
		systemTokens:  systemTokens,
		minTokens:     minTokens,
		maxTokens:     maxTokens,
	}
}

// WithRequest returns the message sequence for a new request: the
// system message if present, then the user/assistant pair of every
// retained turn, then the new user message. Pure read; the conversation
// is not mutated.
func (c *Conversation) WithRequest(request Content) []Message {
	messages := make([]Message, 0, 2*len(c.turns)+2)

	if c.systemMessage != "" {
		messages = append(messages, Message{Role: SystemRole, Content: TextContent(c.systemMessage)})
	}

	for _, turn := range c.turns {
		messages = append(messages,
			Message{Role: UserRole, Content: turn.Request},
			Message{Role: AssistantRole, Content: TextContent(turn.Response)},
		)
	}

	return append(messages, Message{Role: UserRole, Content: request})
}

// Push appends a turn and re-applies the retention window, discarding a
// prefix of the oldest turns as needed.
func (c *Conversation) Push(request Content, response string, tokenCost int) {
	c.turns = append(c.turns, Turn{Request: request, Response: response, TokenCost: tokenCost})
	c.keepRecent()
}

// Tokens is the size of the context: system message tokens plus the sum
// of all retained turn costs.
func (c *Conversation) Tokens() int {
	total := c.systemTokens
	for _, turn := range c.turns {
		total += turn.TokenCost
	}
	return total
}

// Len returns the number of retained turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// keepRecent discards old turns to keep the context within the bounds.
//
// Scanning from the newest turn backward and accumulating cost on top
// of the system message tokens, an older turn is retained only while
// the total so far is still below minTokens and including it does not
// push the total past maxTokens. The newest turn is always retained;
// only it may transiently exceed maxTokens on its own.
func (c *Conversation) keepRecent() {
	if c.minTokens == 0 && c.maxTokens == 0 {
		return
	}

	minTokens := c.minTokens
	if minTokens == 0 {
		minTokens = math.MaxInt
	}
	maxTokens := c.maxTokens
	if maxTokens == 0 {
		maxTokens = math.MaxInt
	}

	keep := 0
	total := c.systemTokens
	for i := len(c.turns) - 1; i >= 0; i-- {
		cost := c.turns[i].TokenCost
		if keep == 0 {
			total += cost
			keep++
			continue
		}
		if total >= minTokens || total+cost > maxTokens {
			break
		}
		total += cost
		keep++
	}

	c.turns = c.turns[len(c.turns)-keep:]
}
