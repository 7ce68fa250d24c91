package domain

import "strings"

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one message of conversation history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a question scoped to one owning entity.
type ChatRequest struct {
	OwnerID  string     `json:"ownerId"`
	Question string     `json:"question"`
	History  []ChatTurn `json:"history,omitempty"`
}

// NormalizedQuestion lowercases and collapses whitespace for cache keys.
func (r ChatRequest) NormalizedQuestion() string {
	return NormalizeQuery(r.Question)
}

// NormalizeQuery lowercases, trims and collapses internal whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// ChatEventType discriminates streamed chat events.
type ChatEventType string

// Chat event types. A stream ends with exactly one complete or error event.
const (
	ChatEventContent  ChatEventType = "content"
	ChatEventComplete ChatEventType = "complete"
	ChatEventError    ChatEventType = "error"
)

// ChatEvent is one server-streamed chat event.
type ChatEvent struct {
	Type      ChatEventType `json:"type"`
	Content   string        `json:"content,omitempty"`
	Response  string        `json:"response,omitempty"`
	Citations []Citation    `json:"citations,omitempty"`
	Sources   []SourceRef   `json:"sources,omitempty"`
	Error     string        `json:"error,omitempty"`
	Cached    bool          `json:"cached,omitempty"`
	Usage     *Usage        `json:"usage,omitempty"`
}

// IsTerminal returns true for complete and error events.
func (e ChatEvent) IsTerminal() bool {
	return e.Type == ChatEventComplete || e.Type == ChatEventError
}

// Span is a byte range in the generated answer.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Citation maps spans of the answer back to a source document.
type Citation struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Spans      []Span `json:"spans"`
}

// SourceRef describes a chunk that was supplied to the generation call.
type SourceRef struct {
	DocumentID string       `json:"documentId"`
	Title      string       `json:"title"`
	Type       DocumentType `json:"type"`
	ChunkIndex int          `json:"chunkIndex"`
	Score      float64      `json:"score"`
	Preview    string       `json:"preview"`
}

// ChatAnswer is the cached, completed form of a chat response.
type ChatAnswer struct {
	Response  string      `json:"response"`
	Citations []Citation  `json:"citations"`
	Sources   []SourceRef `json:"sources"`
	Usage     Usage       `json:"usage"`
}
