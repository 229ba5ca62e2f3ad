package domain

import "context"

// LLMClient is the reasoning engine the agents talk to.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest carries the system instructions, the visible transcript
// and the tools the engine may call.
type CompletionRequest struct {
	System   string
	Messages []*Message
	Tools    []ToolDescriptor

	// Steps are tool calls already executed in this turn, replayed to the
	// engine in order after Messages.
	Steps []ToolStep

	Temperature     *float32
	MaxOutputTokens int32
}

// Completion is the engine's answer: either text, tool calls, or both.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolDescriptor describes a callable tool with string parameters.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      []ToolParam
}

type ToolParam struct {
	Name        string
	Description string
	Required    bool
}

type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolStep pairs a tool call with the text it produced.
type ToolStep struct {
	Call   ToolCall
	Result string
}

// KnowledgeIndex is the trusted similarity index. It may return no passages.
type KnowledgeIndex interface {
	Query(ctx context.Context, text string, k int) ([]Passage, error)
}

// WebSearch returns a text summary for a free-text query.
type WebSearch interface {
	Search(ctx context.Context, query string) (string, error)
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID UserID, limit int) ([]*Session, error)
}

// MessageStore is the append-only transcript log.
// GetMessagesBySession returns the last `limit` messages in append order;
// limit <= 0 returns all of them.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessagesBySession(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
}

// EventPublisher announces completed turns to other services.
type EventPublisher interface {
	PublishTurn(ctx context.Context, evt TurnEvent) error
}
