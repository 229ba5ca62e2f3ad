package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// Message is one entry of a session transcript. It is never mutated once appended.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp

	// ContentType is "text" for user input, "diagnosis" for a completed
	// assistant turn and "error" when the turn failed.
	ContentType string
	ReplyTo     *MessageID
}

// Session owns one append-only transcript.
type Session struct {
	ID        SessionID
	UserID    UserID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	Title string
	// PanelEnabled runs the consensus panel after each successful turn.
	PanelEnabled bool
}

// ConsensusRound is one Challenge/Checklist iteration of the doctor panel.
// Rounds only live for the duration of a single panel run.
type ConsensusRound struct {
	Iteration  int
	Hypothesis string
	Challenge  string
	Checklist  string
}

// Passage is a knowledge snippet returned by a lookup.
type Passage struct {
	Text   string
	Source Provenance
	Score  float64
}

// TurnEvent is published after every completed turn.
type TurnEvent struct {
	SessionID       SessionID  `json:"session_id"`
	UserID          UserID     `json:"user_id"`
	UserMessageID   MessageID  `json:"user_message_id"`
	ReplyMessageID  MessageID  `json:"reply_message_id"`
	Failed          bool       `json:"failed"`
	Provenance      Provenance `json:"provenance,omitempty"`
	LookupCount     int        `json:"lookup_count"`
	ConsensusRounds int        `json:"consensus_rounds"`
	CompletedAt     Timestamp  `json:"completed_at"`
}
