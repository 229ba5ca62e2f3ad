package domain

import "time"

type SessionID string
type UserID string
type MessageID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Provenance tags where a piece of evidence came from.
type Provenance string

const (
	ProvenanceTrusted Provenance = "trusted" // curated local knowledge base
	ProvenanceWeb     Provenance = "web"     // open web search
	ProvenanceNone    Provenance = "none"    // nothing usable was found
)

// Content types stored on assistant messages.
const (
	ContentTypeText      = "text"
	ContentTypeDiagnosis = "diagnosis"
	ContentTypeError     = "error"
)

type Timestamp = time.Time
