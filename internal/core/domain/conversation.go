package domain

import "time"

// Role identifies who produced a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation history.
type Turn struct {
	// Role is user or assistant.
	Role Role `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Seq is the zero-based position in the history.
	Seq int `json:"seq"`

	// CreatedAt is when the turn was appended.
	CreatedAt time.Time `json:"created_at"`
}

// Message is a chat message sent to a generation model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationState is derived from the history length.
type ConversationState string

// Conversation states.
const (
	// StateFresh means no turns have been recorded.
	StateFresh ConversationState = "fresh"

	// StateActive means at least one question has been answered.
	StateActive ConversationState = "active"
)

// ConversationStrategy selects how follow-up questions are retrieved.
type ConversationStrategy string

// Available strategies.
const (
	// StrategyContextInjection retrieves with the literal question and
	// relies on history in the prompt.
	StrategyContextInjection ConversationStrategy = "context_injection"

	// StrategyReformulation rewrites the question into a standalone
	// query before retrieval.
	StrategyReformulation ConversationStrategy = "reformulation"
)

// IsValid returns true if the strategy is recognised.
func (s ConversationStrategy) IsValid() bool {
	return s == StrategyContextInjection || s == StrategyReformulation
}

// String returns the string representation.
func (s ConversationStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s ConversationStrategy) Description() string {
	switch s {
	case StrategyContextInjection:
		return "Context injection (history in prompt)"
	case StrategyReformulation:
		return "Reformulation (standalone query before retrieval)"
	default:
		return unknownDescription
	}
}

// AllStrategies returns every supported conversation strategy.
func AllStrategies() []ConversationStrategy {
	return []ConversationStrategy{StrategyContextInjection, StrategyReformulation}
}

// ReformulatorKind selects the reformulation implementation.
type ReformulatorKind string

// Available reformulators.
const (
	ReformulatorHeuristic ReformulatorKind = "heuristic"
	ReformulatorLLM       ReformulatorKind = "llm"
)

// IsValid returns true if the reformulator is recognised.
func (k ReformulatorKind) IsValid() bool {
	return k == ReformulatorHeuristic || k == ReformulatorLLM
}
