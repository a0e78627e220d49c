package chat

import "fmt"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single conversation turn. Slices of Message are chronological.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EvidenceItem is one question/answer pair returned by retrieval.
type EvidenceItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GroupedEvidence aggregates every distinct question that maps to one answer.
type GroupedEvidence struct {
	Answer    string   `json:"answer"`
	Questions []string `json:"questions"`
}

// Reply is the result of answering a conversation.
type Reply struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
}

// ValidateHistory checks that history can be answered: it must be non-empty,
// use only known roles, and end with the user's question.
func ValidateHistory(history []Message) error {
	if len(history) == 0 {
		return fmt.Errorf("%w: history is empty", ErrInvalidHistory)
	}
	for i, m := range history {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	if last := history[len(history)-1]; last.Role != RoleUser {
		return fmt.Errorf("%w: last message must come from the user, got %q", ErrInvalidHistory, last.Role)
	}
	return nil
}

// LastUserQuestion returns the content of the final message, which
// ValidateHistory guarantees is the user's question.
func LastUserQuestion(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}
