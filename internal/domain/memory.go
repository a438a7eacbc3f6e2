package domain

// Chat roles understood by providers. Only user and assistant turns are persisted.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Persistable reports whether the turn may be stored in conversation memory.
func (t Turn) Persistable() bool {
	return t.Role == RoleUser || t.Role == RoleAssistant
}
