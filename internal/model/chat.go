package model

// Chat roles used in multi-turn question answering.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged turn of a Q&A session. Turns are kept
// only as short-lived prompt context, never retrieved or indexed.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
