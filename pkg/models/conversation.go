package models

// ConversationRole identifies the author of a conversation turn.
type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
	RoleSystem    ConversationRole = "system"
)

// ConversationMessage is one turn of prior conversation, supplied read-only
// by the caller. The pipeline uses history for query rewriting and prompt
// context; it does not own conversation storage.
type ConversationMessage struct {
	Role    ConversationRole `json:"role"`
	Content string           `json:"content"`
}
