package services

import "context"

// SessionStateReader is the narrow read-only port onto session state owned
// by the surrounding dialogue engine. The small-talk pipeline only ever
// reads these flags; it never mutates them.
type SessionStateReader interface {
	// HasActiveConversationalAgent reports whether a multi-turn skill is
	// mid-flow for the given conversation.
	HasActiveConversationalAgent(ctx context.Context, contextID string) (bool, error)

	// IsWaitingForClarification reports whether the conversation is waiting
	// for the user to answer a clarification question.
	IsWaitingForClarification(ctx context.Context, contextID string) (bool, error)
}
