package chat

import (
	"strings"

	"collegehub_ai/pkg/ai"
)

// Turn is one role-tagged message in a conversation, ordered chronologically.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// FormatConversation maps the client-supplied history into provider messages,
// preserving order, and appends the new message as the final user turn.
// Roles match case-insensitively: "user" stays a user turn, anything else
// becomes an assistant turn. Content is not validated; empty strings pass
// through.
func FormatConversation(history []Turn, message string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+1)
	for _, turn := range history {
		role := "assistant"
		if strings.EqualFold(turn.Role, "user") {
			role = "user"
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Text})
	}
	return append(messages, ai.Message{Role: "user", Content: message})
}
