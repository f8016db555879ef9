// Package protocol defines the conversation message types shared by the
// provider dispatcher, the session store, and the chat driver.
package protocol

import "time"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether s names a known role.
func IsValid(s string) bool {
	switch Role(s) {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single entry in a conversation. Messages are ordered and
// append-only within a session; the persisted write order is the
// conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a Message with the given role and content, stamped
// with the current time.
//
// Example:
//
//	msg := protocol.NewMessage(protocol.RoleUser, "Hello, world!")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// InitMessages creates a single-element message slice from a role and
// content string. Convenience wrapper for initializing a conversation
// context from a system prompt.
func InitMessages(role Role, content string) []Message {
	return []Message{NewMessage(role, content)}
}
