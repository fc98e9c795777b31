package models

import "time"

// Receipt tells a sender that one of their messages moved to State.
type Receipt struct {
	MessageID      string        `json:"messageId"`
	ConversationID string        `json:"conversationId"`
	State          DeliveryState `json:"status"`
	UserID         string        `json:"userId"` // who received or read it
	At             time.Time     `json:"at"`
}

type DeletedEvent struct {
	MessageID      string      `json:"messageId"`
	ConversationID string      `json:"conversationId"`
	Content        string      `json:"content"`
	Kind           ContentKind `json:"kind"`
}

type TypingEvent struct {
	UserID    string `json:"userId"`
	ChatID    string `json:"chatId"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}
