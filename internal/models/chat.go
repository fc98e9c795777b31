package models

import "time"

// ChatSummary is one row of a user's chat list. It is a cached projection of the
// message store and is never authoritative.
type ChatSummary struct {
	PartnerID   string `json:"partnerId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`

	// Nil when the two users have never exchanged a message
	LastMessageID       *string      `json:"lastMessageId"`
	LastMessage         *string      `json:"lastMessage"`
	LastMessageKind     *ContentKind `json:"lastMessageKind"`
	LastMessageSenderID *string      `json:"lastMessageSenderId"`
	LastMessageAt       *time.Time   `json:"lastMessageAt"`

	UnreadCount int  `json:"unreadCount"`
	IsTyping    bool `json:"isTyping"`
	IsOnline    bool `json:"isOnline"`
}

// SetLastMessage copies the preview fields from m.
func (s *ChatSummary) SetLastMessage(m Message) {
	id, content, kind, sender, at := m.ID, m.Content, m.Kind, m.SenderID, m.CreatedAt
	s.LastMessageID = &id
	s.LastMessage = &content
	s.LastMessageKind = &kind
	s.LastMessageSenderID = &sender
	s.LastMessageAt = &at
}

// ApplyProfile copies display fields from the directory.
func (s *ChatSummary) ApplyProfile(u UserSummary) {
	s.Username = u.Username
	s.DisplayName = u.DisplayName
	s.Avatar = u.Avatar
}
