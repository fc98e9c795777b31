package models

import (
	"sort"
	"strconv"
	"time"
)

// ContentKind is what a message body holds
type ContentKind string

const (
	KindText    ContentKind = "text"
	KindImage   ContentKind = "image"
	KindVideo   ContentKind = "video"
	KindAudio   ContentKind = "audio"
	KindFile    ContentKind = "file"
	KindDeleted ContentKind = "deleted"
)

// TombstoneContent replaces the body of a soft-deleted message.
const TombstoneContent = "This message was deleted"

// IsValid reports whether a client may send messages of this kind.
func (k ContentKind) IsValid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio, KindFile:
		return true
	}
	return false
}

// IsMedia reports whether the content is a URL to uploaded media.
func (k ContentKind) IsMedia() bool {
	return k.IsValid() && k != KindText
}

// DeliveryState: sent -> delivered -> read, or failed
type DeliveryState string

const (
	StateSent      DeliveryState = "sent"
	StateDelivered DeliveryState = "delivered"
	StateRead      DeliveryState = "read"
	StateFailed    DeliveryState = "failed"
)

func (s DeliveryState) rank() int {
	switch s {
	case StateSent:
		return 1
	case StateDelivered:
		return 2
	case StateRead:
		return 3
	}
	return 0
}

// CanTransition reports whether from may advance to to. Equal or lower states
// are not transitions; failed is terminal.
func CanTransition(from, to DeliveryState) bool {
	if from == StateFailed {
		return false
	}
	if to == StateFailed {
		return from == StateSent
	}
	return to.rank() > from.rank() && from.rank() > 0
}

// Predecessors lists the states from which to is reachable.
func Predecessors(to DeliveryState) []DeliveryState {
	var out []DeliveryState
	for _, s := range []DeliveryState{StateSent, StateDelivered, StateRead} {
		if CanTransition(s, to) {
			out = append(out, s)
		}
	}
	return out
}

// ConversationID is order-independent: both participants derive the same key.
// The lower id is length-prefixed so no pair of ids can collide with another.
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strconv.Itoa(len(ids[0])) + ":" + ids[0] + ":" + ids[1]
}

// Message represents a direct message between users
type Message struct {
	ID             string        `gorm:"primaryKey;type:text" bson:"_id" json:"id"`
	SenderID       string        `gorm:"index;type:text;not null" bson:"senderId" json:"senderId"`
	ReceiverID     string        `gorm:"index;type:text;not null" bson:"receiverId" json:"receiverId"`
	ConversationID string        `gorm:"index;type:text;not null" bson:"conversationId" json:"conversationId"`
	Content        string        `gorm:"type:text;not null" bson:"content" json:"content"`
	Kind           ContentKind   `gorm:"type:text;default:'text';not null" bson:"kind" json:"kind"`
	DeliveryState  DeliveryState `gorm:"type:text;default:'sent';not null" bson:"deliveryState" json:"deliveryState"`
	IsRead         bool          `gorm:"default:false" bson:"isRead" json:"isRead"`
	IsDeleted      bool          `gorm:"default:false" bson:"isDeleted" json:"isDeleted"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
	DeliveredAt    *time.Time    `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	ReadAt         *time.Time    `bson:"readAt,omitempty" json:"readAt,omitempty"`
}

// PartnerOf returns the other participant from userID's point of view.
func (m *Message) PartnerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Ref is enough of a message to locate all of its cached copies.
func (m *Message) Ref() MessageRef {
	return MessageRef{ID: m.ID, SenderID: m.SenderID, ReceiverID: m.ReceiverID}
}

// Tombstone applies the irreversible soft-delete rewrite.
func (m *Message) Tombstone() {
	m.Content = TombstoneContent
	m.Kind = KindDeleted
	m.IsDeleted = true
}

// MessageRef identifies a message and its two participants.
type MessageRef struct {
	ID         string
	SenderID   string
	ReceiverID string
}

// ConversationHead is the newest message shared with one partner, plus how many
// messages from that partner the owner has not read.
type ConversationHead struct {
	PartnerID   string
	LastMessage Message
	UnreadCount int
}
