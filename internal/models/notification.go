package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeMessage      NotificationType = "message"
	NotificationTypeLike         NotificationType = "like"
	NotificationTypeComment      NotificationType = "comment"
	NotificationTypePostShare    NotificationType = "post_share"
	NotificationTypeCommentLike  NotificationType = "comment_like"
	NotificationTypeCommentReply NotificationType = "comment_reply"
	NotificationTypeFollow       NotificationType = "follow"
	NotificationTypeSystem       NotificationType = "system"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeMessage, NotificationTypeLike, NotificationTypeComment,
		NotificationTypePostShare, NotificationTypeCommentLike, NotificationTypeCommentReply,
		NotificationTypeFollow, NotificationTypeSystem:
		return true
	}
	return false
}

type Notification struct {
	ID        string           `gorm:"primaryKey;type:text" json:"id"`
	UserID    string           `gorm:"index;type:text;not null" json:"userId"` // Recipient
	ActorID   string           `gorm:"index;type:text" json:"actorId"`         // Who performed action
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	PostID    *string          `gorm:"type:text" json:"postId,omitempty"`
	CommentID *string          `gorm:"type:text" json:"commentId,omitempty"`
	ChatID    *string          `gorm:"type:text" json:"chatId,omitempty"`
	Message   string           `gorm:"type:text" json:"message"`
	IsRead    bool             `gorm:"default:false" json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return
}

// NotificationEvent is the outbound "notification" payload.
type NotificationEvent struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Sender    UserSummary      `json:"sender"`
	Message   string           `json:"message"`
	PostID    *string          `json:"postId,omitempty"`
	CommentID *string          `json:"commentId,omitempty"`
	ChatID    *string          `json:"chatId,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}
