// Package store holds the durable records: messages (the source of truth for
// delivery state), notifications and the read-only user directory.
package store

import (
	"context"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
)

type Order int

const (
	Ascending Order = iota
	Descending
)

// MessageStore is the durable message record. Dependency failures surface as
// retryable errors; implementations never retry internally.
type MessageStore interface {
	Persist(ctx context.Context, m *models.Message) (string, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	ListConversation(ctx context.Context, userA, userB string, order Order) ([]models.Message, error)

	// UpdateDeliveryState applies a forward-only transition in one conditional
	// write. changed is false when the message was already at or past state.
	UpdateDeliveryState(ctx context.Context, id string, state models.DeliveryState) (changed bool, err error)

	// MarkDeleted tombstones the message. The original content is discarded.
	MarkDeleted(ctx context.Context, id string) (*models.Message, error)

	// ConversationHeads returns the newest message per partner, newest first,
	// with unread counts from userID's side.
	ConversationHeads(ctx context.Context, userID string) ([]models.ConversationHead, error)

	// UnreadFrom lists messages from sender that receiver has not read, oldest first.
	UnreadFrom(ctx context.Context, receiverID, senderID string) ([]models.Message, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	Get(ctx context.Context, id string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Directory is the read-only user lookup.
type Directory interface {
	Profiles(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
	Following(ctx context.Context, userID string) ([]string, error)
}
