package services

import (
	"context"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/cache"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
)

const notificationPageSize = 50

// Pusher delivers events to live sessions on this node.
type Pusher interface {
	EmitToUser(userID, event string, payload interface{}) bool
	HasSession(userID string) bool
}

// Presence is the read side of the presence registry.
type Presence interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	ListOnline(ctx context.Context, ids []string) (map[string]bool, error)
}

type NotifyRequest struct {
	ActorID   string
	TargetID  string
	Type      models.NotificationType
	PostID    *string
	CommentID *string
	ChatID    *string
	Preview   string
}

type Notifier struct {
	store     store.NotificationStore
	directory store.Directory
	cache     *cache.DeliveryCache
	presence  Presence
	pusher    Pusher
	renderer  Renderer
	opTimeout time.Duration
}

func NewNotifier(s store.NotificationStore, d store.Directory, c *cache.DeliveryCache, p Presence, pusher Pusher, r Renderer, opTimeout time.Duration) *Notifier {
	if r == nil {
		r = TemplateRenderer{}
	}
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Notifier{store: s, directory: d, cache: c, presence: p, pusher: pusher, renderer: r, opTimeout: opTimeout}
}

// Notify persists a notification for the target and pushes it if they are
// online. Offline targets see it on their next fetch. Self-notifications
// return nil.
func (n *Notifier) Notify(ctx context.Context, req NotifyRequest) (*models.NotificationEvent, error) {
	if req.ActorID == "" || req.TargetID == "" {
		return nil, apperrors.BadRequest("actor and target are required")
	}
	if !req.Type.IsValid() {
		return nil, apperrors.BadRequest("unknown notification type")
	}
	if req.ActorID == req.TargetID {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.opTimeout)
	defer cancel()

	actor := models.UserSummary{ID: req.ActorID}
	if profiles, err := n.directory.Profiles(ctx, []string{req.ActorID}); err != nil {
		logger.Warn().Err(err).Str("user_id", req.ActorID).Msg("Actor lookup failed for notification")
	} else if p, ok := profiles[req.ActorID]; ok {
		actor = p
	}

	record := &models.Notification{
		UserID:    req.TargetID,
		ActorID:   req.ActorID,
		Type:      req.Type,
		PostID:    req.PostID,
		CommentID: req.CommentID,
		ChatID:    req.ChatID,
		Message:   n.renderer.Render(req.Type, actor, req.Preview),
	}
	if err := n.store.Create(ctx, record); err != nil {
		return nil, err
	}

	event := toEvent(*record, actor)
	if err := n.cache.PushNotification(ctx, req.TargetID, event); err != nil {
		logger.Warn().Err(err).Str("user_id", req.TargetID).Msg("Failed to cache notification")
	}

	online, err := n.presence.IsOnline(ctx, req.TargetID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", req.TargetID).Msg("Presence lookup failed, notification not pushed")
	}
	if online && n.pusher.EmitToUser(req.TargetID, "notification", event) {
		metrics.Notifications.WithLabelValues("pushed").Inc()
	} else {
		metrics.Notifications.WithLabelValues("stored").Inc()
	}
	return &event, nil
}

func toEvent(n models.Notification, actor models.UserSummary) models.NotificationEvent {
	return models.NotificationEvent{
		ID:        n.ID,
		Type:      n.Type,
		Sender:    actor,
		Message:   n.Message,
		PostID:    n.PostID,
		CommentID: n.CommentID,
		ChatID:    n.ChatID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// List returns userID's newest notifications.
func (n *Notifier) List(ctx context.Context, userID string) ([]models.NotificationEvent, error) {
	cached, found, err := n.cache.Notifications(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Notification cache read failed")
	}
	if found {
		return cached, nil
	}

	records, err := n.store.ListForUser(ctx, userID, notificationPageSize)
	if err != nil {
		return nil, err
	}
	actorIDs := make([]string, 0, len(records))
	for _, r := range records {
		actorIDs = append(actorIDs, r.ActorID)
	}
	profiles, err := n.directory.Profiles(ctx, actorIDs)
	if err != nil {
		logger.Warn().Err(err).Msg("Actor lookup failed for notification list")
		profiles = map[string]models.UserSummary{}
	}

	events := make([]models.NotificationEvent, 0, len(records))
	for _, r := range records {
		actor, ok := profiles[r.ActorID]
		if !ok {
			actor = models.UserSummary{ID: r.ActorID}
		}
		events = append(events, toEvent(r, actor))
	}
	if err := n.cache.SetNotifications(ctx, userID, events); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache notification list")
	}
	return events, nil
}

// MarkRead marks one of userID's notifications read.
func (n *Notifier) MarkRead(ctx context.Context, userID, id string) error {
	record, err := n.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.UserID != userID {
		return apperrors.Forbidden("not your notification")
	}
	if record.IsRead {
		return nil
	}
	if err := n.store.MarkRead(ctx, id); err != nil {
		return err
	}
	if err := n.cache.InvalidateNotifications(ctx, userID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to invalidate notification cache")
	}
	return nil
}
