package services

import (
	"context"
	"strings"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/cache"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/chatlist"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/hub"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/metrics"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/queue"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
)

// typing indicators expire on the client after this long
const typingTTL = 4 * time.Second

type SendRequest struct {
	SenderID   string
	ReceiverID string
	Content    string
	Kind       models.ContentKind
}

type MessagingDeps struct {
	Messages  store.MessageStore
	Cache     *cache.DeliveryCache
	Presence  Presence
	Queue     *queue.OfflineQueue
	ChatList  *chatlist.Aggregator
	Notifier  *Notifier
	Hub       Pusher
	OpTimeout time.Duration
}

// MessagingService runs send, receipt and delete flows for both HTTP and
// socket entry points. The message store is authoritative; every other
// write after it is best-effort.
type MessagingService struct {
	messages  store.MessageStore
	cache     *cache.DeliveryCache
	presence  Presence
	queue     *queue.OfflineQueue
	chatList  *chatlist.Aggregator
	notifier  *Notifier
	hub       Pusher
	opTimeout time.Duration
	now       func() time.Time
}

func NewMessagingService(d MessagingDeps) *MessagingService {
	if d.OpTimeout <= 0 {
		d.OpTimeout = 5 * time.Second
	}
	return &MessagingService{
		messages:  d.Messages,
		cache:     d.Cache,
		presence:  d.Presence,
		queue:     d.Queue,
		chatList:  d.ChatList,
		notifier:  d.Notifier,
		hub:       d.Hub,
		opTimeout: d.OpTimeout,
		now:       time.Now,
	}
}

// detached bounds work on behalf of a caller without inheriting its cancellation,
// so a disconnect mid-send cannot strand a half-applied message.
func (s *MessagingService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
}

func validateSend(req *SendRequest) error {
	if req.SenderID == "" || req.ReceiverID == "" {
		return apperrors.BadRequest("sender and receiver are required")
	}
	if req.SenderID == req.ReceiverID {
		return apperrors.BadRequest("cannot message yourself")
	}
	if req.Kind == "" {
		req.Kind = models.KindText
	}
	if !req.Kind.IsValid() {
		return apperrors.BadRequest("unsupported message type")
	}

	if req.Kind.IsMedia() {
		req.Content = strings.TrimSpace(req.Content)
		if err := utils.ValidateMediaURL(req.Content); err != nil {
			return apperrors.BadRequest(err.Error())
		}
		return nil
	}
	content, err := utils.SanitizeMessageContent(req.Content)
	if err != nil {
		return apperrors.BadRequest(err.Error())
	}
	req.Content = content
	return nil
}

// Send persists a direct message and fans it out. It fails only when the
// message could not be stored.
func (s *MessagingService) Send(ctx context.Context, req SendRequest) (*models.Message, error) {
	if err := validateSend(&req); err != nil {
		return nil, err
	}

	ctx, cancel := s.detached(ctx)
	defer cancel()

	m := &models.Message{
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Kind:       req.Kind,
	}
	if _, err := s.messages.Persist(ctx, m); err != nil {
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Unavailable("message store unavailable", err)
	}
	metrics.MessagesSent.Inc()

	log := logger.ForMessage(m.ID, m.ReceiverID)

	if err := s.cache.PutMessage(ctx, m); err != nil {
		log.Warn().Err(err).Msg("Failed to cache message")
	}
	if err := s.cache.AppendToConversation(ctx, m); err != nil {
		log.Warn().Err(err).Msg("Failed to append message to cached conversations")
	}
	if err := s.chatList.ApplyNewMessage(ctx, m); err != nil {
		log.Warn().Err(err).Msg("Failed to update chat lists")
	}

	s.deliver(ctx, m)

	chatID := m.ConversationID
	_, err := s.notifier.Notify(ctx, NotifyRequest{
		ActorID:  m.SenderID,
		TargetID: m.ReceiverID,
		Type:     models.NotificationTypeMessage,
		ChatID:   &chatID,
		Preview:  m.Content,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to notify recipient")
	}

	return m, nil
}

// deliver pushes m if the recipient is online here, otherwise parks it.
func (s *MessagingService) deliver(ctx context.Context, m *models.Message) {
	online, err := s.presence.IsOnline(ctx, m.ReceiverID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", m.ReceiverID).Msg("Presence lookup failed, queueing message")
	}
	out := *m
	out.DeliveryState = models.StateDelivered
	if online && s.hub.EmitToUser(m.ReceiverID, "new_message", out) {
		s.promoteDelivered(ctx, m, "live")
		return
	}

	if err := s.queue.Enqueue(ctx, m.ReceiverID, m.ID); err != nil {
		logger.Warn().Err(err).Str("message_id", m.ID).Str("user_id", m.ReceiverID).Msg("Failed to queue message for offline recipient")
		return
	}

	// The recipient may have connected and drained between the presence
	// lookup and the enqueue. Whoever removes the id from the queue delivers it.
	if !s.hub.HasSession(m.ReceiverID) {
		return
	}
	removed, err := s.queue.Remove(ctx, m.ReceiverID, m.ID)
	if err != nil {
		logger.Warn().Err(err).Str("message_id", m.ID).Msg("Failed to reclaim queued message")
		return
	}
	if !removed {
		return
	}
	if s.hub.EmitToUser(m.ReceiverID, "new_message", out) {
		s.promoteDelivered(ctx, m, "live")
		return
	}
	s.requeue(ctx, m.ReceiverID, []string{m.ID})
}

func (s *MessagingService) promoteDelivered(ctx context.Context, m *models.Message, path string) {
	changed, err := s.messages.UpdateDeliveryState(ctx, m.ID, models.StateDelivered)
	if err != nil {
		logger.Warn().Err(err).Str("message_id", m.ID).Msg("Failed to record delivery")
		return
	}
	if !changed {
		return
	}

	at := s.now().UTC()
	m.DeliveryState = models.StateDelivered
	m.DeliveredAt = &at
	s.patch(ctx, m.Ref(), func(c *models.Message) {
		if models.CanTransition(c.DeliveryState, models.StateDelivered) {
			c.DeliveryState = models.StateDelivered
			c.DeliveredAt = &at
		}
	})
	metrics.Deliveries.WithLabelValues(path).Inc()
	s.receipt(m, models.StateDelivered, at)
}

func (s *MessagingService) patch(ctx context.Context, ref models.MessageRef, fn func(*models.Message)) {
	if err := s.cache.PatchMessage(ctx, ref, fn); err != nil {
		logger.Warn().Err(err).Str("message_id", ref.ID).Msg("Failed to patch cached message")
	}
}

func (s *MessagingService) receipt(m *models.Message, state models.DeliveryState, at time.Time) {
	event := "message_delivered"
	if state == models.StateRead {
		event = "message_read"
	}
	s.hub.EmitToUser(m.SenderID, event, models.Receipt{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		State:          state,
		UserID:         m.ReceiverID,
		At:             at,
	})
	metrics.Receipts.WithLabelValues(string(state)).Inc()
}

// MarkRead records that requester read message id. Only the receiver may do
// this; repeating it is a no-op.
func (s *MessagingService) MarkRead(ctx context.Context, requester, id string) (*models.Message, error) {
	ctx, cancel := s.detached(ctx)
	defer cancel()

	m, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.ReceiverID != requester {
		return nil, apperrors.Forbidden("only the receiver can mark a message read")
	}
	if m.IsRead {
		return m, nil
	}
	if _, err := s.markRead(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MessagingService) markRead(ctx context.Context, m *models.Message) (bool, error) {
	changed, err := s.messages.UpdateDeliveryState(ctx, m.ID, models.StateRead)
	if err != nil || !changed {
		return false, err
	}

	at := s.now().UTC()
	m.DeliveryState = models.StateRead
	m.IsRead = true
	m.ReadAt = &at
	s.patch(ctx, m.Ref(), func(c *models.Message) {
		c.DeliveryState = models.StateRead
		c.IsRead = true
		c.ReadAt = &at
	})
	s.receipt(m, models.StateRead, at)
	return true, nil
}

// MarkConversationRead reads every unread message partner sent to userID and
// clears the unread badge. It returns how many messages changed.
func (s *MessagingService) MarkConversationRead(ctx context.Context, userID, partnerID string) (int, error) {
	if partnerID == "" || partnerID == userID {
		return 0, apperrors.BadRequest("invalid conversation partner")
	}
	ctx, cancel := s.detached(ctx)
	defer cancel()

	unread, err := s.messages.UnreadFrom(ctx, userID, partnerID)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range unread {
		changed, err := s.markRead(ctx, &unread[i])
		if err != nil {
			return count, err
		}
		if changed {
			count++
		}
	}

	if err := s.chatList.ResetUnread(ctx, userID, partnerID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to reset unread count")
	}
	return count, nil
}

// Delete tombstones a message. Only its sender may delete it.
func (s *MessagingService) Delete(ctx context.Context, requester, id string) (*models.Message, error) {
	ctx, cancel := s.detached(ctx)
	defer cancel()

	m, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.SenderID != requester {
		return nil, apperrors.Forbidden("only the sender can delete a message")
	}
	if m.IsDeleted {
		return m, nil
	}

	deleted, err := s.messages.MarkDeleted(ctx, id)
	if err != nil {
		return nil, err
	}

	s.patch(ctx, deleted.Ref(), func(c *models.Message) { c.Tombstone() })
	if err := s.chatList.ApplyDeletion(ctx, deleted); err != nil {
		logger.Warn().Err(err).Str("message_id", id).Msg("Failed to update chat list previews")
	}

	event := models.DeletedEvent{
		MessageID:      deleted.ID,
		ConversationID: deleted.ConversationID,
		Content:        deleted.Content,
		Kind:           deleted.Kind,
	}
	s.hub.EmitToUser(deleted.SenderID, "message_deleted", event)
	s.hub.EmitToUser(deleted.ReceiverID, "message_deleted", event)
	return deleted, nil
}

// Typing forwards a typing indicator. Nothing is persisted.
func (s *MessagingService) Typing(ctx context.Context, from, to string, typing bool) error {
	if from == "" || to == "" || from == to {
		return apperrors.BadRequest("invalid typing target")
	}

	event := "stop_typing"
	payload := models.TypingEvent{UserID: from, ChatID: models.ConversationID(from, to)}
	if typing {
		event = "typing"
		payload.ExpiresAt = s.now().Add(typingTTL).Unix()
	}
	s.hub.EmitToUser(to, event, payload)

	if err := s.chatList.SetTyping(ctx, to, from, typing); err != nil {
		logger.Debug().Err(err).Str("user_id", to).Msg("Failed to flag typing in chat list")
	}
	return nil
}

// Conversation returns the messages between userID and partnerID, oldest first.
func (s *MessagingService) Conversation(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	if partnerID == "" {
		return nil, apperrors.BadRequest("userId is required")
	}

	cached, found, err := s.cache.Conversation(ctx, userID, partnerID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Conversation cache read failed")
	}
	if found {
		return cached, nil
	}

	reserved, err := s.cache.ReserveConversation(ctx, userID, partnerID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to reserve conversation cache")
	}
	msgs, err := s.messages.ListConversation(ctx, userID, partnerID, store.Ascending)
	if err != nil {
		return nil, err
	}
	if reserved {
		if err := s.cache.PopulateConversation(ctx, userID, partnerID, msgs); err != nil {
			logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache conversation")
		}
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// OnOpen tells a fresh session which partners are online, then delivers its
// offline backlog in arrival order.
func (s *MessagingService) OnOpen(ctx context.Context, sess *hub.Session) {
	userID := sess.UserID

	if list, err := s.chatList.Get(ctx, userID); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load chat partners")
	} else {
		partners := make([]string, 0, len(list))
		for _, c := range list {
			if c.IsOnline {
				partners = append(partners, c.PartnerID)
			}
		}
		sess.Emit("online_partners", partners)
	}

	ids, err := s.queue.Drain(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to drain offline queue")
		return
	}

	for i, id := range ids {
		m, err := s.messages.Get(ctx, id)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("message_id", id).Msg("Failed to load queued message")
			s.requeue(ctx, userID, ids[i:])
			return
		}
		if m.DeliveryState != models.StateSent {
			continue
		}

		out := *m
		out.DeliveryState = models.StateDelivered
		if !sess.Emit("new_message", out) {
			s.requeue(ctx, userID, ids[i:])
			return
		}
		s.promoteDelivered(ctx, m, "drain")
	}
	if len(ids) > 0 {
		logger.Info().Str("user_id", userID).Int("count", len(ids)).Msg("Delivered offline backlog")
	}
}

func (s *MessagingService) requeue(ctx context.Context, userID string, ids []string) {
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, userID, id); err != nil {
			logger.Warn().Err(err).Str("message_id", id).Msg("Failed to requeue message")
		}
	}
}
