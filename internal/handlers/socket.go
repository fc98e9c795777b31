package handlers

import (
	"context"
	"net/http"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/hub"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/services"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
)

// SocketHandler binds socket events to the hub and services. Event methods
// take a connection id so they can run without a socket.io server.
type SocketHandler struct {
	Hub       *hub.Hub
	Messaging *services.MessagingService
	Notifier  *services.Notifier
	Presence  OnlineLister
}

type SendPayload struct {
	TempID      string             `json:"tempId"`
	ReceiverID  string             `json:"receiverId"`
	RecipientID string             `json:"recipientId"`
	Content     string             `json:"content"`
	Type        models.ContentKind `json:"type"`
}

type SendAck struct {
	TempID    string          `json:"tempId,omitempty"`
	Success   bool            `json:"success"`
	Message   *models.Message `json:"message,omitempty"`
	Error     string          `json:"error,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
}

type Ack struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type TargetPayload struct {
	ReceiverID  string `json:"receiverId"`
	RecipientID string `json:"recipientId"`
	PartnerID   string `json:"partnerId"`
	UserID      string `json:"userId"`
}

func (p TargetPayload) target() string {
	for _, id := range []string{p.ReceiverID, p.RecipientID, p.PartnerID, p.UserID} {
		if id != "" {
			return id
		}
	}
	return ""
}

type MessagePayload struct {
	MessageID string `json:"messageId"`
}

type SocialPayload struct {
	TargetUserID string  `json:"targetUserId"`
	PostID       *string `json:"postId"`
	CommentID    *string `json:"commentId"`
}

var socialEvents = map[string]models.NotificationType{
	"like":          models.NotificationTypeLike,
	"comment":       models.NotificationTypeComment,
	"comment_like":  models.NotificationTypeCommentLike,
	"comment_reply": models.NotificationTypeCommentReply,
	"post_share":    models.NotificationTypePostShare,
	"follow":        models.NotificationTypeFollow,
}

func failAck(err error) Ack {
	ack := Ack{Error: err.Error(), Retryable: apperrors.IsRetryable(err)}
	if appErr, ok := apperrors.As(err); ok {
		ack.Error = appErr.Message
	}
	return ack
}

func (h *SocketHandler) session(connID string) (*hub.Session, error) {
	s, ok := h.Hub.SessionFor(connID)
	if !ok {
		return nil, apperrors.Unauthorized("connection is not authenticated")
	}
	return s, nil
}

// Connect authenticates a new connection. The returned error rejects it.
func (h *SocketHandler) Connect(ctx context.Context, conn hub.Conn, header http.Header, explicitToken string) (string, error) {
	s, err := h.Hub.Connect(ctx, conn, utils.ExtractToken(header, explicitToken))
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

func (h *SocketHandler) SendMessage(ctx context.Context, connID string, p SendPayload) SendAck {
	s, err := h.session(connID)
	if err != nil {
		return SendAck{TempID: p.TempID, Error: err.Error()}
	}
	receiver := p.ReceiverID
	if receiver == "" {
		receiver = p.RecipientID
	}

	msg, err := h.Messaging.Send(ctx, services.SendRequest{
		SenderID:   s.UserID,
		ReceiverID: receiver,
		Content:    p.Content,
		Kind:       p.Type,
	})
	if err != nil {
		fail := failAck(err)
		return SendAck{TempID: p.TempID, Error: fail.Error, Retryable: fail.Retryable}
	}
	return SendAck{TempID: p.TempID, Success: true, Message: msg}
}

func (h *SocketHandler) Typing(ctx context.Context, connID string, p TargetPayload, typing bool) {
	s, err := h.session(connID)
	if err != nil {
		return
	}
	target := p.target()
	if typing && !h.Hub.AllowTyping(s, target) {
		return
	}
	if !typing {
		h.Hub.ResetTyping(s, target)
	}
	if err := h.Messaging.Typing(ctx, s.UserID, target, typing); err != nil {
		logger.Debug().Err(err).Str("user_id", s.UserID).Msg("Dropped typing event")
	}
}

func (h *SocketHandler) MarkRead(ctx context.Context, connID string, p MessagePayload) Ack {
	s, err := h.session(connID)
	if err != nil {
		return failAck(err)
	}
	if _, err := h.Messaging.MarkRead(ctx, s.UserID, p.MessageID); err != nil {
		return failAck(err)
	}
	return Ack{Success: true}
}

func (h *SocketHandler) MarkChatRead(ctx context.Context, connID string, p TargetPayload) Ack {
	s, err := h.session(connID)
	if err != nil {
		return failAck(err)
	}
	if _, err := h.Messaging.MarkConversationRead(ctx, s.UserID, p.target()); err != nil {
		return failAck(err)
	}
	return Ack{Success: true}
}

func (h *SocketHandler) DeleteMessage(ctx context.Context, connID string, p MessagePayload) Ack {
	s, err := h.session(connID)
	if err != nil {
		return failAck(err)
	}
	if _, err := h.Messaging.Delete(ctx, s.UserID, p.MessageID); err != nil {
		return failAck(err)
	}
	return Ack{Success: true}
}

func (h *SocketHandler) OnlineUsers(ctx context.Context, connID string) {
	s, err := h.session(connID)
	if err != nil {
		return
	}
	ids, err := h.Presence.Online(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to list online users")
		return
	}
	s.Emit("online_users", ids)
}

func (h *SocketHandler) Social(ctx context.Context, connID, event string, p SocialPayload) Ack {
	s, err := h.session(connID)
	if err != nil {
		return failAck(err)
	}
	_, err = h.Notifier.Notify(ctx, services.NotifyRequest{
		ActorID:   s.UserID,
		TargetID:  p.TargetUserID,
		Type:      socialEvents[event],
		PostID:    p.PostID,
		CommentID: p.CommentID,
	})
	if err != nil {
		return failAck(err)
	}
	return Ack{Success: true}
}

func (h *SocketHandler) Disconnect(ctx context.Context, connID string) {
	h.Hub.Disconnect(ctx, connID)
}

// NewSocketServer builds the socket.io server with every event bound.
func NewSocketServer(h *SocketHandler, allowedOrigins ...string) *socketio.Server {
	checkOrigin := func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowedOrigins {
			if o == origin {
				return true
			}
		}
		return false
	}

	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{CheckOrigin: checkOrigin},
			&polling.Transport{CheckOrigin: checkOrigin},
		},
	})
	bg := context.Background()

	server.OnConnect("/", func(s socketio.Conn) error {
		url := s.URL()
		explicit := url.Query().Get("token")
		if explicit == "" {
			explicit = url.Query().Get("auth_token")
		}
		userID, err := h.Connect(bg, s, s.RemoteHeader(), explicit)
		if err != nil {
			return err
		}
		s.SetContext(userID)
		return nil
	})

	server.OnEvent("/", "send_message", func(s socketio.Conn, p SendPayload) SendAck {
		return h.SendMessage(bg, s.ID(), p)
	})
	server.OnEvent("/", "typing", func(s socketio.Conn, p TargetPayload) {
		h.Typing(bg, s.ID(), p, true)
	})
	server.OnEvent("/", "stop_typing", func(s socketio.Conn, p TargetPayload) {
		h.Typing(bg, s.ID(), p, false)
	})
	server.OnEvent("/", "mark_read", func(s socketio.Conn, p MessagePayload) Ack {
		return h.MarkRead(bg, s.ID(), p)
	})
	server.OnEvent("/", "mark_chat_read", func(s socketio.Conn, p TargetPayload) Ack {
		return h.MarkChatRead(bg, s.ID(), p)
	})
	server.OnEvent("/", "delete_message", func(s socketio.Conn, p MessagePayload) Ack {
		return h.DeleteMessage(bg, s.ID(), p)
	})
	server.OnEvent("/", "get_online_users", func(s socketio.Conn, msg string) {
		h.OnlineUsers(bg, s.ID())
	})
	for event := range socialEvents {
		event := event
		server.OnEvent("/", event, func(s socketio.Conn, p SocialPayload) Ack {
			return h.Social(bg, s.ID(), event, p)
		})
	}

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		logger.Debug().Str("conn_id", s.ID()).Str("reason", reason).Msg("Socket closed")
		h.Disconnect(bg, s.ID())
	})
	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Warn().Err(e).Msg("Socket error")
	})

	return server
}

// SocketHTTPHandler serves socket.io through gin.
func SocketHTTPHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
