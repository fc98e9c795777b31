package services

import (
	"fmt"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
)

// Renderer turns a notification type and its actor into display text.
type Renderer interface {
	Render(t models.NotificationType, actor models.UserSummary, preview string) string
}

// TemplateRenderer is the built-in fallback when no content pipeline is wired.
type TemplateRenderer struct{}

var templates = map[models.NotificationType]string{
	models.NotificationTypeMessage:      "%s sent you a message",
	models.NotificationTypeLike:         "%s liked your post",
	models.NotificationTypeComment:      "%s commented on your post",
	models.NotificationTypePostShare:    "%s shared your post",
	models.NotificationTypeCommentLike:  "%s liked your comment",
	models.NotificationTypeCommentReply: "%s replied to your comment",
	models.NotificationTypeFollow:       "%s started following you",
}

func (TemplateRenderer) Render(t models.NotificationType, actor models.UserSummary, preview string) string {
	if t == models.NotificationTypeSystem {
		return preview
	}
	name := actor.DisplayName
	if name == "" {
		name = actor.Username
	}
	if name == "" {
		name = "Someone"
	}
	tmpl, ok := templates[t]
	if !ok {
		return preview
	}
	return fmt.Sprintf(tmpl, name)
}
