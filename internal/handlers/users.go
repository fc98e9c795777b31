package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlineLister is the presence query behind GET /users/online.
type OnlineLister interface {
	Online(ctx context.Context) ([]string, error)
}

type UserHandler struct {
	Presence OnlineLister
}

// GetOnlineUsers GET /users/online
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	ids, err := h.Presence.Online(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": ids})
}
