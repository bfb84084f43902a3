package handlers

import (
	"net/http"

	"docshare/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	app *services.App
}

func NewNotificationHandler(app *services.App) *NotificationHandler {
	return &NotificationHandler{app: app}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := currentUser(c)
	views, err := h.app.Notifications.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.app.Notifications.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views, "unread_count": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.app.Notifications.MarkRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	if err := h.app.Notifications.MarkAllRead(c.Request.Context(), currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.app.Notifications.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
