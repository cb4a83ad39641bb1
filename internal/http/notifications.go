package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (e *Env) GetNotifications(c *gin.Context) {
	page, limit := pageParams(c)
	unreadOnly := c.Query("unread") == "true"
	notifs, err := e.Svc.Notifications(currentUser(c), unreadOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifs)
}

func (e *Env) GetUnreadCount(c *gin.Context) {
	n, err := e.Svc.UnreadNotifications(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (e *Env) MarkNotificationRead(c *gin.Context) {
	if err := e.Svc.MarkNotificationRead(currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (e *Env) MarkAllNotificationsRead(c *gin.Context) {
	n, err := e.Svc.MarkAllNotificationsRead(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
