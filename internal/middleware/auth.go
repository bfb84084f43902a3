package middleware

import (
	"fmt"
	"net/http"

	"docshare/internal/logger"
	"docshare/internal/models"
	"docshare/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"
const SessionUserKey = "user_id"

// LoadUser retrieves user from session and sets to context
func LoadUser(app *services.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserKey)

		if userID != nil {
			user, err := app.Users.ResolveViewer(c.Request.Context(), fmt.Sprint(userID))
			if err != nil {
				logger.L().Error().Err(err).Msg("failed to load session user")
			}
			if user != nil {
				c.Set(CheckUserKey, user)

				count, err := app.Notifications.UnreadCount(c.Request.Context(), user.ID)
				if err == nil {
					c.Set(UnreadCountKey, count)
				}
			}
		}
		c.Next()
	}
}

// CurrentUser 未登录时返回 nil
func CurrentUser(c *gin.Context) *models.User {
	u, exists := c.Get(CheckUserKey)
	if !exists {
		return nil
	}
	user, _ := u.(*models.User)
	return user
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// AdminRequired 必须在 AuthRequired 之后使用
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentUser(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
			return
		}
		c.Next()
	}
}
