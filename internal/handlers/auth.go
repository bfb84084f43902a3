package handlers

import (
	"net/http"

	"docshare/internal/middleware"
	"docshare/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	app *services.App
}

func NewAuthHandler(app *services.App) *AuthHandler {
	return &AuthHandler{app: app}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.app.Users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.login(c, user.ID) {
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.app.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.login(c, user.ID) {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) login(c *gin.Context, userID uint) bool {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, userID)
	if err := session.Save(); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me 当前登录用户及未读通知数
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	unread, _ := c.Get(middleware.UnreadCountKey)
	c.JSON(http.StatusOK, gin.H{"user": user, "unread_count": unread})
}
