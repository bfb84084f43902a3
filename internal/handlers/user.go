package handlers

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"docshare/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	app *services.App
}

func NewUserHandler(app *services.App) *UserHandler {
	return &UserHandler{app: app}
}

// Profile - 用户主页 /api/users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	profile, err := h.app.Profiles.Public(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type profileRequest struct {
	Username string `json:"username"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.app.Profiles.UpdateUsername(c.Request.Context(), currentUser(c), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadAvatar 处理头像上传 (POST /api/profile/avatar, 字段 image)
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}
	defer file.Close()

	user, err := h.app.Profiles.SetAvatar(c.Request.Context(), currentUser(c), services.AvatarInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": user.AvatarURL()})
}

// Avatar 输出头像，跨站嵌入返回 403
func (h *UserHandler) Avatar(c *gin.Context) {
	if !isAllowedRequest(c) {
		c.Status(http.StatusForbidden)
		return
	}
	path := c.Param("path")
	rc, err := h.app.Profiles.OpenAvatar(c.Request.Context(), path)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=604800")
	c.Header("Vary", "Sec-Fetch-Site, Sec-Fetch-Mode")
	c.Status(http.StatusOK)
	io.Copy(c.Writer, rc)
}

// isAllowedRequest 使用 Sec-Fetch-* 头部检测是否为合法请求
func isAllowedRequest(c *gin.Context) bool {
	switch c.GetHeader("Sec-Fetch-Site") {
	case "", "same-origin", "same-site", "none":
		return true
	}
	// 允许在新标签页直接打开
	return c.GetHeader("Sec-Fetch-Mode") == "navigate"
}
