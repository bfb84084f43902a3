package handlers

import (
	"errors"
	"net/http"

	"docshare/internal/logger"
	"docshare/internal/middleware"
	"docshare/internal/models"
	"docshare/internal/services"
	"docshare/internal/utils"

	"github.com/gin-gonic/gin"
)

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// respondError maps service error kinds to HTTP status codes.
func respondError(c *gin.Context, err error) {
	var code int
	switch services.KindOf(err) {
	case services.KindNotFound:
		code = http.StatusNotFound
	case services.KindValidation:
		code = http.StatusBadRequest
	case services.KindForbidden:
		code = http.StatusForbidden
	case services.KindConflict:
		code = http.StatusConflict
	default:
		logger.L().Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	var se *services.Error
	errors.As(err, &se)
	c.AbortWithStatusJSON(code, gin.H{"error": se.Message})
}

// paramID 解析路径中的数字 ID，非法时直接返回 404
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
