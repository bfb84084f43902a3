package handlers

import (
	"net/http"

	"docshare/internal/services"

	"github.com/gin-gonic/gin"
)

type SubjectHandler struct {
	app *services.App
}

func NewSubjectHandler(app *services.App) *SubjectHandler {
	return &SubjectHandler{app: app}
}

func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.app.Subjects.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

type subjectNameRequest struct {
	Name string `json:"name"`
}

func (h *SubjectHandler) Create(c *gin.Context) {
	var req subjectNameRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.app.Subjects.Create(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *SubjectHandler) Rename(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req subjectNameRequest
	if !bindJSON(c, &req) {
		return
	}
	subject, err := h.app.Subjects.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subject)
}

// Delete 删除学科，相关文档转为待分类
func (h *SubjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.app.Subjects.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
