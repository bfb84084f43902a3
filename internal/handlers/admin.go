package handlers

import (
	"net/http"
	"strconv"

	"docshare/internal/models"
	"docshare/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	app *services.App
}

func NewAdminHandler(app *services.App) *AdminHandler {
	return &AdminHandler{app: app}
}

func (h *AdminHandler) Overview(c *gin.Context) {
	o, err := h.app.Admin.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// adminUser 管理后台的用户视图，包含锁定和认证状态
type adminUser struct {
	*models.User
	Verified   bool   `json:"verified"`
	Locked     bool   `json:"locked"`
	LockReason string `json:"lock_reason"`
}

func toAdminUser(u *models.User) adminUser {
	return adminUser{User: u, Verified: u.Verified, Locked: u.Locked, LockReason: u.LockReason}
}

func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.app.Admin.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]adminUser, 0, len(users))
	for i := range users {
		out = append(out, toAdminUser(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

type userUpdateRequest struct {
	Role       *string `json:"role"`
	Verified   *bool   `json:"verified"`
	Locked     *bool   `json:"locked"`
	LockReason string  `json:"lock_reason"`
}

// UpdateUser 修改角色、认证或锁定状态
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req userUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.app.Admin.UpdateUser(c.Request.Context(), currentUser(c), id, services.UserUpdate{
		Role:       req.Role,
		Verified:   req.Verified,
		Locked:     req.Locked,
		LockReason: req.LockReason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminUser(user))
}

func (h *AdminHandler) Documents(c *gin.Context) {
	docs, err := h.app.Admin.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *AdminHandler) PendingDocuments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	docs, err := h.app.Review.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

type reviewRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Review 审核文档：APPROVE 或 REJECT（驳回需填写原因，文档会被删除）
func (h *AdminHandler) Review(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.app.Review.Decide(c.Request.Context(), id, req.Action, req.Reason, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if doc == nil {
		c.JSON(http.StatusOK, gin.H{"deleted": true})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// optionalReason 请求体可以为空
func optionalReason(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return c.Query("reason"), true
	}
	var req reportRequest
	if !bindJSON(c, &req) {
		return "", false
	}
	return req.Reason, true
}

func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reason, ok := optionalReason(c)
	if !ok {
		return
	}
	if err := h.app.Review.AdminDelete(c.Request.Context(), id, reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ChangeSubject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req subjectRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := h.app.Subjects.ChangeSubject(c.Request.Context(), id, req.SubjectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *AdminHandler) Reports(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reports, err := h.app.Reports.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *AdminHandler) ClearReports(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.app.Reports.Clear(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Comments(c *gin.Context) {
	comments, err := h.app.Admin.ListComments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reason, ok := optionalReason(c)
	if !ok {
		return
	}
	if err := h.app.Documents.DeleteComment(c.Request.Context(), id, reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
