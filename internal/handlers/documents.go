package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"docshare/internal/services"
	"docshare/internal/utils"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	app *services.App
}

func NewDocumentHandler(app *services.App) *DocumentHandler {
	return &DocumentHandler{app: app}
}

// List GET /api/documents?subject_id=&q=&limit=
func (h *DocumentHandler) List(c *gin.Context) {
	filter := services.ListFilter{Query: c.Query("q")}
	if v := c.Query("subject_id"); v != "" {
		id, ok := utils.ParseID(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subject_id"})
			return
		}
		filter.SubjectID = id
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	docs, err := h.app.Documents.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Upload POST /api/documents (multipart: file, title, description, subject_id)
func (h *DocumentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	subjectID, _ := utils.ParseID(c.PostForm("subject_id"))

	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	doc, err := h.app.Documents.Upload(c.Request.Context(), services.UploadInput{
		Owner:       currentUser(c),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		SubjectID:   subjectID,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := h.app.Documents.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.app.Documents.Detail(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *DocumentHandler) Comments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	thread, err := h.app.Documents.Comments(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

func (h *DocumentHandler) AddComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.app.Documents.AddComment(c.Request.Context(), id, currentUser(c), req.Content, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":           comment.ID,
		"document_id":  comment.DocumentID,
		"parent_id":    comment.ParentID,
		"content":      comment.Content,
		"content_html": utils.RenderMarkdown(comment.Content),
		"created_at":   comment.CreatedAt,
	})
}

func (h *DocumentHandler) Rating(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	summary, err := h.app.Documents.RatingSummary(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type rateRequest struct {
	Score int `json:"score"`
}

func (h *DocumentHandler) Rate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	summary, err := h.app.Documents.Rate(c.Request.Context(), id, currentUser(c), req.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type reportRequest struct {
	Reason string `json:"reason"`
}

func (h *DocumentHandler) ReportDocument(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.app.Reports.FileReport(c.Request.Context(), services.ReportRequest{
		Kind:       services.TargetDocument,
		DocumentID: id,
		Reporter:   currentUser(c),
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reported": true})
}

func (h *DocumentHandler) ReportComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	commentID, ok := paramID(c, "commentId")
	if !ok {
		return
	}
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.app.Reports.FileReport(c.Request.Context(), services.ReportRequest{
		Kind:       services.TargetComment,
		DocumentID: id,
		CommentID:  commentID,
		Reporter:   currentUser(c),
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reported": true})
}

type subjectRequest struct {
	SubjectID uint `json:"subject_id"`
}

// AssignSubject 上传者为待分类文档选择学科
func (h *DocumentHandler) AssignSubject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req subjectRequest
	if !bindJSON(c, &req) {
		return
	}
	user := currentUser(c)
	doc, err := h.app.Subjects.AssignSubject(c.Request.Context(), id, req.SubjectID, user, h.app.Users.IsPrivileged(user))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Preview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	img, err := h.app.Documents.Preview(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", img)
}

func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, rc, err := h.app.Documents.Download(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})
	c.DataFromReader(http.StatusOK, doc.Size, contentType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}
