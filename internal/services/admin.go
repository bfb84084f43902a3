package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"docshare/internal/models"
	"docshare/internal/utils"

	"gorm.io/gorm"
)

type AdminService struct {
	db      *gorm.DB
	reports *ReportService
}

func NewAdminService(db *gorm.DB, reports *ReportService) *AdminService {
	return &AdminService{db: db, reports: reports}
}

type Overview struct {
	Users            int64 `json:"users"`
	Documents        int64 `json:"documents"`
	PendingDocuments int64 `json:"pending_documents"`
	PendingSubject   int64 `json:"pending_subject"`
	Subjects         int64 `json:"subjects"`
	Comments         int64 `json:"comments"`
	Ratings          int64 `json:"ratings"`
	DocumentReports  int64 `json:"document_reports"`
	CommentReports   int64 `json:"comment_reports"`
	Downloads        int64 `json:"downloads"`
}

func (s *AdminService) Overview(ctx context.Context) (*Overview, error) {
	tx := s.db.WithContext(ctx)
	var o Overview
	counts := []struct {
		model any
		where string
		arg   any
		dest  *int64
	}{
		{&models.User{}, "", nil, &o.Users},
		{&models.Document{}, "", nil, &o.Documents},
		{&models.Document{}, "review_status = ?", models.ReviewPending, &o.PendingDocuments},
		{&models.Document{}, "pending_subject = ?", true, &o.PendingSubject},
		{&models.Subject{}, "", nil, &o.Subjects},
		{&models.Comment{}, "", nil, &o.Comments},
		{&models.Rating{}, "", nil, &o.Ratings},
		{&models.DocumentReport{}, "", nil, &o.DocumentReports},
		{&models.CommentReport{}, "", nil, &o.CommentReports},
	}
	for _, c := range counts {
		q := tx.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.arg)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Model(&models.Document{}).Select("COALESCE(SUM(download_count), 0)").Scan(&o.Downloads).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error
	return users, err
}

type UserUpdate struct {
	Role       *string
	Verified   *bool
	Locked     *bool
	LockReason string
}

// UpdateUser 修改角色、认证状态或锁定账号（锁定必须填写原因）
func (s *AdminService) UpdateUser(ctx context.Context, actor *models.User, id uint, in UserUpdate) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*in.Role))
		if role != models.RoleUser && role != models.RoleAdmin {
			return nil, Validation("role must be %q or %q", models.RoleUser, models.RoleAdmin)
		}
		if actor != nil && actor.ID == user.ID && role != models.RoleAdmin {
			return nil, Forbidden("you cannot remove your own admin role")
		}
		updates["role"] = role
	}
	if in.Verified != nil {
		updates["verified"] = *in.Verified
	}
	if in.Locked != nil {
		if *in.Locked {
			reason := utils.CollapseSpaces(utils.StripTags(in.LockReason))
			if reason == "" {
				return nil, Validation("a reason is required to lock an account")
			}
			if actor != nil && actor.ID == user.ID {
				return nil, Forbidden("you cannot lock your own account")
			}
			updates["locked"] = true
			updates["lock_reason"] = reason
		} else {
			updates["locked"] = false
			updates["lock_reason"] = ""
		}
	}
	if len(updates) == 0 {
		return &user, nil
	}
	updates["updated_at"] = time.Now()

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type AdminDocument struct {
	models.Document
	ReportCount int64 `json:"report_count"`
}

// ListDocuments 最近上传的文档（最多 20 条）及举报数
func (s *AdminService) ListDocuments(ctx context.Context) ([]AdminDocument, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).Preload("User").Preload("Subject").
		Order("created_at DESC, id DESC").
		Limit(20).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	counts, err := s.reports.CountForMany(ctx, TargetDocument, ids)
	if err != nil {
		return nil, err
	}

	out := make([]AdminDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, AdminDocument{Document: d, ReportCount: counts[d.ID]})
	}
	return out, nil
}

type AdminComment struct {
	ID            uint      `json:"id"`
	DocumentID    uint      `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	Content       string    `json:"content"`
	AuthorName    string    `json:"author_name"`
	AuthorEmail   string    `json:"author_email"`
	CreatedAt     time.Time `json:"created_at"`
	ReportCount   int64     `json:"report_count"`
}

// ListComments 最近 50 条评论及举报数
func (s *AdminService) ListComments(ctx context.Context) ([]AdminComment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Preload("User").Preload("Document").
		Order("created_at DESC, id DESC").
		Limit(50).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	counts, err := s.reports.CountForMany(ctx, TargetComment, ids)
	if err != nil {
		return nil, err
	}

	out := make([]AdminComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, AdminComment{
			ID:            c.ID,
			DocumentID:    c.DocumentID,
			DocumentTitle: c.Document.Title,
			Content:       c.Content,
			AuthorName:    c.User.DisplayName(),
			AuthorEmail:   c.User.Email,
			CreatedAt:     c.CreatedAt,
			ReportCount:   counts[c.ID],
		})
	}
	return out, nil
}
