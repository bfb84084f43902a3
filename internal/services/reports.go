package services

import (
	"context"
	"errors"
	"time"

	"docshare/internal/models"
	"docshare/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const commentExcerptLength = 80

type TargetKind int

const (
	TargetDocument TargetKind = iota
	TargetComment
)

func (k TargetKind) table() string {
	if k == TargetComment {
		return "comment_reports"
	}
	return "document_reports"
}

func (k TargetKind) column() string {
	if k == TargetComment {
		return "comment_id"
	}
	return "document_id"
}

type ReportRequest struct {
	Kind       TargetKind
	DocumentID uint
	CommentID  uint // TargetComment only
	Reporter   *models.User
	Reason     string
}

type ReportService struct {
	db       *gorm.DB
	users    *UserService
	notifier *NotificationService
}

func NewReportService(db *gorm.DB, users *UserService, notifier *NotificationService) *ReportService {
	return &ReportService{db: db, users: users, notifier: notifier}
}

// FileReport records one report per (target, reporter) and alerts every admin.
func (s *ReportService) FileReport(ctx context.Context, req ReportRequest) error {
	if req.Reporter == nil {
		return Forbidden("login required")
	}
	reason := utils.TrimToNil(utils.StripTags(req.Reason))
	if reason != nil {
		r := utils.Truncate(*reason, 500)
		reason = &r
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := loadDocument(tx, req.DocumentID)
		if err != nil {
			return err
		}
		if !CanView(doc, req.Reporter, s.users.IsPrivileged(req.Reporter)) {
			return NotFound("document not found")
		}

		var ev Event
		var inserted int64
		switch req.Kind {
		case TargetDocument:
			if doc.IsOwnedBy(req.Reporter.ID) {
				return Forbidden("you cannot report your own document")
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DocumentReport{
				DocumentID: doc.ID,
				ReporterID: req.Reporter.ID,
				Reason:     reason,
				CreatedAt:  time.Now(),
			})
			if res.Error != nil {
				return duplicateAsConflict(res.Error, "you have already reported this document")
			}
			inserted = res.RowsAffected
			ev = documentReportedEvent(doc, reporterName(req.Reporter), reason)

		case TargetComment:
			var comment models.Comment
			if err := tx.First(&comment, req.CommentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NotFound("comment not found")
				}
				return err
			}
			if comment.DocumentID != doc.ID {
				return Validation("comment does not belong to this document")
			}
			if comment.UserID == req.Reporter.ID {
				return Forbidden("you cannot report your own comment")
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.CommentReport{
				CommentID:  comment.ID,
				ReporterID: req.Reporter.ID,
				Reason:     reason,
				CreatedAt:  time.Now(),
			})
			if res.Error != nil {
				return duplicateAsConflict(res.Error, "you have already reported this comment")
			}
			inserted = res.RowsAffected
			ev = commentReportedEvent(doc, commentExcerpt(comment.Content), reporterName(req.Reporter), reason)

		default:
			return Validation("unknown report target")
		}

		if inserted == 0 {
			if req.Kind == TargetComment {
				return Conflict("you have already reported this comment")
			}
			return Conflict("you have already reported this document")
		}
		return s.notifier.Dispatch(tx, ev, ToPrivileged())
	})
}

func duplicateAsConflict(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict("%s", msg)
	}
	return err
}

func reporterName(u *models.User) string {
	if name := u.DisplayName(); name != "" {
		return name
	}
	return "A user"
}

// commentExcerpt 纯文本摘要，超过 80 个字符截断
func commentExcerpt(content string) string {
	return utils.Truncate(utils.PlainText(content), commentExcerptLength)
}

func (s *ReportService) CountFor(ctx context.Context, kind TargetKind, targetID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Table(kind.table()).Where(kind.column()+" = ?", targetID).Count(&count).Error
	return count, err
}

// CountForMany runs one grouped query for all targets. Missing targets count zero.
func (s *ReportService) CountForMany(ctx context.Context, kind TargetKind, targetIDs []uint) (map[uint]int64, error) {
	return countReports(s.db.WithContext(ctx), kind, targetIDs)
}

func countReports(tx *gorm.DB, kind TargetKind, targetIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return counts, nil
	}

	type result struct {
		TargetID uint
		Count    int64
	}
	var results []result
	err := tx.Table(kind.table()).
		Select(kind.column()+" AS target_id, COUNT(*) AS count").
		Where(kind.column()+" IN ?", targetIDs).
		Group(kind.column()).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		counts[r.TargetID] = r.Count
	}
	return counts, nil
}

func (s *ReportService) ReportedByViewer(ctx context.Context, kind TargetKind, targetID uint, viewer *models.User) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Table(kind.table()).
		Where(kind.column()+" = ? AND reporter_id = ?", targetID, viewer.ID).
		Count(&count).Error
	return count > 0, err
}

func (s *ReportService) ReportedByViewerMany(ctx context.Context, kind TargetKind, targetIDs []uint, viewer *models.User) (map[uint]bool, error) {
	return reportedBy(s.db.WithContext(ctx), kind, targetIDs, viewer)
}

func reportedBy(tx *gorm.DB, kind TargetKind, targetIDs []uint, viewer *models.User) (map[uint]bool, error) {
	flags := make(map[uint]bool)
	if viewer == nil || len(targetIDs) == 0 {
		return flags, nil
	}
	var ids []uint
	err := tx.Table(kind.table()).
		Where(kind.column()+" IN ? AND reporter_id = ?", targetIDs, viewer.ID).
		Pluck(kind.column(), &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		flags[id] = true
	}
	return flags, nil
}

// Clear 清空某文档的举报，可重复调用
func (s *ReportService) Clear(ctx context.Context, documentID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadDocument(tx, documentID); err != nil {
			return err
		}
		return tx.Where("document_id = ?", documentID).Delete(&models.DocumentReport{}).Error
	})
}

type ReportView struct {
	ID            uint      `json:"id"`
	Reason        *string   `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
	ReporterID    uint      `json:"reporter_id"`
	ReporterName  string    `json:"reporter_name"`
	ReporterEmail string    `json:"reporter_email"`
}

// List 管理员查看某文档的举报，按时间倒序
func (s *ReportService) List(ctx context.Context, documentID uint) ([]ReportView, error) {
	if _, err := loadDocument(s.db.WithContext(ctx), documentID); err != nil {
		return nil, err
	}

	var reports []models.DocumentReport
	err := s.db.WithContext(ctx).Preload("Reporter").
		Where("document_id = ?", documentID).
		Order("created_at DESC, id DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}

	views := make([]ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, ReportView{
			ID:            r.ID,
			Reason:        r.Reason,
			CreatedAt:     r.CreatedAt,
			ReporterID:    r.ReporterID,
			ReporterName:  r.Reporter.DisplayName(),
			ReporterEmail: r.Reporter.Email,
		})
	}
	return views, nil
}

func loadDocument(tx *gorm.DB, id uint) (*models.Document, error) {
	var doc models.Document
	if err := tx.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("document not found")
		}
		return nil, err
	}
	return &doc, nil
}
