package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"docshare/internal/logger"
	"docshare/internal/models"
	"docshare/internal/storage"
	"docshare/internal/utils"

	"gorm.io/gorm"
)

type ReviewService struct {
	db       *gorm.DB
	notifier *NotificationService
	reports  *ReportService
	store    storage.Store
	previews *utils.Cache[[]byte]
}

func NewReviewService(db *gorm.DB, notifier *NotificationService, reports *ReportService, store storage.Store, previews *utils.Cache[[]byte]) *ReviewService {
	return &ReviewService{
		db:       db,
		notifier: notifier,
		reports:  reports,
		store:    store,
		previews: previews,
	}
}

// Submit 新上传的文档进入待审核状态，并提醒所有管理员。必须在上传事务内调用
func (s *ReviewService) Submit(tx *gorm.DB, doc *models.Document) error {
	doc.ReviewStatus = models.ReviewPending
	doc.ReviewReason = nil
	doc.ReviewedBy = ""
	doc.ReviewedAt = nil
	if err := tx.Save(doc).Error; err != nil {
		return err
	}

	var pending int64
	if err := tx.Model(&models.Document{}).Where("review_status = ?", models.ReviewPending).Count(&pending).Error; err != nil {
		return err
	}

	var uploader models.User
	if doc.UserID != nil {
		if err := tx.First(&uploader, *doc.UserID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load uploader: %w", err)
		}
	}
	var subject models.Subject
	if doc.SubjectID != nil {
		if err := tx.First(&subject, *doc.SubjectID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load subject: %w", err)
		}
	}
	return s.notifier.Dispatch(tx, pendingReviewEvent(doc, reporterName(&uploader), subject.Name, pending), ToPrivileged())
}

type Decision int

const (
	DecisionApprove Decision = iota + 1
	DecisionReject
)

// ParseDecision accepts APPROVE/APPROVED and REJECT/REJECTED, any case, surrounding spaces ignored.
func ParseDecision(action string) (Decision, error) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "":
		return 0, Validation("review action is required")
	case "APPROVE", "APPROVED":
		return DecisionApprove, nil
	case "REJECT", "REJECTED":
		return DecisionReject, nil
	default:
		return 0, Validation("invalid review action %q", action)
	}
}

// Decide 管理员审核。通过后返回更新后的文档；驳回后文档被删除，返回 nil
func (s *ReviewService) Decide(ctx context.Context, documentID uint, action, reason string, reviewer *models.User) (*models.Document, error) {
	decision, err := ParseDecision(action)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(utils.StripTags(reason))

	var result *models.Document
	var removed *models.Document
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := loadDocument(tx, documentID)
		if err != nil {
			return err
		}

		switch decision {
		case DecisionApprove:
			now := time.Now()
			doc.ReviewedBy = reviewerName(reviewer)
			doc.ReviewedAt = &now
			doc.ReviewStatus = models.ReviewApproved
			doc.ReviewReason = nil
			if err := tx.Save(doc).Error; err != nil {
				return err
			}
			if doc.UserID != nil {
				if err := s.notifier.Dispatch(tx, reviewApprovedEvent(doc), ToUser(*doc.UserID)); err != nil {
					return err
				}
			}
			result = doc

		case DecisionReject:
			if trimmed == "" {
				return Validation("a reason is required when rejecting a document")
			}
			// 驳回直接删除文档
			if doc.UserID != nil {
				if err := s.notifier.Dispatch(tx, reviewRejectedEvent(doc, trimmed), ToUser(*doc.UserID)); err != nil {
					return err
				}
			}
			if err := deleteDocumentCascade(tx, doc.ID); err != nil {
				return err
			}
			removed = doc
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if removed != nil {
		s.afterRemoval(ctx, removed)
	}
	return result, nil
}

// AdminDelete 管理员删除文档，通知上传者（理由可选）
func (s *ReviewService) AdminDelete(ctx context.Context, documentID uint, reason string) error {
	var removed *models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := loadDocument(tx, documentID)
		if err != nil {
			return err
		}
		if doc.UserID != nil {
			ev := documentRemovedEvent(doc, utils.TrimToNil(utils.StripTags(reason)))
			if err := s.notifier.Dispatch(tx, ev, ToUser(*doc.UserID)); err != nil {
				return err
			}
		}
		if err := deleteDocumentCascade(tx, doc.ID); err != nil {
			return err
		}
		removed = doc
		return nil
	})
	if err != nil {
		return err
	}
	s.afterRemoval(ctx, removed)
	return nil
}

// deleteDocumentCascade removes the document and everything it owns. Notifications stay.
func deleteDocumentCascade(tx *gorm.DB, documentID uint) error {
	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("document_id = ?", documentID)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentReport{}).Error; err != nil {
		return err
	}
	if err := tx.Where("document_id = ?", documentID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("document_id = ?", documentID).Delete(&models.Rating{}).Error; err != nil {
		return err
	}
	if err := tx.Where("document_id = ?", documentID).Delete(&models.DocumentReport{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Document{}, documentID).Error
}

// afterRemoval 提交后清理文件，失败只记录日志
func (s *ReviewService) afterRemoval(ctx context.Context, doc *models.Document) {
	if s.previews != nil {
		s.previews.Delete(previewKey(doc.ID))
	}
	if s.store == nil || doc.FileKey == "" {
		return
	}
	if err := s.store.Delete(ctx, doc.FileKey); err != nil {
		logger.L().Warn().Err(err).
			Uint("document_id", doc.ID).
			Str("file_key", doc.FileKey).
			Msg("failed to delete stored file")
	}
}

type PendingDocument struct {
	models.Document
	ReportCount int64 `json:"report_count"`
}

// ListPending 待审核文档，最新的在前
func (s *ReviewService) ListPending(ctx context.Context, limit int) ([]PendingDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	var docs []models.Document
	err := s.db.WithContext(ctx).Preload("User").Preload("Subject").
		Where("UPPER(TRIM(review_status)) = ?", models.ReviewPending).
		Order("created_at DESC, id DESC").
		Limit(limit).
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

	out := make([]PendingDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, PendingDocument{Document: d, ReportCount: counts[d.ID]})
	}
	return out, nil
}

func reviewerName(u *models.User) string {
	if u == nil {
		return "system"
	}
	if u.Email != "" {
		return u.Email
	}
	return strconv.FormatUint(uint64(u.ID), 10)
}

func previewKey(documentID uint) string {
	return "preview:" + strconv.FormatUint(uint64(documentID), 10)
}
