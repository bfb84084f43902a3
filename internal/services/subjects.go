package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"docshare/internal/models"
	"docshare/internal/utils"

	"gorm.io/gorm"
)

const maxSubjectNameLength = 150

type SubjectService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewSubjectService(db *gorm.DB, notifier *NotificationService) *SubjectService {
	return &SubjectService{db: db, notifier: notifier}
}

// List 所有学科及其已通过审核的文档数
func (s *SubjectService) List(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}

	type result struct {
		SubjectID uint
		Count     int64
	}
	var results []result
	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Select("subject_id, COUNT(*) AS count").
		Where("subject_id IS NOT NULL AND UPPER(COALESCE(review_status, '')) IN ?", []string{models.ReviewApproved, ""}).
		Group("subject_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(results))
	for _, r := range results {
		counts[r.SubjectID] = r.Count
	}
	for i := range subjects {
		subjects[i].DocumentCount = counts[subjects[i].ID]
	}
	return subjects, nil
}

func sanitizeSubjectName(name string) (string, error) {
	name = utils.CollapseSpaces(utils.StripTags(name))
	if name == "" {
		return "", Validation("subject name is required")
	}
	if utf8.RuneCountInString(name) > maxSubjectNameLength {
		return "", Validation("subject name must be at most %d characters", maxSubjectNameLength)
	}
	return name, nil
}

// ensureUniqueName 名称不区分大小写唯一，exceptID 为重命名时的自身 ID
func ensureUniqueName(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Subject{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return Conflict("subject %q already exists", name)
	}
	return nil
}

func (s *SubjectService) Create(ctx context.Context, name string) (*models.Subject, error) {
	name, err := sanitizeSubjectName(name)
	if err != nil {
		return nil, err
	}

	subject := models.Subject{Name: name}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName(tx, name, 0); err != nil {
			return err
		}
		if err := tx.Create(&subject).Error; err != nil {
			return duplicateAsConflict(err, "subject already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (s *SubjectService) Rename(ctx context.Context, id uint, name string) (*models.Subject, error) {
	name, err := sanitizeSubjectName(name)
	if err != nil {
		return nil, err
	}

	var subject models.Subject
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&subject, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("subject not found")
			}
			return err
		}
		if err := ensureUniqueName(tx, name, id); err != nil {
			return err
		}
		if err := tx.Model(&subject).Update("name", name).Error; err != nil {
			return duplicateAsConflict(err, "subject already exists")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// Delete 删除学科：其下文档回到待分类状态并通知上传者，全部在一个事务内完成
func (s *SubjectService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var subject models.Subject
		if err := tx.First(&subject, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("subject not found")
			}
			return err
		}

		var docs []models.Document
		if err := tx.Where("subject_id = ?", id).Find(&docs).Error; err != nil {
			return err
		}

		if len(docs) > 0 {
			err := tx.Model(&models.Document{}).
				Where("subject_id = ?", id).
				Updates(map[string]interface{}{
					"subject_id":      nil,
					"pending_subject": true,
				}).Error
			if err != nil {
				return err
			}
		}

		for i := range docs {
			doc := &docs[i]
			if doc.UserID == nil {
				continue
			}
			if err := s.notifier.Dispatch(tx, pendingSubjectEvent(doc, subject.Name), ToUser(*doc.UserID)); err != nil {
				return err
			}
		}

		return tx.Delete(&subject).Error
	})
}

// AssignSubject 上传者为待分类文档选择学科；管理员可随时修改
func (s *SubjectService) AssignSubject(ctx context.Context, documentID, subjectID uint, requester *models.User, privileged bool) (*models.Document, error) {
	if requester == nil {
		return nil, Forbidden("login required")
	}

	var doc *models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = loadDocument(tx, documentID)
		if err != nil {
			return err
		}
		owner := doc.IsOwnedBy(requester.ID)
		if !owner && !privileged {
			return Forbidden("only the uploader or an administrator can change the subject")
		}
		if doc.IsClassified() && !privileged {
			return Validation("this document already has a subject")
		}
		return s.updateSubject(tx, doc, subjectID, privileged && !owner)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ChangeSubject 管理员直接修改学科，总是通知上传者
func (s *SubjectService) ChangeSubject(ctx context.Context, documentID, subjectID uint) (*models.Document, error) {
	var doc *models.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = loadDocument(tx, documentID)
		if err != nil {
			return err
		}
		return s.updateSubject(tx, doc, subjectID, true)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SubjectService) updateSubject(tx *gorm.DB, doc *models.Document, subjectID uint, notifyOwner bool) error {
	if subjectID == 0 {
		return Validation("subject is required")
	}
	var next models.Subject
	if err := tx.First(&next, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("subject not found")
		}
		return err
	}

	var previous string
	if doc.SubjectID != nil {
		var prev models.Subject
		if err := tx.First(&prev, *doc.SubjectID).Error; err == nil {
			previous = prev.Name
		}
	}

	err := tx.Model(doc).Updates(map[string]interface{}{
		"subject_id":      next.ID,
		"pending_subject": false,
	}).Error
	if err != nil {
		return err
	}
	doc.SubjectID = &next.ID
	doc.PendingSubject = false
	doc.Subject = &next

	if notifyOwner && doc.UserID != nil {
		return s.notifier.Dispatch(tx, subjectChangedEvent(doc, previous, next.Name), ToUser(*doc.UserID))
	}
	return nil
}
