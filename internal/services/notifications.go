package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docshare/internal/models"

	"gorm.io/gorm"
)

const (
	notificationListLimit = 50
	reasonMarker          = "Reason:"
)

// Event 一次通知事件，派发时为每个接收者生成一条记录
type Event struct {
	Type          models.NotificationType
	Message       string
	DocumentID    *uint
	DocumentTitle string
	SubjectName   string
	Reason        *string
}

// Audience is either a single user or every privileged user.
type Audience struct {
	userID     uint
	privileged bool
}

func ToUser(userID uint) Audience {
	return Audience{userID: userID}
}

func ToPrivileged() Audience {
	return Audience{privileged: true}
}

type NotificationService struct {
	db    *gorm.DB
	users *UserService
}

func NewNotificationService(db *gorm.DB, users *UserService) *NotificationService {
	return &NotificationService{db: db, users: users}
}

// Dispatch writes one row per recipient inside the caller's transaction.
func (s *NotificationService) Dispatch(tx *gorm.DB, ev Event, aud Audience) error {
	var recipients []uint
	if aud.privileged {
		admins, err := s.users.Privileged(tx)
		if err != nil {
			return fmt.Errorf("load admins: %w", err)
		}
		for _, a := range admins {
			recipients = append(recipients, a.ID)
		}
	} else if aud.userID != 0 {
		recipients = append(recipients, aud.userID)
	}
	if len(recipients) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		rows = append(rows, models.Notification{
			UserID:        id,
			Type:          ev.Type,
			Message:       ev.Message,
			DocumentID:    ev.DocumentID,
			DocumentTitle: ev.DocumentTitle,
			SubjectName:   ev.SubjectName,
			Reason:        ev.Reason,
		})
	}
	return tx.Create(&rows).Error
}

// NotificationView 通知列表项，DocumentID 为空表示文档已不存在
type NotificationView struct {
	ID            uint                    `json:"id"`
	Type          models.NotificationType `json:"type"`
	Message       string                  `json:"message"`
	DocumentID    *uint                   `json:"document_id"`
	DocumentTitle string                  `json:"document_title"`
	SubjectName   string                  `json:"subject_name"`
	Reason        *string                 `json:"reason"`
	Read          bool                    `json:"read"`
	CreatedAt     time.Time               `json:"created_at"`
}

func (s *NotificationService) List(ctx context.Context, userID uint) ([]NotificationView, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(notificationListLimit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// 解析弱引用：文档删除后不再返回其 ID
	var docIDs []uint
	for _, n := range rows {
		if n.DocumentID != nil {
			docIDs = append(docIDs, *n.DocumentID)
		}
	}
	live := make(map[uint]bool, len(docIDs))
	if len(docIDs) > 0 {
		var ids []uint
		if err := s.db.WithContext(ctx).Model(&models.Document{}).Where("id IN ?", docIDs).Pluck("id", &ids).Error; err != nil {
			return nil, err
		}
		for _, id := range ids {
			live[id] = true
		}
	}

	views := make([]NotificationView, 0, len(rows))
	for _, n := range rows {
		v := NotificationView{
			ID:            n.ID,
			Type:          n.Type,
			Message:       n.Message,
			DocumentTitle: n.DocumentTitle,
			SubjectName:   n.SubjectName,
			Reason:        ExtractReason(n),
			Read:          n.IsRead,
			CreatedAt:     n.CreatedAt,
		}
		if n.DocumentID != nil && live[*n.DocumentID] {
			id := *n.DocumentID
			v.DocumentID = &id
		}
		views = append(views, v)
	}
	return views, nil
}

// ExtractReason prefers the stored reason and only scans the message for older rows.
func ExtractReason(n models.Notification) *string {
	if n.Reason != nil && strings.TrimSpace(*n.Reason) != "" {
		r := strings.TrimSpace(*n.Reason)
		return &r
	}
	idx := strings.LastIndex(n.Message, reasonMarker)
	if idx < 0 {
		return nil
	}
	r := strings.TrimSpace(n.Message[idx+len(reasonMarker):])
	if r == "" {
		return nil
	}
	return &r
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	return s.db.WithContext(ctx).Model(n).Update("is_read", true).Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(n).Error
}

// 只能操作自己的通知，别人的按不存在处理
func (s *NotificationService) owned(ctx context.Context, userID, id uint) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("notification not found")
		}
		return nil, err
	}
	return &n, nil
}

func docRef(doc *models.Document) *uint {
	if doc == nil || doc.ID == 0 {
		return nil
	}
	id := doc.ID
	return &id
}

func withReason(message string, reason *string) string {
	if reason == nil {
		return message
	}
	return message + " " + reasonMarker + " " + *reason
}

func subjectLabel(name string) string {
	if name == "" {
		return "(none)"
	}
	return `"` + name + `"`
}

func pendingReviewEvent(doc *models.Document, uploader, subject string, pending int64) Event {
	if pending < 1 {
		pending = 1
	}
	msg := fmt.Sprintf(`Currently %d document(s) awaiting review. "%s" was uploaded by %s`, pending, doc.Title, uploader)
	if subject != "" {
		msg += fmt.Sprintf(` for subject "%s"`, subject)
	}
	return Event{
		Type:          models.NotificationReviewPending,
		Message:       msg + ".",
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		SubjectName:   subject,
	}
}

func reviewApprovedEvent(doc *models.Document) Event {
	return Event{
		Type:          models.NotificationReviewApproved,
		Message:       fmt.Sprintf(`Your document "%s" has been approved and is now visible to everyone.`, doc.Title),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
	}
}

func reviewRejectedEvent(doc *models.Document, reason string) Event {
	return Event{
		Type:          models.NotificationReviewRejected,
		Message:       withReason(fmt.Sprintf(`Your document "%s" was rejected and removed.`, doc.Title), &reason),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		Reason:        &reason,
	}
}

func documentRemovedEvent(doc *models.Document, reason *string) Event {
	return Event{
		Type:          models.NotificationDocumentRemoval,
		Message:       withReason(fmt.Sprintf(`Your document "%s" was removed by an administrator.`, doc.Title), reason),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		Reason:        reason,
	}
}

func commentRemovedEvent(doc *models.Document, excerpt string, reason *string) Event {
	return Event{
		Type:          models.NotificationCommentRemoval,
		Message:       withReason(fmt.Sprintf(`Your comment "%s" on "%s" was removed by an administrator.`, excerpt, doc.Title), reason),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		Reason:        reason,
	}
}

func documentReportedEvent(doc *models.Document, reporter string, reason *string) Event {
	return Event{
		Type:          models.NotificationDocumentReport,
		Message:       withReason(fmt.Sprintf(`%s reported the document "%s".`, reporter, doc.Title), reason),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		Reason:        reason,
	}
}

func commentReportedEvent(doc *models.Document, excerpt, reporter string, reason *string) Event {
	return Event{
		Type:          models.NotificationCommentReport,
		Message:       withReason(fmt.Sprintf(`%s reported a comment on "%s": "%s"`, reporter, doc.Title, excerpt), reason),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		Reason:        reason,
	}
}

func subjectChangedEvent(doc *models.Document, previous, next string) Event {
	return Event{
		Type: models.NotificationSubjectChange,
		Message: fmt.Sprintf(`An administrator moved your document "%s" from subject %s to %s.`,
			doc.Title, subjectLabel(previous), subjectLabel(next)),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		SubjectName:   next,
	}
}

func pendingSubjectEvent(doc *models.Document, removedSubject string) Event {
	return Event{
		Type: models.NotificationPendingSubject,
		Message: fmt.Sprintf(`The subject "%s" was deleted. Please choose a new subject for your document "%s".`,
			removedSubject, doc.Title),
		DocumentID:    docRef(doc),
		DocumentTitle: doc.Title,
		SubjectName:   removedSubject,
	}
}
