package models

import (
	"time"
)

type NotificationType string

const (
	NotificationReviewPending   NotificationType = "DOCUMENT_REVIEW_PENDING"
	NotificationReviewApproved  NotificationType = "DOCUMENT_REVIEW_APPROVED"
	NotificationReviewRejected  NotificationType = "DOCUMENT_REVIEW_REJECTED"
	NotificationDocumentRemoval NotificationType = "DOCUMENT_REMOVAL"
	NotificationCommentRemoval  NotificationType = "COMMENT_REMOVAL"
	NotificationCommentReport   NotificationType = "COMMENT_REPORT"
	NotificationDocumentReport  NotificationType = "DOCUMENT_REPORT"
	NotificationSubjectChange   NotificationType = "DOCUMENT_SUBJECT_CHANGE"
	NotificationPendingSubject  NotificationType = "PENDING_SUBJECT"
)

type Notification struct {
	ID     uint             `gorm:"primaryKey" json:"id"`
	UserID uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User   User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Type   NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	// DocumentID 弱引用：文档删除后通知仍保留
	DocumentID    *uint     `gorm:"index" json:"document_id"`
	DocumentTitle string    `gorm:"size:255" json:"document_title"`
	SubjectName   string    `gorm:"size:150" json:"subject_name"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	Reason        *string   `gorm:"type:text" json:"reason"`
	IsRead        bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}
