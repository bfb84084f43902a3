package models

import (
	"time"
)

type DocumentReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex:idx_doc_report_reporter" json:"document_id"`
	Document   Document  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ReporterID uint      `gorm:"not null;uniqueIndex:idx_doc_report_reporter;index" json:"reporter_id"`
	Reporter   User      `gorm:"foreignKey:ReporterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reporter"`
	Reason     *string   `gorm:"size:500" json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

type CommentReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CommentID  uint      `gorm:"not null;uniqueIndex:idx_comment_report_reporter" json:"comment_id"`
	Comment    Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ReporterID uint      `gorm:"not null;uniqueIndex:idx_comment_report_reporter;index" json:"reporter_id"`
	Reporter   User      `gorm:"foreignKey:ReporterID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reporter"`
	Reason     *string   `gorm:"size:500" json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
