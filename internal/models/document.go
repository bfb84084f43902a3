package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	ReviewPending  = "PENDING"
	ReviewApproved = "APPROVED"
)

type Document struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Description    *string    `gorm:"type:text" json:"description"`
	UserID         *uint      `gorm:"index" json:"user_id"` // Owner
	User           *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"user,omitempty"`
	SubjectID      *uint      `gorm:"index" json:"subject_id"`
	Subject        *Subject   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"subject,omitempty"`
	CategoryID     *uint      `gorm:"index" json:"category_id"`
	Category       *Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	FileKey        string     `gorm:"size:255;not null" json:"-"`
	FileName       string     `gorm:"size:255" json:"file_name"`
	ContentType    string     `gorm:"size:100" json:"content_type"`
	Size           int64      `json:"size"`
	ReviewStatus   string     `gorm:"size:20;index" json:"review_status"` // 空值视为 APPROVED（旧数据）
	ReviewReason   *string    `gorm:"type:text" json:"review_reason"`
	ReviewedBy     string     `gorm:"size:255" json:"reviewed_by"`
	ReviewedAt     *time.Time `json:"reviewed_at"`
	PendingSubject bool       `gorm:"default:false;index" json:"pending_subject"`
	DownloadCount  int64      `gorm:"default:0" json:"download_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// EffectiveStatus blank status counts as approved
func (d *Document) EffectiveStatus() string {
	s := strings.ToUpper(strings.TrimSpace(d.ReviewStatus))
	if s == "" {
		return ReviewApproved
	}
	return s
}

// AfterFind 读出时规范化审核状态，旧数据的空值按 APPROVED 输出
func (d *Document) AfterFind(tx *gorm.DB) error {
	d.ReviewStatus = d.EffectiveStatus()
	return nil
}

func (d *Document) IsApproved() bool {
	return d.EffectiveStatus() == ReviewApproved
}

func (d *Document) IsClassified() bool {
	return !d.PendingSubject && d.SubjectID != nil
}

func (d *Document) IsOwnedBy(userID uint) bool {
	return d.UserID != nil && *d.UserID == userID
}
