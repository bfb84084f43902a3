package services

import (
	"docshare/internal/models"

	"gorm.io/gorm"
)

// CanView 访问控制：管理员可见全部；其他人只能看已通过审核的文档或自己上传的文档
func CanView(doc *models.Document, viewer *models.User, privileged bool) bool {
	if doc == nil {
		return false
	}
	if privileged {
		return true
	}
	if doc.IsApproved() {
		return true
	}
	return viewer != nil && doc.IsOwnedBy(viewer.ID)
}

// visibleScope is the SQL form of CanView, used to filter listings before LIMIT.
func visibleScope(viewer *models.User, privileged bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if privileged {
			return db
		}
		statuses := []string{models.ReviewApproved, ""}
		approved := "UPPER(TRIM(COALESCE(review_status, ''))) IN ?"
		if viewer == nil {
			return db.Where(approved, statuses)
		}
		return db.Where("("+approved+" OR user_id = ?)", statuses, viewer.ID)
	}
}
