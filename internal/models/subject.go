package models

import "time"

// Subject 学科/课程分类
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// 非数据库字段
	DocumentCount int64 `gorm:"-" json:"document_count"`
}

// Category 文件类型（PDF、Word ...），上传时自动识别
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null;uniqueIndex" json:"name"`
}
