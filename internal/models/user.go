package models

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"not null" json:"username"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"not null" json:"-"`                           // Hash
	Role       string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	AvatarPath string    `gorm:"size:255" json:"avatar_path"`
	Verified   bool      `gorm:"default:false" json:"-"` // 仅管理后台可见
	Locked     bool      `gorm:"default:false" json:"-"`
	LockReason string    `gorm:"size:255" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin 角色名不区分大小写
func (u *User) IsAdmin() bool {
	return u != nil && strings.EqualFold(strings.TrimSpace(u.Role), RoleAdmin)
}

// DisplayName 优先用户名，其次邮箱
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return u.Email
}

// AvatarURL 返回头像访问路径，未设置时为空
func (u *User) AvatarURL() string {
	if u == nil || u.AvatarPath == "" {
		return ""
	}
	return "/api/profile/avatar/" + u.AvatarPath
}
