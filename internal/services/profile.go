package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"docshare/internal/logger"
	"docshare/internal/models"
	"docshare/internal/storage"
	"docshare/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	avatarPrefix      = "avatars/"
	maxAvatarBytes    = 2 * 1024 * 1024
	maxUsernameLength = 50
)

type ProfileService struct {
	db    *gorm.DB
	store storage.Store
}

func NewProfileService(db *gorm.DB, store storage.Store) *ProfileService {
	return &ProfileService{db: db, store: store}
}

// PublicProfile 用户主页展示的信息，不含邮箱
type PublicProfile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	Documents int64     `json:"documents"`
	Comments  int64     `json:"comments"`
}

func (s *ProfileService) Public(ctx context.Context, id uint) (*PublicProfile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, err
	}

	p := PublicProfile{
		ID:        user.ID,
		Username:  user.DisplayName(),
		AvatarURL: user.AvatarURL(),
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
	}
	// 只统计公开可见的文档
	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("user_id = ? AND UPPER(COALESCE(review_status, '')) IN ?", user.ID, []string{models.ReviewApproved, ""}).
		Count(&p.Documents).Error
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&p.Comments).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileService) UpdateUsername(ctx context.Context, user *models.User, name string) (*models.User, error) {
	if user == nil {
		return nil, Forbidden("login required")
	}
	name = utils.CollapseSpaces(utils.StripTags(name))
	if name == "" {
		return nil, Validation("username is required")
	}
	if utf8.RuneCountInString(name) > maxUsernameLength {
		return nil, Validation("username must be at most %d characters", maxUsernameLength)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("username", name).Error; err != nil {
		return nil, err
	}
	user.Username = name
	return user, nil
}

type AvatarInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SetAvatar 保存新头像并删除旧文件
func (s *ProfileService) SetAvatar(ctx context.Context, user *models.User, in AvatarInput) (*models.User, error) {
	if user == nil {
		return nil, Forbidden("login required")
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, Validation("only image files are allowed")
	}
	if in.Body == nil || in.Size <= 0 {
		return nil, Validation("file is empty")
	}
	if in.Size > maxAvatarBytes {
		return nil, Validation("avatar must be at most 2 MB")
	}

	key := avatarPrefix + uuid.NewString()
	if ext := utils.Ext(in.FileName); ext != "" {
		key += "." + ext
	}
	if err := s.store.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	old := user.AvatarPath
	if err := s.db.WithContext(ctx).Model(user).Update("avatar_path", key).Error; err != nil {
		s.remove(context.WithoutCancel(ctx), key)
		return nil, err
	}
	user.AvatarPath = key
	if old != "" {
		s.remove(ctx, old)
	}
	return user, nil
}

// OpenAvatar 只允许读取头像目录下的文件
func (s *ProfileService) OpenAvatar(ctx context.Context, path string) (io.ReadCloser, error) {
	path = strings.TrimPrefix(path, "/")
	if !strings.HasPrefix(path, avatarPrefix) || strings.Contains(path, "..") {
		return nil, NotFound("avatar not found")
	}
	rc, err := s.store.Open(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NotFound("avatar not found")
		}
		return nil, err
	}
	return rc, nil
}

func (s *ProfileService) remove(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		logger.L().Warn().Err(err).Str("file_key", key).Msg("failed to delete avatar")
	}
}
