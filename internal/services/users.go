package services

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"docshare/internal/models"
	"docshare/internal/utils"

	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ResolveViewer looks a user up by numeric id or email. Unknown identifiers resolve to nil.
func (s *UserService) ResolveViewer(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	var user models.User
	q := s.db.WithContext(ctx)
	if id, err := strconv.ParseUint(identifier, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("email = ?", strings.ToLower(identifier))
	}
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if user.Locked {
		return nil, nil
	}
	return &user, nil
}

func (s *UserService) IsPrivileged(user *models.User) bool {
	return user.IsAdmin()
}

// Privileged 在派发时实时查询管理员列表，不做缓存
func (s *UserService) Privileged(tx *gorm.DB) ([]models.User, error) {
	var admins []models.User
	err := tx.Where("LOWER(role) = ?", models.RoleAdmin).
		Order("id ASC").
		Find(&admins).Error
	return admins, err
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, Validation("invalid email address")
	}
	if len(password) < 6 {
		return nil, Validation("password must be at least 6 characters")
	}
	username = utils.CollapseSpaces(utils.StripTags(username))
	if username == "" {
		username = strings.Split(email, "@")[0]
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict("email already registered")
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Validation("invalid email or password")
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, Validation("invalid email or password")
	}
	if user.Locked {
		if user.LockReason != "" {
			return nil, Forbidden("account locked: %s", user.LockReason)
		}
		return nil, Forbidden("account locked")
	}
	return &user, nil
}
