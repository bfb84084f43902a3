package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"docshare/internal/logger"
	"docshare/internal/models"
	"docshare/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 连接数据库并完成迁移
func Init(dsn string) error {
	conn, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.L().Info().Msg("Database connection established")

	if err := Migrate(conn); err != nil {
		return err
	}
	DB = conn
	return nil
}

// Config is shared with tests so unique violations surface as gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.Category{},
		&models.Document{},
		&models.Comment{},
		&models.Rating{},
		&models.DocumentReport{},
		&models.CommentReport{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.L().Info().Msg("Database migration completed")

	return seedCategories(conn)
}

func seedCategories(conn *gorm.DB) error {
	var count int64
	conn.Model(&models.Category{}).Count(&count)
	if count > 0 {
		return nil
	}

	for _, name := range utils.AllCategories {
		if err := conn.Create(&models.Category{Name: name}).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", name, err)
		}
	}
	logger.L().Info().Int("count", len(utils.AllCategories)).Msg("Initial categories created")
	return nil
}

// EnsureAdmin 创建或提升引导管理员账号
func EnsureAdmin(conn *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var user models.User
	err := conn.Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.IsAdmin() {
			return nil
		}
		return conn.Model(&user).Update("role", models.RoleAdmin).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user = models.User{
		Username: strings.Split(email, "@")[0],
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
		Verified: true,
	}
	if err := conn.Create(&user).Error; err != nil {
		return err
	}
	logger.L().Info().Str("email", email).Msg("Bootstrap admin created")
	return nil
}
