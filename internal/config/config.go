package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	SiteURL       string
	DatabaseURL   string
	SessionSecret string

	// 文件存储: disk 或 minio
	StorageDriver  string
	UploadDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	MaxUploadMB      int
	PreviewCacheSize int

	LogLevel string
	LogFile  string

	// 首次启动时创建的管理员账号，留空则跳过
	AdminEmail    string
	AdminPassword string
}

func Load() Config {
	return Config{
		Port:          getenv("PORT", "8080"),
		SiteURL:       strings.TrimRight(getenv("SITE_URL", "http://localhost:8080"), "/"),
		DatabaseURL:   getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=docshare port=5432 sslmode=disable"),
		SessionSecret: getenv("SESSION_SECRET", "secret_key_change_me"),

		StorageDriver:  strings.ToLower(getenv("STORAGE_DRIVER", "disk")),
		UploadDir:      getenv("UPLOAD_DIR", "./data/uploads"),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "documents"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),

		MaxUploadMB:      getenvInt("MAX_UPLOAD_MB", 200),
		PreviewCacheSize: getenvInt("PREVIEW_CACHE_SIZE", 200),

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  getenv("LOG_FILE", ""),

		AdminEmail:    getenv("ADMIN_EMAIL", ""),
		AdminPassword: getenv("ADMIN_PASSWORD", ""),
	}
}

// MaxUploadBytes 单个文件上传上限
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
