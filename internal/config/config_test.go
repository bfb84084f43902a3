package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 200, cfg.MaxUploadMB)
	assert.Equal(t, int64(200*1024*1024), cfg.MaxUploadBytes())
	assert.Equal(t, "disk", cfg.StorageDriver)
	assert.False(t, cfg.MinioUseSSL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("STORAGE_DRIVER", "MinIO")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("PREVIEW_CACHE_SIZE", "not-a-number")
	t.Setenv("SITE_URL", "https://docs.example.com/")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.MaxUploadMB)
	assert.Equal(t, "minio", cfg.StorageDriver)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 200, cfg.PreviewCacheSize)
	assert.Equal(t, "https://docs.example.com", cfg.SiteURL)
}
