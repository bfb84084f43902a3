package main

import (
	"context"
	"os"
	"time"

	"docshare/internal/config"
	"docshare/internal/db"
	"docshare/internal/logger"
	"docshare/internal/preview"
	"docshare/internal/router"
	"docshare/internal/services"
	"docshare/internal/storage"
	"docshare/internal/utils"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg := config.Load()

	logData, err := logger.New().FromPath(cfg.LogFile).WithLevel(cfg.LogLevel).Make()
	if err != nil {
		stderrLog := zerolog.New(os.Stderr)
		stderrLog.Fatal().Err(err).Msg("failed to open log file")
	}
	defer logData.Close()
	logger.SetGlobal(logData.Logger)
	log := logger.L()
	if envErr != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	// Initialize Database
	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	if err := db.EnsureAdmin(db.DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to create admin account")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open file storage")
	}

	previews, err := utils.NewCache[[]byte](cfg.PreviewCacheSize, 30*time.Minute)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create preview cache")
	}

	app := services.NewApp(db.DB, services.Options{
		Store:     store,
		Renderer:  preview.NewCardRenderer(),
		Previews:  previews,
		MaxUpload: cfg.MaxUploadBytes(),
	})

	// Initialize Gin
	r := gin.New()
	r.Use(gin.Recovery(), logger.Gin())
	// 文件和图片本身已压缩，不再 gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{
		`/download$`,
		`/preview$`,
		`^/api/profile/avatar/`,
	})))
	r.MaxMultipartMemory = 32 << 20

	// Setup Sessions
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: 30 * 24 * 3600, HttpOnly: true})
	r.Use(sessions.Sessions("docshare_session", sessionStore))

	router.RegisterRoutes(r, app, cfg.SiteURL)

	log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func openStore(cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == "minio" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewDiskStore(cfg.UploadDir)
}
