package router

import (
	"docshare/internal/handlers"
	"docshare/internal/middleware"
	"docshare/internal/services"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 需要在 sessions 中间件之后调用
func RegisterRoutes(r *gin.Engine, app *services.App, siteURL string) {
	// Handlers
	authHandler := handlers.NewAuthHandler(app)
	documentHandler := handlers.NewDocumentHandler(app)
	subjectHandler := handlers.NewSubjectHandler(app)
	notificationHandler := handlers.NewNotificationHandler(app)
	userHandler := handlers.NewUserHandler(app)
	adminHandler := handlers.NewAdminHandler(app)
	seoHandler := handlers.NewSEOHandler(app, siteURL)

	r.Use(middleware.LoadUser(app))

	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.POST("/auth/register", authHandler.Register)             // 注册并登录
	api.POST("/auth/login", authHandler.Login)                   // 登录
	api.POST("/auth/logout", authHandler.Logout)                 // 退出登录
	api.GET("/auth/me", authHandler.Me)                          // 当前用户
	api.GET("/subjects", subjectHandler.List)                    // 学科列表
	api.GET("/users/:id", userHandler.Profile)                   // 用户主页
	api.GET("/profile/avatar/*path", userHandler.Avatar)         // 头像
	api.GET("/documents", documentHandler.List)                  // 文档列表
	api.GET("/documents/:id", documentHandler.Get)               // 文档信息
	api.GET("/documents/:id/detail", documentHandler.Detail)     // 详情：评分、评论、举报
	api.GET("/documents/:id/comments", documentHandler.Comments) // 评论树
	api.GET("/documents/:id/rating", documentHandler.Rating)     // 评分汇总
	api.GET("/documents/:id/preview", documentHandler.Preview)   // 预览图
	api.GET("/documents/:id/download", documentHandler.Download) // 下载

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/documents", documentHandler.Upload)                                       // 上传文档
		authorized.POST("/documents/:id/comments", documentHandler.AddComment)                      // 发表评论
		authorized.POST("/documents/:id/rating", documentHandler.Rate)                              // 评分
		authorized.POST("/documents/:id/report", documentHandler.ReportDocument)                    // 举报文档
		authorized.POST("/documents/:id/comments/:commentId/report", documentHandler.ReportComment) // 举报评论
		authorized.PUT("/documents/:id/subject", documentHandler.AssignSubject)                     // 选择学科

		authorized.PATCH("/profile", userHandler.UpdateProfile)      // 修改用户名
		authorized.POST("/profile/avatar", userHandler.UploadAvatar) // 上传头像

		authorized.GET("/notifications", notificationHandler.List)              // 我的通知列表
		authorized.POST("/notifications/:id/read", notificationHandler.Read)    // 标记单条通知为已读
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部通知标记为已读
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)     // 删除单条通知
	}

	// 管理后台 (Admin Routes)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/overview", adminHandler.Overview)
		admin.GET("/users", adminHandler.Users)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)

		admin.GET("/documents", adminHandler.Documents)
		admin.GET("/documents/pending", adminHandler.PendingDocuments)
		admin.POST("/documents/:id/review", adminHandler.Review)
		admin.DELETE("/documents/:id", adminHandler.DeleteDocument)
		admin.PUT("/documents/:id/subject", adminHandler.ChangeSubject)
		admin.GET("/documents/:id/reports", adminHandler.Reports)
		admin.DELETE("/documents/:id/reports", adminHandler.ClearReports)

		admin.GET("/comments", adminHandler.Comments)
		admin.DELETE("/comments/:id", adminHandler.DeleteComment)
	}

	subjects := api.Group("/subjects")
	subjects.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		subjects.POST("", subjectHandler.Create)
		subjects.PUT("/:id", subjectHandler.Rename)
		subjects.DELETE("/:id", subjectHandler.Delete)
	}
}
