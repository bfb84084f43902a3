package services

import (
	"docshare/internal/preview"
	"docshare/internal/storage"
	"docshare/internal/utils"

	"gorm.io/gorm"
)

// App 汇总所有业务服务，供 handler 使用
type App struct {
	Users         *UserService
	Notifications *NotificationService
	Reports       *ReportService
	Threads       *ThreadService
	Review        *ReviewService
	Subjects      *SubjectService
	Documents     *DocumentService
	Admin         *AdminService
	Profiles      *ProfileService
}

type Options struct {
	Store     storage.Store
	Renderer  preview.Renderer
	Previews  *utils.Cache[[]byte]
	MaxUpload int64
}

func NewApp(db *gorm.DB, opts Options) *App {
	users := NewUserService(db)
	notifier := NewNotificationService(db, users)
	reports := NewReportService(db, users, notifier)
	threads := NewThreadService(db, users, reports)
	review := NewReviewService(db, notifier, reports, opts.Store, opts.Previews)

	return &App{
		Users:         users,
		Notifications: notifier,
		Reports:       reports,
		Threads:       threads,
		Review:        review,
		Subjects:      NewSubjectService(db, notifier),
		Documents: NewDocumentService(db, DocumentDeps{
			Users:     users,
			Notifier:  notifier,
			Review:    review,
			Reports:   reports,
			Threads:   threads,
			Store:     opts.Store,
			Renderer:  opts.Renderer,
			Previews:  opts.Previews,
			MaxUpload: opts.MaxUpload,
		}),
		Admin:    NewAdminService(db, reports),
		Profiles: NewProfileService(db, opts.Store),
	}
}
