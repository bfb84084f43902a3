package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docshare/internal/db"
	"docshare/internal/models"
	"docshare/internal/preview"
	"docshare/internal/storage"
	"docshare/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	app   *App
	store *storage.DiskStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	// IMMEDIATE 事务让并发写入排队等待，而不是直接返回 database is locked
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_txlock=immediate&_busy_timeout=10000"
	conn, err := gorm.Open(sqlite.Open(dsn), db.Config())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	store, err := storage.NewDiskStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	cache, err := utils.NewCache[[]byte](16, time.Hour)
	require.NoError(t, err)

	app := NewApp(conn, Options{
		Store:     store,
		Renderer:  preview.NewCardRenderer(),
		Previews:  cache,
		MaxUpload: 1024,
	})
	return &fixture{t: t, ctx: context.Background(), db: conn, app: app, store: store}
}

func (f *fixture) user(name, role string) *models.User {
	f.t.Helper()
	u := models.User{
		Username: name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "x",
		Role:     role,
	}
	require.NoError(f.t, f.db.Create(&u).Error)
	return &u
}

func (f *fixture) subject(name string) *models.Subject {
	f.t.Helper()
	s := models.Subject{Name: name}
	require.NoError(f.t, f.db.Create(&s).Error)
	return &s
}

// document inserts a row directly, bypassing Upload.
func (f *fixture) document(title string, owner *models.User, subject *models.Subject, status string) *models.Document {
	f.t.Helper()
	d := models.Document{
		Title:        title,
		FileKey:      "files/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + ".pdf",
		FileName:     title + ".pdf",
		ContentType:  "application/pdf",
		Size:         10,
		ReviewStatus: status,
	}
	if owner != nil {
		d.UserID = &owner.ID
	}
	if subject != nil {
		d.SubjectID = &subject.ID
	}
	require.NoError(f.t, f.db.Create(&d).Error)
	return &d
}

func (f *fixture) comment(doc *models.Document, author *models.User, content string, parent *models.Comment, at time.Time) *models.Comment {
	f.t.Helper()
	c := models.Comment{DocumentID: doc.ID, UserID: author.ID, Content: content, CreatedAt: at}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(f.t, f.db.Create(&c).Error)
	return &c
}

func (f *fixture) rating(doc *models.Document, user *models.User, score int, at time.Time) *models.Rating {
	f.t.Helper()
	r := models.Rating{DocumentID: doc.ID, UserID: user.ID, Score: score, RatedAt: at}
	require.NoError(f.t, f.db.Create(&r).Error)
	return &r
}

func (f *fixture) notificationsFor(u *models.User) []models.Notification {
	f.t.Helper()
	var out []models.Notification
	require.NoError(f.t, f.db.Where("user_id = ?", u.ID).Order("id ASC").Find(&out).Error)
	return out
}

func (f *fixture) count(model any, query string, args ...any) int64 {
	f.t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(f.t, q.Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

// failWrites makes every insert into or delete from table fail, so a
// transaction touching it has to roll back.
func (f *fixture) failWrites(table string) {
	f.t.Helper()
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			tx.AddError(errors.New(table + " unavailable"))
		}
	}
	require.NoError(f.t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_create_"+table, fail))
	require.NoError(f.t, f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete_"+table, fail))
}
