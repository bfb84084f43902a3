package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"docshare/internal/logger"
	"docshare/internal/models"
	"docshare/internal/preview"
	"docshare/internal/storage"
	"docshare/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentService struct {
	db        *gorm.DB
	users     *UserService
	notifier  *NotificationService
	review    *ReviewService
	reports   *ReportService
	threads   *ThreadService
	store     storage.Store
	renderer  preview.Renderer
	previews  *utils.Cache[[]byte]
	maxUpload int64
	rendering singleflight.Group
}

type DocumentDeps struct {
	Users     *UserService
	Notifier  *NotificationService
	Review    *ReviewService
	Reports   *ReportService
	Threads   *ThreadService
	Store     storage.Store
	Renderer  preview.Renderer
	Previews  *utils.Cache[[]byte]
	MaxUpload int64
}

func NewDocumentService(db *gorm.DB, deps DocumentDeps) *DocumentService {
	return &DocumentService{
		db:        db,
		users:     deps.Users,
		notifier:  deps.Notifier,
		review:    deps.Review,
		reports:   deps.Reports,
		threads:   deps.Threads,
		store:     deps.Store,
		renderer:  deps.Renderer,
		previews:  deps.Previews,
		maxUpload: deps.MaxUpload,
	}
}

// visible 加载文档并做访问控制，无权查看时返回 NotFound
func (s *DocumentService) visible(ctx context.Context, id uint, viewer *models.User) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).Preload("User").Preload("Subject").Preload("Category").First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("document not found")
		}
		return nil, err
	}
	if !CanView(&doc, viewer, s.users.IsPrivileged(viewer)) {
		return nil, NotFound("document not found")
	}
	return &doc, nil
}

type UploadInput struct {
	Owner       *models.User
	Title       string
	Description string
	SubjectID   uint
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload 保存文件并创建待审核文档
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*models.Document, error) {
	if in.Owner == nil {
		return nil, Forbidden("login required")
	}
	if in.SubjectID == 0 {
		return nil, Validation("subject is required")
	}
	if in.Body == nil || in.Size <= 0 {
		return nil, Validation("file is empty")
	}
	if s.maxUpload > 0 && in.Size > s.maxUpload {
		return nil, Validation("file exceeds the %d MB limit", s.maxUpload/(1024*1024))
	}

	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		fileName = "document"
	}
	title := utils.CollapseSpaces(utils.StripTags(in.Title))
	if title == "" {
		title = fileName
	}
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = utils.ContentTypeFromName(fileName)
	}

	var subject models.Subject
	if err := s.db.WithContext(ctx).First(&subject, in.SubjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("subject not found")
		}
		return nil, err
	}

	key := time.Now().Format("2006/01/") + uuid.NewString()
	if ext := utils.Ext(fileName); ext != "" {
		key += "." + ext
	}
	if err := s.store.Put(ctx, key, in.Body, in.Size, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	ownerID := in.Owner.ID
	doc := models.Document{
		Title:       title,
		Description: utils.TrimToNil(utils.StripTags(in.Description)),
		UserID:      &ownerID,
		SubjectID:   &subject.ID,
		FileKey:     key,
		FileName:    fileName,
		ContentType: contentType,
		Size:        in.Size,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if name := utils.DetectCategory(contentType, fileName); name != "" {
			var category models.Category
			if err := tx.Where("name = ?", name).First(&category).Error; err == nil {
				doc.CategoryID = &category.ID
			}
		}
		return s.review.Submit(tx, &doc)
	})
	if err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.L().Warn().Err(delErr).Str("file_key", key).Msg("failed to clean up stored file after upload error")
		}
		return nil, err
	}
	doc.Subject = &subject
	return &doc, nil
}

type ListFilter struct {
	SubjectID uint
	Query     string
	Limit     int
}

// List 返回当前用户可见的文档，最新的在前
func (s *DocumentService) List(ctx context.Context, viewer *models.User, f ListFilter) ([]models.Document, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 100
	}
	privileged := s.users.IsPrivileged(viewer)
	q := s.db.WithContext(ctx).Preload("User").Preload("Subject").Preload("Category").
		Scopes(visibleScope(viewer, privileged)).
		Order("created_at DESC, id DESC").
		Limit(f.Limit)
	if f.SubjectID != 0 {
		q = q.Where("subject_id = ?", f.SubjectID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	var docs []models.Document
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}

	out := make([]models.Document, 0, len(docs))
	for i := range docs {
		if CanView(&docs[i], viewer, privileged) {
			out = append(out, docs[i])
		}
	}
	return out, nil
}

func (s *DocumentService) Get(ctx context.Context, id uint, viewer *models.User) (*models.Document, error) {
	return s.visible(ctx, id, viewer)
}

type RatingSummary struct {
	Average   float64 `json:"average"`
	Count     int64   `json:"count"`
	UserScore *int    `json:"user_score"`
}

type DocumentDetail struct {
	Document         *models.Document `json:"document"`
	Rating           RatingSummary    `json:"rating"`
	Comments         []*ThreadNode    `json:"comments"`
	ViewerIsUploader bool             `json:"viewer_is_uploader"`
	ReportCount      int64            `json:"report_count"`
	ReportedByViewer bool             `json:"reported_by_viewer"`
}

func (s *DocumentService) Detail(ctx context.Context, id uint, viewer *models.User) (*DocumentDetail, error) {
	doc, err := s.visible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	var (
		comments    []*ThreadNode
		reportCount int64
		reported    bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		comments, err = s.threads.build(gctx, doc, viewer)
		return err
	})
	g.Go(func() (err error) {
		reportCount, err = s.reports.CountFor(gctx, TargetDocument, doc.ID)
		return err
	})
	g.Go(func() (err error) {
		reported, err = s.reports.ReportedByViewer(gctx, TargetDocument, doc.ID, viewer)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &DocumentDetail{
		Document:         doc,
		Rating:           s.summary(ctx, doc.ID, viewer),
		Comments:         comments,
		ViewerIsUploader: viewer != nil && doc.IsOwnedBy(viewer.ID),
		ReportCount:      reportCount,
		ReportedByViewer: reported,
	}, nil
}

func (s *DocumentService) Comments(ctx context.Context, id uint, viewer *models.User) ([]*ThreadNode, error) {
	return s.threads.Thread(ctx, id, viewer)
}

// AddComment 发表评论。顶层评论要求先评分（上传者除外），回复不受限制
func (s *DocumentService) AddComment(ctx context.Context, documentID uint, author *models.User, content string, parentID *uint) (*models.Comment, error) {
	if author == nil {
		return nil, Forbidden("login required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, Validation("comment content is required")
	}

	doc, err := s.visible(ctx, documentID, author)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		DocumentID: doc.ID,
		UserID:     author.ID,
		Content:    content,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NotFound("parent comment not found")
				}
				return err
			}
			if parent.DocumentID != doc.ID {
				return Validation("parent comment belongs to another document")
			}
			comment.ParentID = &parent.ID
		} else if !doc.IsOwnedBy(author.ID) {
			var rated int64
			if err := tx.Model(&models.Rating{}).
				Where("document_id = ? AND user_id = ?", doc.ID, author.ID).
				Count(&rated).Error; err != nil {
				return err
			}
			if rated == 0 {
				return Validation("please rate this document before commenting")
			}
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	comment.User = *author
	return &comment, nil
}

// Rate 评分（1-5），重复评分覆盖旧值
func (s *DocumentService) Rate(ctx context.Context, documentID uint, user *models.User, score int) (*RatingSummary, error) {
	if user == nil {
		return nil, Forbidden("login required")
	}
	if score < 1 || score > 5 {
		return nil, Validation("score must be between 1 and 5")
	}
	doc, err := s.visible(ctx, documentID, user)
	if err != nil {
		return nil, err
	}
	if doc.IsOwnedBy(user.ID) {
		return nil, Conflict("you cannot rate your own document")
	}

	rating := models.Rating{
		DocumentID: doc.ID,
		UserID:     user.ID,
		Score:      score,
		RatedAt:    time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "rated_at"}),
	}).Create(&rating).Error
	if err != nil {
		return nil, err
	}

	summary := s.summary(ctx, doc.ID, user)
	return &summary, nil
}

func (s *DocumentService) RatingSummary(ctx context.Context, documentID uint, viewer *models.User) (*RatingSummary, error) {
	doc, err := s.visible(ctx, documentID, viewer)
	if err != nil {
		return nil, err
	}
	summary := s.summary(ctx, doc.ID, viewer)
	return &summary, nil
}

// summary 查询失败时记录日志并返回零值
func (s *DocumentService) summary(ctx context.Context, documentID uint, viewer *models.User) RatingSummary {
	var row struct {
		Average float64
		Count   int64
	}
	err := s.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(score), 0) AS average, COUNT(*) AS count").
		Where("document_id = ?", documentID).
		Scan(&row).Error
	if err != nil {
		logger.L().Error().Err(err).Uint("document_id", documentID).Msg("failed to load rating summary")
		return RatingSummary{}
	}

	summary := RatingSummary{
		Average: math.Round(row.Average*10) / 10,
		Count:   row.Count,
	}
	if viewer != nil {
		var mine models.Rating
		err := s.db.WithContext(ctx).Where("document_id = ? AND user_id = ?", documentID, viewer.ID).
			Limit(1).Find(&mine).Error
		if err == nil && mine.ID != 0 {
			score := mine.Score
			summary.UserScore = &score
		}
	}
	return summary
}

// Download 打开文件并原子地增加下载次数
func (s *DocumentService) Download(ctx context.Context, id uint, viewer *models.User) (*models.Document, io.ReadCloser, error) {
	doc, err := s.visible(ctx, id, viewer)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, doc.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, NotFound("file not found")
		}
		return nil, nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", doc.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	doc.DownloadCount++
	return doc, rc, nil
}

// Preview 返回 PNG 预览图；渲染失败时返回通用占位图
func (s *DocumentService) Preview(ctx context.Context, id uint, viewer *models.User) ([]byte, error) {
	doc, err := s.visible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	key := previewKey(doc.ID)
	if s.previews != nil {
		if img, ok := s.previews.Get(key); ok {
			return img, nil
		}
	}

	// 同一文档的并发请求只渲染一次
	// 第一个请求被取消时不影响其他等待者
	renderCtx := context.WithoutCancel(ctx)
	v, err, _ := s.rendering.Do(key, func() (interface{}, error) {
		return s.renderPreview(renderCtx, doc)
	})
	if err != nil {
		if !errors.Is(err, preview.ErrUnsupportedFormat) {
			logger.L().Warn().Err(err).Uint("document_id", doc.ID).Msg("preview render failed")
		}
		return preview.Placeholder(), nil
	}
	img := v.([]byte)
	if s.previews != nil {
		s.previews.Set(key, img)
	}
	return img, nil
}

func (s *DocumentService) renderPreview(ctx context.Context, doc *models.Document) ([]byte, error) {
	if s.renderer == nil {
		return nil, preview.ErrUnsupportedFormat
	}
	rc, err := s.store.Open(ctx, doc.FileKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ctx, preview.Source{Title: doc.Title, FileName: doc.FileName, Data: data})
}

// DeleteComment 管理员删除评论及其全部回复，并通知评论作者
func (s *DocumentService) DeleteComment(ctx context.Context, commentID uint, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("comment not found")
			}
			return err
		}
		doc, err := loadDocument(tx, comment.DocumentID)
		if err != nil {
			return err
		}

		ids := []uint{comment.ID}
		frontier := []uint{comment.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		ev := commentRemovedEvent(doc, commentExcerpt(comment.Content), utils.TrimToNil(utils.StripTags(reason)))
		if err := s.notifier.Dispatch(tx, ev, ToUser(comment.UserID)); err != nil {
			return err
		}
		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentReport{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
}
