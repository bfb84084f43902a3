package services

import (
	"context"
	"sort"
	"time"

	"docshare/internal/models"
	"docshare/internal/utils"

	"gorm.io/gorm"
)

// ThreadNode 评论树节点。评分但未评论的用户生成 RatingOnly 节点，ID 为评分 ID 取负
type ThreadNode struct {
	ID               int64         `json:"id"`
	Content          *string       `json:"content"`
	ContentHTML      string        `json:"content_html,omitempty"`
	CreatedAt        *time.Time    `json:"created_at"`
	AuthorID         uint          `json:"author_id"`
	AuthorName       string        `json:"author_name"`
	AuthorEmail      string        `json:"author_email"`
	AuthorAvatarURL  string        `json:"author_avatar_url,omitempty"`
	AuthorRole       string        `json:"author_role"`
	AuthorIsUploader bool          `json:"author_is_uploader"`
	ParentID         *int64        `json:"parent_id"`
	Replies          []*ThreadNode `json:"replies"`
	RatingScore      *int          `json:"rating_score"`
	RatingOnly       bool          `json:"rating_only"`
	ReportCount      int64         `json:"report_count"`
	ReportedByViewer bool          `json:"reported_by_viewer"`
}

// ThreadInput holds everything AssembleThread needs. Comments and Ratings are newest first.
type ThreadInput struct {
	OwnerID      *uint
	Comments     []models.Comment
	Ratings      []models.Rating
	ReportCounts map[uint]int64
	Reported     map[uint]bool
}

// AssembleThread builds the nested view: roots newest first, replies oldest first at every depth.
func AssembleThread(in ThreadInput) []*ThreadNode {
	isUploader := func(userID uint) bool {
		return in.OwnerID != nil && *in.OwnerID == userID
	}

	// 同一用户只取第一条评分（输入已按时间倒序）
	ratingByUser := make(map[uint]models.Rating, len(in.Ratings))
	for _, r := range in.Ratings {
		if _, ok := ratingByUser[r.UserID]; !ok {
			ratingByUser[r.UserID] = r
		}
	}

	arena := make(map[uint]*ThreadNode, len(in.Comments))
	for _, c := range in.Comments {
		content := c.Content
		node := &ThreadNode{
			ID:               int64(c.ID),
			Content:          &content,
			ContentHTML:      utils.RenderMarkdown(c.Content),
			CreatedAt:        timePtr(c.CreatedAt),
			AuthorID:         c.UserID,
			AuthorName:       c.User.DisplayName(),
			AuthorEmail:      c.User.Email,
			AuthorAvatarURL:  c.User.AvatarURL(),
			AuthorRole:       c.User.Role,
			AuthorIsUploader: isUploader(c.UserID),
			Replies:          []*ThreadNode{},
			ReportCount:      in.ReportCounts[c.ID],
			ReportedByViewer: in.Reported[c.ID],
		}
		if c.ParentID == nil {
			if r, ok := ratingByUser[c.UserID]; ok {
				score := r.Score
				node.RatingScore = &score
				delete(ratingByUser, c.UserID)
			}
		}
		arena[c.ID] = node
	}

	var roots []*ThreadNode
	for _, c := range in.Comments {
		node := arena[c.ID]
		if c.ParentID != nil && *c.ParentID != c.ID {
			pid := int64(*c.ParentID)
			node.ParentID = &pid
			if parent, ok := arena[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		// 父评论不存在时作为根节点，保留原 ParentID
		roots = append(roots, node)
	}

	for _, r := range in.Ratings {
		left, ok := ratingByUser[r.UserID]
		if !ok || left.ID != r.ID {
			continue
		}
		delete(ratingByUser, r.UserID)
		score := r.Score
		roots = append(roots, &ThreadNode{
			ID:               -int64(r.ID),
			CreatedAt:        timePtr(r.RatedAt),
			AuthorID:         r.UserID,
			AuthorName:       r.User.DisplayName(),
			AuthorEmail:      r.User.Email,
			AuthorAvatarURL:  r.User.AvatarURL(),
			AuthorRole:       r.User.Role,
			AuthorIsUploader: isUploader(r.UserID),
			Replies:          []*ThreadNode{},
			RatingScore:      &score,
			RatingOnly:       true,
		})
	}

	sortNodes(roots, true)
	for _, root := range roots {
		sortReplies(root)
	}
	if roots == nil {
		roots = []*ThreadNode{}
	}
	return roots
}

func sortReplies(node *ThreadNode) {
	sortNodes(node.Replies, false)
	for _, child := range node.Replies {
		sortReplies(child)
	}
}

// sortNodes orders by CreatedAt. A missing timestamp counts as the latest possible time.
func sortNodes(nodes []*ThreadNode, descending bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].CreatedAt, nodes[j].CreatedAt
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return descending
		case b == nil:
			return !descending
		}
		if descending {
			return a.After(*b)
		}
		return a.Before(*b)
	})
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type ThreadService struct {
	db      *gorm.DB
	users   *UserService
	reports *ReportService
}

func NewThreadService(db *gorm.DB, users *UserService, reports *ReportService) *ThreadService {
	return &ThreadService{db: db, users: users, reports: reports}
}

// Thread 返回文档的评论树，无权查看时按不存在处理
func (s *ThreadService) Thread(ctx context.Context, documentID uint, viewer *models.User) ([]*ThreadNode, error) {
	doc, err := loadDocument(s.db.WithContext(ctx), documentID)
	if err != nil {
		return nil, err
	}
	if !CanView(doc, viewer, s.users.IsPrivileged(viewer)) {
		return nil, NotFound("document not found")
	}
	return s.build(ctx, doc, viewer)
}

func (s *ThreadService) build(ctx context.Context, doc *models.Document, viewer *models.User) ([]*ThreadNode, error) {
	tx := s.db.WithContext(ctx)

	var comments []models.Comment
	if err := tx.Preload("User").
		Where("document_id = ?", doc.ID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	var ratings []models.Rating
	if err := tx.Preload("User").
		Where("document_id = ?", doc.ID).
		Order("rated_at DESC, id DESC").
		Find(&ratings).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	counts, err := s.reports.CountForMany(ctx, TargetComment, ids)
	if err != nil {
		return nil, err
	}
	reported, err := s.reports.ReportedByViewerMany(ctx, TargetComment, ids, viewer)
	if err != nil {
		return nil, err
	}

	return AssembleThread(ThreadInput{
		OwnerID:      doc.UserID,
		Comments:     comments,
		Ratings:      ratings,
		ReportCounts: counts,
		Reported:     reported,
	}), nil
}
