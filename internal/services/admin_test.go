package services

import (
	"testing"

	"docshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestOverview(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	u := f.user("U", "user")
	f.user("Admin", "admin")
	cs := f.subject("CS")

	doc := f.document("Approved", owner, cs, models.ReviewApproved)
	f.document("Pending", owner, cs, models.ReviewPending)
	orphan := f.document("Orphan", owner, nil, models.ReviewApproved)
	require.NoError(t, f.db.Model(orphan).Update("pending_subject", true).Error)
	require.NoError(t, f.db.Model(doc).Update("download_count", 7).Error)
	f.rating(doc, u, 5, at(0))
	c := f.comment(doc, u, "nice", nil, at(1))
	require.NoError(t, f.db.Create(&models.DocumentReport{DocumentID: doc.ID, ReporterID: u.ID}).Error)
	require.NoError(t, f.db.Create(&models.CommentReport{CommentID: c.ID, ReporterID: owner.ID}).Error)

	o, err := f.app.Admin.Overview(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, Overview{
		Users:            3,
		Documents:        3,
		PendingDocuments: 1,
		PendingSubject:   1,
		Subjects:         1,
		Comments:         1,
		Ratings:          1,
		DocumentReports:  1,
		CommentReports:   1,
		Downloads:        7,
	}, *o)
}

func TestUpdateUserRules(t *testing.T) {
	f := newFixture(t)
	admin := f.user("Admin", "admin")
	u := f.user("U", "user")
	a := f.app.Admin

	role := "ADMIN"
	got, err := a.UpdateUser(f.ctx, admin, u.ID, UserUpdate{Role: &role, Verified: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
	assert.True(t, got.Verified)

	bad := "owner"
	_, err = a.UpdateUser(f.ctx, admin, u.ID, UserUpdate{Role: &bad})
	requireKind(t, err, KindValidation)

	demote := "user"
	_, err = a.UpdateUser(f.ctx, admin, admin.ID, UserUpdate{Role: &demote})
	requireKind(t, err, KindForbidden)

	_, err = a.UpdateUser(f.ctx, admin, u.ID, UserUpdate{Locked: boolPtr(true)})
	requireKind(t, err, KindValidation)
	_, err = a.UpdateUser(f.ctx, admin, admin.ID, UserUpdate{Locked: boolPtr(true), LockReason: "oops"})
	requireKind(t, err, KindForbidden)

	got, err = a.UpdateUser(f.ctx, admin, u.ID, UserUpdate{Locked: boolPtr(true), LockReason: " <i>spam</i> "})
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.Equal(t, "spam", got.LockReason)

	got, err = a.UpdateUser(f.ctx, admin, u.ID, UserUpdate{Locked: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, got.Locked)
	assert.Empty(t, got.LockReason)

	_, err = a.UpdateUser(f.ctx, admin, 999, UserUpdate{})
	requireKind(t, err, KindNotFound)
}

func TestAdminListsCarryReportCounts(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	u := f.user("U", "user")
	v := f.user("V", "user")
	doc := f.document("Notes", owner, nil, models.ReviewApproved)
	quiet := f.document("Quiet", owner, nil, models.ReviewPending)
	c := f.comment(doc, u, "**bold** claim", nil, at(1))

	require.NoError(t, f.db.Create(&models.DocumentReport{DocumentID: doc.ID, ReporterID: u.ID}).Error)
	require.NoError(t, f.db.Create(&models.DocumentReport{DocumentID: doc.ID, ReporterID: v.ID}).Error)
	require.NoError(t, f.db.Create(&models.CommentReport{CommentID: c.ID, ReporterID: v.ID}).Error)

	docs, err := f.app.Admin.ListDocuments(f.ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	counts := map[uint]int64{}
	for _, d := range docs {
		counts[d.ID] = d.ReportCount
	}
	assert.Equal(t, int64(2), counts[doc.ID])
	assert.Zero(t, counts[quiet.ID])

	comments, err := f.app.Admin.ListComments(f.ctx)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Notes", comments[0].DocumentTitle)
	assert.Equal(t, "U", comments[0].AuthorName)
	assert.Equal(t, "u@example.com", comments[0].AuthorEmail)
	assert.Equal(t, int64(1), comments[0].ReportCount)
}
