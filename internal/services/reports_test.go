package services

import (
	"strings"
	"testing"

	"docshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestFileDocumentReport(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	reporter := f.user("Reporter", "user")
	admin := f.user("Admin", "admin")
	doc := f.document("Notes", owner, nil, models.ReviewApproved)

	req := ReportRequest{Kind: TargetDocument, DocumentID: doc.ID, Reporter: reporter, Reason: " spam "}
	require.NoError(t, f.app.Reports.FileReport(f.ctx, req))

	err := f.app.Reports.FileReport(f.ctx, req)
	requireKind(t, err, KindConflict)

	count, err := f.app.Reports.CountFor(f.ctx, TargetDocument, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	reported, err := f.app.Reports.ReportedByViewer(f.ctx, TargetDocument, doc.ID, reporter)
	require.NoError(t, err)
	assert.True(t, reported)
	reported, err = f.app.Reports.ReportedByViewer(f.ctx, TargetDocument, doc.ID, owner)
	require.NoError(t, err)
	assert.False(t, reported)

	notes := f.notificationsFor(admin)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationDocumentReport, notes[0].Type)
	assert.Contains(t, notes[0].Message, "Reporter reported")
	assert.True(t, strings.HasSuffix(notes[0].Message, "Reason: spam"))
	assert.Equal(t, "spam", *notes[0].Reason)
}

func TestFileReportRules(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	reader := f.user("Reader", "user")
	doc := f.document("Notes", owner, nil, models.ReviewApproved)
	other := f.document("Other", owner, nil, models.ReviewApproved)
	hidden := f.document("Hidden", owner, nil, models.ReviewPending)
	c := f.comment(doc, reader, "my comment", nil, at(1))

	err := f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetDocument, DocumentID: doc.ID, Reporter: owner})
	requireKind(t, err, KindForbidden)

	err = f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetComment, DocumentID: doc.ID, CommentID: c.ID, Reporter: reader})
	requireKind(t, err, KindForbidden)

	err = f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetComment, DocumentID: other.ID, CommentID: c.ID, Reporter: owner})
	requireKind(t, err, KindValidation)

	err = f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetComment, DocumentID: doc.ID, CommentID: 404, Reporter: owner})
	requireKind(t, err, KindNotFound)

	err = f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetDocument, DocumentID: hidden.ID, Reporter: reader})
	requireKind(t, err, KindNotFound)

	err = f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetDocument, DocumentID: doc.ID})
	requireKind(t, err, KindForbidden)

	assert.Zero(t, f.count(&models.DocumentReport{}, ""))
	assert.Zero(t, f.count(&models.CommentReport{}, ""))
}

func TestFileCommentReportExcerpt(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	author := f.user("Author", "user")
	admin := f.user("Admin", "admin")
	doc := f.document("Notes", owner, nil, models.ReviewApproved)
	long := "**Buy** " + strings.Repeat("cheap watches ", 10)
	c := f.comment(doc, author, long, nil, at(1))

	require.NoError(t, f.app.Reports.FileReport(f.ctx, ReportRequest{
		Kind: TargetComment, DocumentID: doc.ID, CommentID: c.ID, Reporter: owner,
	}))

	notes := f.notificationsFor(admin)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationCommentReport, notes[0].Type)
	assert.Contains(t, notes[0].Message, "Buy cheap watches")
	assert.NotContains(t, notes[0].Message, "**")
	assert.Contains(t, notes[0].Message, `..."`)
	assert.Nil(t, notes[0].Reason)

	excerpt := commentExcerpt(long)
	assert.Len(t, []rune(excerpt), commentExcerptLength)

	err := f.app.Reports.FileReport(f.ctx, ReportRequest{
		Kind: TargetComment, DocumentID: doc.ID, CommentID: c.ID, Reporter: owner, Reason: "again",
	})
	requireKind(t, err, KindConflict)
}

func TestReporterFallbackName(t *testing.T) {
	assert.Equal(t, "A user", reporterName(&models.User{}))
	assert.Equal(t, "x@example.com", reporterName(&models.User{Email: "x@example.com"}))
}

func TestCountForManyAndClear(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	r1 := f.user("R1", "user")
	r2 := f.user("R2", "user")
	a := f.document("A", owner, nil, models.ReviewApproved)
	b := f.document("B", owner, nil, models.ReviewApproved)
	c := f.document("C", owner, nil, models.ReviewApproved)

	for _, r := range []*models.User{r1, r2} {
		require.NoError(t, f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetDocument, DocumentID: a.ID, Reporter: r}))
	}
	require.NoError(t, f.app.Reports.FileReport(f.ctx, ReportRequest{Kind: TargetDocument, DocumentID: b.ID, Reporter: r1}))

	counts, err := f.app.Reports.CountForMany(f.ctx, TargetDocument, []uint{a.ID, b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[a.ID])
	assert.Equal(t, int64(1), counts[b.ID])
	assert.Equal(t, int64(0), counts[c.ID])

	flags, err := f.app.Reports.ReportedByViewerMany(f.ctx, TargetDocument, []uint{a.ID, b.ID, c.ID}, r2)
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{a.ID: true}, flags)

	list, err := f.app.Reports.List(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.app.Reports.Clear(f.ctx, a.ID))
	require.NoError(t, f.app.Reports.Clear(f.ctx, a.ID))
	n, err := f.app.Reports.CountFor(f.ctx, TargetDocument, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(1), f.count(&models.DocumentReport{}, "document_id = ?", b.ID))

	requireKind(t, f.app.Reports.Clear(f.ctx, 9999), KindNotFound)

	empty, err := f.app.Reports.CountForMany(f.ctx, TargetComment, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConcurrentReportsFromOneUser(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	reporter := f.user("Reporter", "user")
	admin := f.user("Admin", "admin")
	doc := f.document("Notes", owner, nil, models.ReviewApproved)

	const attempts = 4
	errs := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			errs[i] = f.app.Reports.FileReport(f.ctx, ReportRequest{
				Kind: TargetDocument, DocumentID: doc.ID, Reporter: reporter, Reason: "spam",
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, KindConflict)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(1), f.count(&models.DocumentReport{}, "document_id = ?", doc.ID))
	assert.Len(t, f.notificationsFor(admin), 1)
}
