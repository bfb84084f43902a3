package services

import (
	"testing"

	"docshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestExtractReason(t *testing.T) {
	cases := []struct {
		name string
		n    models.Notification
		want *string
	}{
		{"stored reason wins", models.Notification{Message: "x Reason: old", Reason: strPtr(" spam ")}, strPtr("spam")},
		{"scan message", models.Notification{Message: `Your document "a" was removed. Reason: off topic`}, strPtr("off topic")},
		{"last marker", models.Notification{Message: "Reason: a Reason: b"}, strPtr("b")},
		{"blank stored falls back", models.Notification{Message: "m Reason: dup", Reason: strPtr("  ")}, strPtr("dup")},
		{"no reason", models.Notification{Message: "approved"}, nil},
		{"empty after marker", models.Notification{Message: "removed. Reason:   "}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractReason(tc.n))
		})
	}
}

func TestDispatchToPrivilegedReachesEveryAdmin(t *testing.T) {
	f := newFixture(t)
	a1 := f.user("A1", "admin")
	a2 := f.user("A2", "ADMIN")
	u := f.user("U", "user")

	ev := Event{Type: models.NotificationDocumentReport, Message: "reported"}
	require.NoError(t, f.app.Notifications.Dispatch(f.db, ev, ToPrivileged()))

	assert.Len(t, f.notificationsFor(a1), 1)
	assert.Len(t, f.notificationsFor(a2), 1)
	assert.Empty(t, f.notificationsFor(u))

	require.NoError(t, f.app.Notifications.Dispatch(f.db, ev, ToUser(0)))
	assert.Equal(t, int64(2), f.count(&models.Notification{}, ""))
}

func TestListResolvesDeletedDocuments(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	kept := f.document("Kept", owner, nil, models.ReviewApproved)
	gone := f.document("Gone", owner, nil, models.ReviewApproved)

	n := f.app.Notifications
	require.NoError(t, n.Dispatch(f.db, reviewApprovedEvent(kept), ToUser(owner.ID)))
	require.NoError(t, n.Dispatch(f.db, documentRemovedEvent(gone, strPtr("duplicate")), ToUser(owner.ID)))
	require.NoError(t, f.db.Delete(&models.Document{}, gone.ID).Error)

	views, err := n.List(f.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	byType := map[models.NotificationType]NotificationView{}
	for _, v := range views {
		byType[v.Type] = v
	}
	approved := byType[models.NotificationReviewApproved]
	require.NotNil(t, approved.DocumentID)
	assert.Equal(t, kept.ID, *approved.DocumentID)

	removed := byType[models.NotificationDocumentRemoval]
	assert.Nil(t, removed.DocumentID)
	assert.Equal(t, "Gone", removed.DocumentTitle)
	require.NotNil(t, removed.Reason)
	assert.Equal(t, "duplicate", *removed.Reason)
}

func TestReadAndDeleteAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	u := f.user("U", "user")
	v := f.user("V", "user")
	n := f.app.Notifications

	for i := 0; i < 3; i++ {
		require.NoError(t, n.Dispatch(f.db, Event{Type: models.NotificationReviewApproved, Message: "ok"}, ToUser(u.ID)))
	}
	require.NoError(t, n.Dispatch(f.db, Event{Type: models.NotificationReviewApproved, Message: "ok"}, ToUser(v.ID)))
	mine := f.notificationsFor(u)
	theirs := f.notificationsFor(v)

	count, err := n.UnreadCount(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	requireKind(t, n.MarkRead(f.ctx, u.ID, theirs[0].ID), KindNotFound)
	requireKind(t, n.Delete(f.ctx, u.ID, theirs[0].ID), KindNotFound)

	require.NoError(t, n.MarkRead(f.ctx, u.ID, mine[0].ID))
	require.NoError(t, n.MarkRead(f.ctx, u.ID, mine[0].ID))
	count, err = n.UnreadCount(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, n.Delete(f.ctx, u.ID, mine[1].ID))
	require.NoError(t, n.MarkAllRead(f.ctx, u.ID))
	count, err = n.UnreadCount(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, f.notificationsFor(u), 2)

	// v's notification untouched
	count, err = n.UnreadCount(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
