package services

import (
	"io"
	"strings"
	"testing"

	"docshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicProfileCountsVisibleWork(t *testing.T) {
	f := newFixture(t)
	u := f.user("Uploader", "user")
	other := f.user("Other", "user")
	doc := f.document("Approved", u, nil, models.ReviewApproved)
	f.document("Legacy", u, nil, "")
	f.document("Pending", u, nil, models.ReviewPending)
	f.comment(doc, u, "mine", nil, at(1))
	f.comment(doc, other, "theirs", nil, at(2))

	p, err := f.app.Profiles.Public(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Uploader", p.Username)
	assert.Equal(t, int64(2), p.Documents)
	assert.Equal(t, int64(1), p.Comments)
	assert.Empty(t, p.AvatarURL)

	_, err = f.app.Profiles.Public(f.ctx, 999)
	requireKind(t, err, KindNotFound)
}

func TestUpdateUsername(t *testing.T) {
	f := newFixture(t)
	u := f.user("Old", "user")

	got, err := f.app.Profiles.UpdateUsername(f.ctx, u, "  New   <b>Name</b> ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Username)

	_, err = f.app.Profiles.UpdateUsername(f.ctx, u, "<i></i>")
	requireKind(t, err, KindValidation)
	_, err = f.app.Profiles.UpdateUsername(f.ctx, u, strings.Repeat("x", 51))
	requireKind(t, err, KindValidation)
}

func TestSetAvatarReplacesOldFile(t *testing.T) {
	f := newFixture(t)
	u := f.user("U", "user")
	profiles := f.app.Profiles

	_, err := profiles.SetAvatar(f.ctx, u, AvatarInput{FileName: "a.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")})
	requireKind(t, err, KindValidation)

	first, err := profiles.SetAvatar(f.ctx, u, AvatarInput{FileName: "a.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("one")})
	require.NoError(t, err)
	firstKey := first.AvatarPath
	assert.True(t, strings.HasPrefix(firstKey, "avatars/"))
	assert.Equal(t, "/api/profile/avatar/"+firstKey, first.AvatarURL())

	second, err := profiles.SetAvatar(f.ctx, u, AvatarInput{FileName: "b.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("two")})
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, second.AvatarPath)

	exists, err := f.store.Exists(f.ctx, firstKey)
	require.NoError(t, err)
	assert.False(t, exists)

	rc, err := profiles.OpenAvatar(f.ctx, second.AvatarPath)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "two", string(body))

	_, err = profiles.OpenAvatar(f.ctx, firstKey)
	requireKind(t, err, KindNotFound)
}

func TestOpenAvatarRejectsOtherKeys(t *testing.T) {
	f := newFixture(t)
	owner := f.user("Owner", "user")
	doc := f.document("Private", owner, nil, models.ReviewPending)
	require.NoError(t, f.store.Put(f.ctx, doc.FileKey, strings.NewReader("secret"), 6, "application/pdf"))

	for _, path := range []string{doc.FileKey, "avatars/../" + doc.FileKey, ""} {
		_, err := f.app.Profiles.OpenAvatar(f.ctx, path)
		requireKind(t, err, KindNotFound)
	}
}
