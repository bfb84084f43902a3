package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	short := "short comment"
	assert.Equal(t, short, Truncate(short, 80))

	exact := strings.Repeat("a", 80)
	assert.Equal(t, exact, Truncate(exact, 80))

	long := strings.Repeat("b", 81)
	got := Truncate(long, 80)
	assert.Equal(t, strings.Repeat("b", 77)+"...", got)
	assert.Len(t, []rune(got), 80)

	// multi-byte runes count as one character
	assert.Equal(t, "数据结...", Truncate("数据结构与算法", 6))
}

func TestCollapseSpacesAndTrimToNil(t *testing.T) {
	assert.Equal(t, "Data Structures", CollapseSpaces("  Data \t\n Structures "))
	assert.Nil(t, TrimToNil("   "))
	require.NotNil(t, TrimToNil(" spam "))
	assert.Equal(t, "spam", *TrimToNil(" spam "))
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("**bold** <script>alert(1)</script> [link](https://example.com)")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `rel="nofollow noopener noreferrer"`)
	assert.Empty(t, RenderMarkdown("   "))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Great notes, thanks", PlainText("**Great** notes,\n\n_thanks_"))
	assert.Equal(t, "a & b", StripTags("<b>a & b</b>"))
}

func TestDetectCategory(t *testing.T) {
	cases := []struct {
		contentType, name, want string
	}{
		{"application/pdf", "x.bin", CategoryPDF},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "x", CategoryWord},
		{"application/vnd.openxmlformats-officedocument.presentationml.presentation", "x", CategoryPowerPoint},
		{"application/octet-stream", "sheet.XLSX", CategoryExcel},
		{"application/zip", "a.zip", CategoryZIP},
		{"application/x-7z-compressed", "a.7z", Category7Z},
		{"", "archive.rar", CategoryRAR},
		{"text/plain", "notes.txt", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectCategory(tc.contentType, tc.name), tc.name)
	}
	assert.Equal(t, "application/pdf", ContentTypeFromName("Lecture.PDF"))
	assert.Equal(t, "application/octet-stream", ContentTypeFromName("noext"))
}

func TestParseID(t *testing.T) {
	id, ok := ParseID("42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, ok := ParseID(bad)
		assert.False(t, ok, bad)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache[[]byte](2, time.Minute)
	require.NoError(t, err)

	c.Set("a", []byte("1"))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	c.SetWithTTL("b", []byte("2"), -time.Second)
	_, ok = c.Get("b")
	assert.False(t, ok)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}
