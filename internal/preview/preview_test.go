package preview

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWordCard(t *testing.T) {
	r := NewCardRenderer()
	out, err := r.Render(context.Background(), Source{Title: "Operating Systems midterm notes", FileName: "os.docx"})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, cardWidth, img.Bounds().Dx())
	assert.Equal(t, cardHeight, img.Bounds().Dy())
}

func TestRenderUnsupported(t *testing.T) {
	r := NewCardRenderer()
	_, err := r.Render(context.Background(), Source{Title: "archive", FileName: "bundle.zip"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderBrokenPDF(t *testing.T) {
	r := NewCardRenderer()
	_, err := r.Render(context.Background(), Source{Title: "broken", FileName: "x.pdf", Data: []byte("not a pdf")})
	assert.Error(t, err)
}

func TestPlaceholderIsPNG(t *testing.T) {
	_, err := png.Decode(bytes.NewReader(Placeholder()))
	assert.NoError(t, err)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"aaa bbb", "ccc"}, wrap("aaa bbb ccc", 7, 4))
	assert.Len(t, wrap("a b c d e f g h", 1, 3), 3)
	assert.Empty(t, wrap("   ", 10, 2))
}
