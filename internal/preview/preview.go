package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"sync"

	"docshare/internal/utils"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrUnsupportedFormat = errors.New("preview: unsupported format")

const (
	cardWidth  = 360
	cardHeight = 480
)

type Source struct {
	Title    string
	FileName string
	Data     []byte
}

// Renderer 生成文档预览图（PNG）
type Renderer interface {
	Render(ctx context.Context, src Source) ([]byte, error)
}

var headerColors = map[string]color.RGBA{
	utils.CategoryPDF:        {R: 0xc6, G: 0x28, B: 0x28, A: 0xff},
	utils.CategoryWord:       {R: 0x1e, G: 0x5a, B: 0xb6, A: 0xff},
	utils.CategoryPowerPoint: {R: 0xd2, G: 0x5b, B: 0x1f, A: 0xff},
	utils.CategoryExcel:      {R: 0x1d, G: 0x6f, B: 0x42, A: 0xff},
}

var disableConfigOnce sync.Once

// CardRenderer draws a cover card. PDFs are parsed to report their page count.
type CardRenderer struct{}

func NewCardRenderer() *CardRenderer {
	disableConfigOnce.Do(api.DisableConfigDir)
	return &CardRenderer{}
}

func (r *CardRenderer) Render(ctx context.Context, src Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	category := utils.DetectCategory("", src.FileName)
	header, ok := headerColors[category]
	if !ok {
		return nil, ErrUnsupportedFormat
	}

	lines := []string{category}
	if category == utils.CategoryPDF {
		pages, err := pdfPageCount(src.Data)
		if err != nil {
			return nil, fmt.Errorf("read pdf: %w", err)
		}
		lines = append(lines, fmt.Sprintf("%d pages", pages))
	}
	lines = append(lines, wrap(src.Title, 40, 4)...)

	return drawCard(header, lines)
}

func pdfPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// Placeholder 预览失败时返回的通用图片
func Placeholder() []byte {
	out, err := drawCard(color.RGBA{R: 0x75, G: 0x75, B: 0x75, A: 0xff}, []string{"Preview unavailable"})
	if err != nil {
		return nil
	}
	return out
}

func drawCard(header color.RGBA, lines []string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, cardWidth, 96), image.NewUniform(header), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == 1 {
			d.Src = image.NewUniform(color.Black)
		}
		y := 40 + i*24
		if i > 0 {
			y += 80
		}
		d.Dot = fixed.P(20, y)
		d.DrawString(line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func wrap(s string, width, maxLines int) []string {
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(s) {
		if current.Len() > 0 && current.Len()+1+len(word) > width {
			lines = append(lines, current.String())
			current.Reset()
			if len(lines) == maxLines {
				return lines
			}
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 && len(lines) < maxLines {
		lines = append(lines, current.String())
	}
	return lines
}
