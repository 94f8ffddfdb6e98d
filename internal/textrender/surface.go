package textrender

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/gogpu/gg"

	"montage/internal/timeline"
	"montage/internal/transform"
)

// DefaultFontSize applies when an overlay does not set one.
const DefaultFontSize = 32.0

// Surface is a rasterized text overlay.
type Surface struct {
	Image  *image.RGBA
	PNG    []byte
	Family string
}

// TextX returns the left edge of a line of width textWidth inside a surface
// of width boundsWidth.
func TextX(align timeline.Align, boundsWidth, textWidth float64) float64 {
	switch align {
	case timeline.AlignCenter:
		return (boundsWidth - textWidth) / 2
	case timeline.AlignRight:
		return boundsWidth - textWidth
	default:
		return 0
	}
}

// FontSize returns the overlay font size, falling back to DefaultFontSize.
func FontSize(style timeline.TextStyle) float64 {
	if style.FontSize <= 0 || math.IsNaN(style.FontSize) {
		return DefaultFontSize
	}
	return style.FontSize
}

// Render draws an overlay onto a bounds-sized surface.
func Render(overlay timeline.TextOverlay, bounds transform.Size, book *FontBook) (Surface, error) {
	if bounds.Empty() {
		return Surface{}, fmt.Errorf("render text %q: empty bounds %dx%d", overlay.ID, bounds.Width, bounds.Height)
	}
	face, err := book.Face(overlay.Style.Font, FontSize(overlay.Style))
	if err != nil {
		return Surface{}, fmt.Errorf("render text %q: %w", overlay.ID, err)
	}

	dc := gg.NewContext(bounds.Width, bounds.Height)
	defer dc.Close()

	dc.ClearWithColor(gg.FromColor(BackgroundColor(overlay.Style.BackgroundColor)))
	dc.SetFont(face)
	dc.SetColor(TextColor(overlay.Style.Color))

	metrics := face.Metrics()
	lines := strings.Split(strings.ReplaceAll(overlay.Text, "\r\n", "\n"), "\n")
	lineHeight := metrics.Ascent + metrics.Descent
	if len(lines) > 1 {
		lineHeight = metrics.LineHeight()
	}
	blockHeight := lineHeight*float64(len(lines)-1) + metrics.Ascent + metrics.Descent
	top := (float64(bounds.Height) - blockHeight) / 2
	for i, line := range lines {
		width := face.Advance(line)
		x := TextX(overlay.Style.Align, float64(bounds.Width), width)
		baseline := top + metrics.Ascent + float64(i)*lineHeight
		dc.DrawString(line, x, baseline)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return Surface{}, fmt.Errorf("encode text %q: %w", overlay.ID, err)
	}
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return Surface{}, fmt.Errorf("render text %q: unexpected image type %T", overlay.ID, dc.Image())
	}
	return Surface{Image: img, PNG: buf.Bytes(), Family: book.Resolve(overlay.Style.Font)}, nil
}
