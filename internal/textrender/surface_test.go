package textrender

import (
	"bytes"
	"image/png"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"montage/internal/timeline"
	"montage/internal/transform"
)

func TestTextX(t *testing.T) {
	if got := TextX(timeline.AlignLeft, 200, 50); got != 0 {
		t.Fatalf("left = %v", got)
	}
	if got := TextX(timeline.AlignCenter, 200, 50); got != 75 {
		t.Fatalf("center = %v", got)
	}
	if got := TextX(timeline.AlignRight, 200, 50); got != 150 {
		t.Fatalf("right = %v", got)
	}
}

func TestRenderProducesBoundsSizedSurface(t *testing.T) {
	book := NewFontBook("Inter")
	if err := book.Load("Inter", goregular.TTF); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	overlay := timeline.TextOverlay{
		ID:    "title",
		Text:  "Hello",
		Style: timeline.TextStyle{FontSize: 24, Color: "#ffffff", BackgroundColor: "transparent", Align: timeline.AlignCenter},
	}
	surface, err := Render(overlay, transform.Size{Width: 160, Height: 48}, book)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if b := surface.Image.Bounds(); b.Dx() != 160 || b.Dy() != 48 {
		t.Fatalf("unexpected surface bounds %v", b)
	}
	if surface.Family != "Inter" {
		t.Fatalf("unexpected family %q", surface.Family)
	}
	// Corners stay transparent; text lands somewhere in the middle.
	if _, _, _, a := surface.Image.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("expected transparent corner, alpha=%d", a)
	}
	var painted bool
	for x := 0; x < 160 && !painted; x++ {
		if _, _, _, a := surface.Image.At(x, 24).RGBA(); a > 0 {
			painted = true
		}
	}
	if !painted {
		t.Fatal("expected text pixels on the middle row")
	}
	decoded, err := png.Decode(bytes.NewReader(surface.PNG))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if decoded.Bounds().Dx() != 160 {
		t.Fatalf("png width = %d", decoded.Bounds().Dx())
	}
}

func TestRenderRejectsEmptyBounds(t *testing.T) {
	if _, err := Render(timeline.TextOverlay{ID: "x"}, transform.Size{}, NewFontBook("")); err == nil {
		t.Fatal("expected error for empty bounds")
	}
}
