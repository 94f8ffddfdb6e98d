package transform

import (
	"math"

	"montage/internal/timeline"
)

// MaxBlurSigma caps the Gaussian blur radius.
const MaxBlurSigma = 60.0

// Size is a pixel extent.
type Size struct{ Width, Height int }

// Empty reports whether either dimension is missing.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Rect is an integer rectangle inside the working frame.
type Rect struct{ X, Y, Width, Height int }

// Layout is the resolved spatial plan of one element.
//
// The source is scaled to Working (the element's stored width/height). An
// optional Crop then selects the visible box inside the working frame; that
// box is the element's Bounds. Rotation expands Bounds to Rendered.
type Layout struct {
	Working  Size
	Crop     *Rect
	Bounds   Size
	Rendered Size
	Rotation float64
	Blur     float64
	Alpha    float64
}

// Resolve computes the layout for a transform. fallback supplies the working
// size when the transform does not set width/height (usually the source's
// native size, or the canvas).
func Resolve(tr timeline.Transform, fallback Size) Layout {
	working := Size{Width: roundPositive(tr.Width), Height: roundPositive(tr.Height)}
	if working.Width <= 0 {
		working.Width = max(1, fallback.Width)
	}
	if working.Height <= 0 {
		working.Height = max(1, fallback.Height)
	}

	layout := Layout{
		Working:  working,
		Bounds:   working,
		Rotation: normalizeDegrees(tr.Rotation),
		Blur:     clamp(tr.Blur, 0, MaxBlurSigma),
		Alpha:    clampUnit(tr.OpacityPercent() / 100),
	}
	if math.IsNaN(layout.Blur) {
		layout.Blur = 0
	}

	if c := tr.Crop; c != nil && c.Width > 0 && c.Height > 0 {
		x := clampInt(int(math.Round(c.X)), 0, working.Width-1)
		y := clampInt(int(math.Round(c.Y)), 0, working.Height-1)
		w := clampInt(int(math.Round(c.Width)), 1, working.Width-x)
		h := clampInt(int(math.Round(c.Height)), 1, working.Height-y)
		layout.Crop = &Rect{X: x, Y: y, Width: w, Height: h}
		layout.Bounds = Size{Width: w, Height: h}
	}

	layout.Rendered = RotatedSize(layout.Bounds, layout.Rotation)
	return layout
}

// SpatialOps returns scale → blur → crop → rotate → alpha, omitting no-ops
// other than the scale.
func (l Layout) SpatialOps() []Op {
	ops := []Op{ScaleOp{Width: l.Working.Width, Height: l.Working.Height}}
	if l.Blur > 0 {
		ops = append(ops, BlurOp{Sigma: l.Blur})
	}
	if l.Crop != nil {
		ops = append(ops, CropOp{X: l.Crop.X, Y: l.Crop.Y, Width: l.Crop.Width, Height: l.Crop.Height})
	}
	if l.Rotation != 0 {
		ops = append(ops, RotateOp{Degrees: l.Rotation, Width: l.Rendered.Width, Height: l.Rendered.Height})
	}
	if l.Alpha < 1 {
		ops = append(ops, AlphaOp{Alpha: l.Alpha})
	}
	return ops
}

// RotatedSize returns the bounding box of a w×h rectangle rotated by degrees.
func RotatedSize(s Size, degrees float64) Size {
	if normalizeDegrees(degrees) == 0 {
		return s
	}
	rad := degrees * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	w := float64(s.Width)*cos + float64(s.Height)*sin
	h := float64(s.Width)*sin + float64(s.Height)*cos
	// Trim float noise so 90° of 100×50 stays 50×100.
	return Size{Width: int(math.Ceil(w - 1e-6)), Height: int(math.Ceil(h - 1e-6))}
}

// ResizeUniform rescales an element so its visible width becomes
// renderedWidth. The same factor applies to both axes and to the crop box,
// so a single-axis drag never distorts the element. It returns the updated
// transform and the factor used.
func ResizeUniform(tr timeline.Transform, renderedWidth float64) (timeline.Transform, float64) {
	base := tr.Width
	if tr.Crop != nil && tr.Crop.Width > 0 {
		base = tr.Crop.Width
	}
	if base <= 0 || renderedWidth <= 0 || math.IsNaN(renderedWidth) {
		return tr, 1
	}
	s := renderedWidth / base
	out := tr
	out.Width *= s
	out.Height *= s
	if tr.Crop != nil {
		c := *tr.Crop
		c.X *= s
		c.Y *= s
		c.Width *= s
		c.Height *= s
		out.Crop = &c
	}
	return out, s
}

func normalizeDegrees(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d == 360 {
		return 0
	}
	return d
}

func roundPositive(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int(math.Round(v))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}
