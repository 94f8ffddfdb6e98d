// Package transform turns an element's geometry and timing into an ordered
// chain of typed operations. The chain is backend-neutral: the ffmpeg graph
// compiler serializes each op to a filter, the raster backend applies it to
// pixels. Spatial ops always run scale, blur, crop, rotate, alpha.
package transform

import "montage/internal/timeline"

// Op is one step of a transform chain. The set is closed.
type Op interface {
	Name() string
	op()
}

// TrimOp keeps source time [Start, End) in seconds and rebases it to zero.
type TrimOp struct{ Start, End float64 }

// SpeedOp retimes the stream by Factor (2 plays twice as fast).
type SpeedOp struct{ Factor float64 }

// LimitOp cuts the retimed stream to Duration seconds.
type LimitOp struct{ Duration float64 }

// HoldOp repeats a still frame for Duration seconds.
type HoldOp struct{ Duration float64 }

// ScaleOp resizes the full frame to the working size.
type ScaleOp struct{ Width, Height int }

// BlurOp applies a Gaussian blur.
type BlurOp struct{ Sigma float64 }

// CropOp keeps a rectangle of the working frame.
type CropOp struct{ X, Y, Width, Height int }

// RotateOp rotates clockwise by Degrees about the centre into a Width×Height
// canvas with transparent corners.
type RotateOp struct {
	Degrees       float64
	Width, Height int
}

// AlphaOp multiplies the alpha channel by Alpha.
type AlphaOp struct{ Alpha float64 }

// AnimateScaleOp eases the surface size over the first Duration seconds and
// centres it on a Width×Height canvas large enough for any overshoot.
type AnimateScaleOp struct {
	Kind          timeline.AnimationKind
	Duration      float64
	Width, Height int
}

// FadeOp ramps alpha up over [0, In] and down over [OutStart, End], all in
// element-local seconds.
type FadeOp struct{ In, OutStart, End float64 }

// ShiftOp moves the stream to start at Offset seconds on the output timeline.
type ShiftOp struct{ Offset float64 }

func (TrimOp) Name() string         { return "trim" }
func (SpeedOp) Name() string        { return "speed" }
func (LimitOp) Name() string        { return "limit" }
func (HoldOp) Name() string         { return "hold" }
func (ScaleOp) Name() string        { return "scale" }
func (BlurOp) Name() string         { return "blur" }
func (CropOp) Name() string         { return "crop" }
func (RotateOp) Name() string       { return "rotate" }
func (AlphaOp) Name() string        { return "alpha" }
func (AnimateScaleOp) Name() string { return "animate-scale" }
func (FadeOp) Name() string         { return "fade" }
func (ShiftOp) Name() string        { return "shift" }

func (TrimOp) op()         {}
func (SpeedOp) op()        {}
func (LimitOp) op()        {}
func (HoldOp) op()         {}
func (ScaleOp) op()        {}
func (BlurOp) op()         {}
func (CropOp) op()         {}
func (RotateOp) op()       {}
func (AlphaOp) op()        {}
func (AnimateScaleOp) op() {}
func (FadeOp) op()         {}
func (ShiftOp) op()        {}

// AlphaAt returns the envelope multiplier at local time t.
func (f FadeOp) AlphaAt(t float64) float64 {
	a := 1.0
	if f.In > 0 {
		a = clampUnit(t / f.In)
	}
	if span := f.End - f.OutStart; span > 0 && t > f.OutStart {
		a *= clampUnit((f.End - t) / span)
	}
	return a
}

// Active reports whether the envelope changes alpha at all.
func (f FadeOp) Active() bool {
	return f.In > 0 || f.End-f.OutStart > 0
}
