package textrender

import (
	"math"

	"montage/internal/timeline"
	"montage/internal/timing"
	"montage/internal/transform"
)

// FadeOutStart returns max(start, end−fadeOut).
func FadeOutStart(start, end, fadeOut float64) float64 {
	if fadeOut <= 0 || math.IsNaN(fadeOut) {
		return end
	}
	return math.Max(start, end-fadeOut)
}

// Envelope returns the fade op for an overlay shown over window, expressed in
// element-local seconds. A fade-in longer than the window is kept as is, so
// the overlay never reaches full opacity.
func Envelope(anim timeline.Animation, window timing.Sequence, fps float64) transform.FadeOp {
	start := window.StartSeconds(fps)
	end := window.EndSeconds(fps)
	fadeIn := math.Max(0, anim.FadeInSeconds)
	if math.IsNaN(fadeIn) {
		fadeIn = 0
	}
	return transform.FadeOp{
		In:       fadeIn,
		OutStart: FadeOutStart(start, end, anim.FadeOutSeconds) - start,
		End:      end - start,
	}
}

// EffectChain builds the per-overlay chain: hold the drawn surface, blur,
// animated scale, rotate, alpha, fade envelope, then shift to the window
// start. Slide animations are applied at placement time and leave the
// surface untouched.
func EffectChain(overlay timeline.TextOverlay, window timing.Sequence, fps float64, layout transform.Layout) transform.Chain {
	ops := []transform.Op{transform.HoldOp{Duration: window.DurationSeconds(fps)}}
	if layout.Blur > 0 {
		ops = append(ops, transform.BlurOp{Sigma: layout.Blur})
	}

	size := layout.Bounds
	if kind := overlay.Animation.Kind; kind.Scales() {
		peak := transform.MaxScale(kind)
		size = transform.Size{
			Width:  int(math.Ceil(float64(layout.Bounds.Width)*peak - 1e-6)),
			Height: int(math.Ceil(float64(layout.Bounds.Height)*peak - 1e-6)),
		}
		ops = append(ops, transform.AnimateScaleOp{
			Kind:     kind,
			Duration: math.Max(0, overlay.Animation.FadeInSeconds),
			Width:    size.Width,
			Height:   size.Height,
		})
	}

	rendered := size
	if layout.Rotation != 0 {
		rendered = transform.RotatedSize(size, layout.Rotation)
		ops = append(ops, transform.RotateOp{Degrees: layout.Rotation, Width: rendered.Width, Height: rendered.Height})
	}
	if layout.Alpha < 1 {
		ops = append(ops, transform.AlphaOp{Alpha: layout.Alpha})
	}
	if fade := Envelope(overlay.Animation, window, fps); fade.Active() {
		ops = append(ops, fade)
	}
	ops = append(ops, transform.ShiftOp{Offset: window.StartSeconds(fps)})
	return transform.Chain{Ops: ops, Bounds: layout.Bounds, Rendered: rendered}
}
