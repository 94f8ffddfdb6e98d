package gpu

import (
	"math"

	"github.com/gogpu/gg"

	"montage/internal/plan"
	"montage/internal/transform"
)

// drawState is the per-frame placement of one overlay.
type drawState struct {
	x, y, w, h float64
	opacity    float64
}

// frameState resolves where and how strongly overlay o paints at time t.
// It reports false when the overlay is inactive or fully transparent.
func frameState(o plan.Overlay, t float64, imgW, imgH int) (drawState, bool) {
	if !o.Active.Contains(t) {
		return drawState{}, false
	}
	local := t - o.Active.Start
	scale := 1.0
	opacity := 1.0
	for _, op := range o.Chain.Ops {
		switch op := op.(type) {
		case transform.AnimateScaleOp:
			scale = transform.ScaleAt(op.Kind, transform.Progress(t, o.Active.Start, op.Duration))
		case transform.FadeOp:
			opacity = op.AlphaAt(local)
		}
	}
	if opacity <= 0 || scale <= 0 {
		return drawState{}, false
	}

	// The chain keeps the rendered box centred on the bounds; scale about
	// that centre.
	x, _ := o.Placement()
	cx := x + float64(o.Chain.Rendered.Width)/2
	cy := o.YAt(t) + float64(o.Chain.Rendered.Height)/2
	w := float64(imgW) * scale
	h := float64(imgH) * scale
	return drawState{
		x:       math.Round(cx - w/2),
		y:       math.Round(cy - h/2),
		w:       math.Max(1, math.Round(w)),
		h:       math.Max(1, math.Round(h)),
		opacity: math.Min(1, opacity),
	}, true
}

func drawLayer(dc *gg.Context, img *gg.ImageBuf, s drawState) {
	dc.DrawImageEx(img, gg.DrawImageOptions{
		X:             s.x,
		Y:             s.y,
		DstWidth:      s.w,
		DstHeight:     s.h,
		Interpolation: gg.InterpBilinear,
		Opacity:       s.opacity,
	})
}
