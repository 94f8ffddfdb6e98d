package transform

import "montage/internal/timing"

// Chain is the ordered op list for one element plus the sizes a compositor
// needs to place its output.
type Chain struct {
	Ops      []Op
	Bounds   Size
	Rendered Size
}

// Offset returns the placement correction that keeps the rendered output
// centred on the element's bounds: (bounds − rendered) / 2 per axis.
func (c Chain) Offset() (float64, float64) {
	return float64(c.Bounds.Width-c.Rendered.Width) / 2, float64(c.Bounds.Height-c.Rendered.Height) / 2
}

// TimeOffset returns the Shift of the chain, or 0 if it has none.
func (c Chain) TimeOffset() float64 {
	for _, op := range c.Ops {
		if shift, ok := op.(ShiftOp); ok {
			return shift.Offset
		}
	}
	return 0
}

// VideoChain trims the source, applies playback speed, limits the result to
// the timeline window, runs the spatial ops, and shifts the stream to its
// timeline start.
func VideoChain(trim timing.Trim, layout Layout) Chain {
	start := trim.SourceStartSeconds()
	ops := []Op{TrimOp{Start: start, End: start + trim.SourceSeconds()}}
	if trim.Speed != 1 {
		ops = append(ops, SpeedOp{Factor: trim.Speed})
	}
	ops = append(ops, LimitOp{Duration: trim.TimelineSeconds()})
	ops = append(ops, layout.SpatialOps()...)
	ops = append(ops, ShiftOp{Offset: trim.Window.StartSeconds(trim.FPS)})
	return Chain{Ops: ops, Bounds: layout.Bounds, Rendered: layout.Rendered}
}

// ImageChain holds a still for the window, runs the spatial ops, and shifts
// it to its timeline start.
func ImageChain(window timing.Sequence, fps float64, layout Layout) Chain {
	ops := []Op{HoldOp{Duration: window.DurationSeconds(fps)}}
	ops = append(ops, layout.SpatialOps()...)
	ops = append(ops, ShiftOp{Offset: window.StartSeconds(fps)})
	return Chain{Ops: ops, Bounds: layout.Bounds, Rendered: layout.Rendered}
}
