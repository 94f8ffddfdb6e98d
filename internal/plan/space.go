package plan

import (
	"montage/internal/timeline"
	"montage/internal/transform"
)

// space maps editor (project) coordinates onto the export canvas. Projects
// without declared dimensions are already in canvas pixels.
type space struct {
	sx, sy float64
}

func newSpace(snap *timeline.Snapshot, canvas transform.Size) space {
	w, h := snap.Dimensions()
	s := space{sx: 1, sy: 1}
	if w > 0 && h > 0 {
		s.sx = float64(canvas.Width) / float64(w)
		s.sy = float64(canvas.Height) / float64(h)
	}
	return s
}

func (s space) transform(tr timeline.Transform) timeline.Transform {
	if s.sx == 1 && s.sy == 1 {
		return tr
	}
	out := tr
	out.X *= s.sx
	out.Y *= s.sy
	out.Width *= s.sx
	out.Height *= s.sy
	out.Blur *= s.sy
	if tr.Crop != nil {
		c := *tr.Crop
		c.X *= s.sx
		c.Y *= s.sy
		c.Width *= s.sx
		c.Height *= s.sy
		out.Crop = &c
	}
	return out
}

// native returns the working size used when a clip sets no width/height:
// its native bounds mapped into canvas space, or the whole canvas when the
// source size is unknown.
func (s space) native(clip timeline.Clip, canvas transform.Size) transform.Size {
	if clip.NativeWidth <= 0 || clip.NativeHeight <= 0 {
		return canvas
	}
	return transform.Size{
		Width:  int(float64(clip.NativeWidth)*s.sx + 0.5),
		Height: int(float64(clip.NativeHeight)*s.sy + 0.5),
	}
}
