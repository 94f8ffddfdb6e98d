package transform

import (
	"fmt"
	"math"

	"montage/internal/timeline"
)

const (
	zoomFrom   = 0.5
	bounceFrom = 0.3
	backC1     = 1.70158
	backC3     = backC1 + 1
	// bounce overshoots to roughly 1.07; leave headroom for rounding.
	bounceHeadroom = 1.1
)

// Progress returns clamp((t−start)/fadeIn, 0, 1). A non-positive fadeIn means
// the animation has already completed.
func Progress(t, start, fadeIn float64) float64 {
	if fadeIn <= 0 || math.IsNaN(fadeIn) {
		return 1
	}
	return clampUnit((t - start) / fadeIn)
}

// ScaleAt returns the surface scale factor of an entrance animation at
// progress p. Non-scaling kinds return 1.
func ScaleAt(kind timeline.AnimationKind, p float64) float64 {
	p = clampUnit(p)
	switch kind {
	case timeline.AnimationZoom:
		return zoomFrom + (1-zoomFrom)*(1-math.Pow(1-p, 3))
	case timeline.AnimationBounce:
		q := p - 1
		eased := 1 + backC3*math.Pow(q, 3) + backC1*math.Pow(q, 2)
		return bounceFrom + (1-bounceFrom)*eased
	default:
		return 1
	}
}

// ScaleExpr renders ScaleAt as an ffmpeg expression over the progress
// expression p.
func ScaleExpr(kind timeline.AnimationKind, p string) string {
	switch kind {
	case timeline.AnimationZoom:
		return fmt.Sprintf("(%g+%g*(1-pow(1-%s,3)))", zoomFrom, 1-zoomFrom, p)
	case timeline.AnimationBounce:
		return fmt.Sprintf("(%g+%g*(1+%g*pow(%s-1,3)+%g*pow(%s-1,2)))", bounceFrom, 1-bounceFrom, backC3, p, backC1, p)
	default:
		return "1"
	}
}

// MaxScale is the largest factor ScaleAt reaches for kind.
func MaxScale(kind timeline.AnimationKind) float64 {
	if kind == timeline.AnimationBounce {
		return bounceHeadroom
	}
	return 1
}

// SlideDistance is the initial vertical offset of a slide animation; it
// decays to zero as progress reaches 1.
func SlideDistance(kind timeline.AnimationKind, boundsHeight float64) float64 {
	switch kind {
	case timeline.AnimationSlideUp:
		return boundsHeight
	case timeline.AnimationSlideIn:
		return boundsHeight / 2
	default:
		return 0
	}
}
