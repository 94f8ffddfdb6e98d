// Package plan resolves a frozen timeline into a paint-ordered list of
// overlays and the set of audio contributions, independent of which backend
// renders them.
package plan

import (
	"fmt"
	"math"
	"sort"

	"montage/internal/textrender"
	"montage/internal/timeline"
	"montage/internal/timing"
	"montage/internal/transform"
)

// TrackWeight separates track orders in the effective z-order so that track
// precedence always dominates zIndex.
const TrackWeight = 1_000_000

// OverlayKind breaks z-order ties: media paints before text.
type OverlayKind int

const (
	OverlayMedia OverlayKind = iota
	OverlayText
)

func (k OverlayKind) String() string {
	if k == OverlayText {
		return "text"
	}
	return "media"
}

// Overlay is one visual layer of the composite.
type Overlay struct {
	Label         string
	Element       Element
	Chain         transform.Chain
	BoundsWidth   float64
	BoundsHeight  float64
	X, Y          float64
	Active        timeline.Span
	EffectiveZ    int64
	Kind          OverlayKind
	OriginalOrder int
	AnimationKind timeline.AnimationKind
	FadeInSeconds float64
}

// Placement returns the top-left corner of the rendered output, corrected
// so rotated or padded output stays centred on the bounds.
func (o Overlay) Placement() (float64, float64) {
	dx, dy := o.Chain.Offset()
	return o.X + dx, o.Y + dy
}

// SlideDistance returns the initial vertical offset of a slide animation,
// or 0 when the overlay does not slide.
func (o Overlay) SlideDistance() float64 {
	if !o.AnimationKind.Slides() {
		return 0
	}
	return transform.SlideDistance(o.AnimationKind, o.BoundsHeight)
}

// YAt returns the placement Y at timeline time t, including any slide.
func (o Overlay) YAt(t float64) float64 {
	_, y := o.Placement()
	if d := o.SlideDistance(); d != 0 {
		y += d * (1 - transform.Progress(t, o.Active.Start, o.FadeInSeconds))
	}
	return y
}

// Plan is the backend-neutral description of an export.
type Plan struct {
	Name     string
	Width    int
	Height   int
	FPS      float64
	Frames   int64
	Overlays []Overlay
	Audio    []AudioElement
	// Dropped lists element IDs excluded because their time span is empty.
	Dropped []string
	Config  timeline.ExportConfig
}

// Duration is the output length in seconds.
func (p *Plan) Duration() float64 {
	return float64(p.Frames) / p.FPS
}

// EffectiveZ combines track order and zIndex. zIndex is clamped to
// [0, TrackWeight) so it can never lift an element across tracks.
func EffectiveZ(trackOrder, zIndex int) int64 {
	z := max(0, min(zIndex, TrackWeight-1))
	return int64(trackOrder)*TrackWeight + int64(z)
}

// Build resolves a snapshot against an export configuration.
func Build(snap *timeline.Snapshot, cfg timeline.ExportConfig) (*Plan, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	width, height, err := cfg.CanvasSize()
	if err != nil {
		return nil, err
	}
	fps := timing.NormalizeFPS(cfg.FPS)
	canvas := transform.Size{Width: width, Height: height}
	space := newSpace(snap, canvas)

	p := &Plan{
		Name:   snap.Name(),
		Width:  width,
		Height: height,
		FPS:    fps,
		Frames: timing.SecondsToFrames(snap.TotalDuration(), fps),
		Config: cfg,
	}

	order := 0
	for _, clip := range snap.Clips() {
		idx := order
		order++
		if clip.Position.Degenerate() {
			p.Dropped = append(p.Dropped, clip.ID)
			continue
		}
		if clip.Kind.Audible() {
			p.Audio = append(p.Audio, AudioElement{Clip: clip, Trim: timing.ComputeTrim(clip, fps)})
		}
		if !clip.Kind.Visual() {
			continue
		}

		tr, _ := transform.ResizeUniform(clip.Transform, clip.Transform.RenderedWidth)
		tr = space.transform(tr)
		layout := transform.Resolve(tr, space.native(clip, canvas))

		var element Element
		var chain transform.Chain
		if clip.Kind == timeline.KindImage {
			hold := timing.ComputeHold(clip, fps)
			element = ImageElement{Clip: clip, Hold: hold, Layout: layout}
			chain = transform.ImageChain(hold, fps, layout)
		} else {
			trim := timing.ComputeTrim(clip, fps)
			element = VideoElement{Clip: clip, Trim: trim, Layout: layout}
			chain = transform.VideoChain(trim, layout)
		}
		p.Overlays = append(p.Overlays, newOverlay(fmt.Sprintf("v%d", idx), element, chain, tr, OverlayMedia, idx, snap, fps))
	}

	for _, text := range snap.Texts() {
		idx := order
		order++
		if text.Position.Degenerate() {
			p.Dropped = append(p.Dropped, text.ID)
			continue
		}
		text.Transform = space.transform(text.Transform)
		text.Style.FontSize = textrender.FontSize(text.Style) * space.sy
		fallback := transform.Size{
			Width:  canvas.Width,
			Height: int(math.Ceil(text.Style.FontSize * 1.5)),
		}
		layout := transform.Resolve(text.Transform, fallback)
		window := timing.ComputeSequenceFrames(text.Position.Start, text.Position.End, fps)
		element := TextElement{Text: text, Span: window, Layout: layout}
		chain := textrender.EffectChain(text, window, fps, layout)

		overlay := newOverlay(fmt.Sprintf("t%d", idx), element, chain, text.Transform, OverlayText, idx, snap, fps)
		overlay.AnimationKind = text.Animation.Kind
		overlay.FadeInSeconds = math.Max(0, text.Animation.FadeInSeconds)
		p.Overlays = append(p.Overlays, overlay)
	}

	// Any surviving element occupies at least one frame.
	if p.Frames < 1 && (len(p.Overlays) > 0 || len(p.Audio) > 0) {
		p.Frames = 1
	}
	Sort(p.Overlays)
	return p, nil
}

// Sort orders overlays by effective z, then media before text, then input
// order. Equal keys keep their relative order.
func Sort(overlays []Overlay) {
	sort.SliceStable(overlays, func(i, j int) bool {
		a, b := overlays[i], overlays[j]
		if a.EffectiveZ != b.EffectiveZ {
			return a.EffectiveZ < b.EffectiveZ
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.OriginalOrder < b.OriginalOrder
	})
}

func newOverlay(label string, element Element, chain transform.Chain, tr timeline.Transform, kind OverlayKind, order int, snap *timeline.Snapshot, fps float64) Overlay {
	window := element.Window()
	return Overlay{
		Label:         label,
		Element:       element,
		Chain:         chain,
		BoundsWidth:   float64(chain.Bounds.Width),
		BoundsHeight:  float64(chain.Bounds.Height),
		X:             tr.X,
		Y:             tr.Y,
		Active:        timeline.Span{Start: window.StartSeconds(fps), End: window.EndSeconds(fps)},
		EffectiveZ:    EffectiveZ(snap.TrackOrder(element.TrackID()), element.ZIndex()),
		Kind:          kind,
		OriginalOrder: order,
	}
}
