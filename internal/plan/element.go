package plan

import (
	"montage/internal/timeline"
	"montage/internal/timing"
	"montage/internal/transform"
)

// Element is the resolved form of a clip or text overlay. The set of
// variants is closed; switch on the concrete type.
type Element interface {
	ID() string
	Kind() timeline.Kind
	TrackID() string
	ZIndex() int
	// Window is where the element is active on the output timeline.
	Window() timing.Sequence
	element()
}

// VideoElement is a trimmed, retimed video clip.
type VideoElement struct {
	Clip   timeline.Clip
	Trim   timing.Trim
	Layout transform.Layout
}

// ImageElement is a still held for its window.
type ImageElement struct {
	Clip   timeline.Clip
	Hold   timing.Sequence
	Layout transform.Layout
}

// AudioElement is a clip contributing to the mix. Video clips produce one
// too when their source carries sound.
type AudioElement struct {
	Clip timeline.Clip
	Trim timing.Trim
}

// TextElement is a text overlay in canvas space.
type TextElement struct {
	Text   timeline.TextOverlay
	Span   timing.Sequence
	Layout transform.Layout
}

func (e VideoElement) ID() string              { return e.Clip.ID }
func (e VideoElement) Kind() timeline.Kind     { return timeline.KindVideo }
func (e VideoElement) TrackID() string         { return e.Clip.TrackID }
func (e VideoElement) ZIndex() int             { return e.Clip.ZIndex }
func (e VideoElement) Window() timing.Sequence { return e.Trim.Window }
func (VideoElement) element()                  {}

func (e ImageElement) ID() string              { return e.Clip.ID }
func (e ImageElement) Kind() timeline.Kind     { return timeline.KindImage }
func (e ImageElement) TrackID() string         { return e.Clip.TrackID }
func (e ImageElement) ZIndex() int             { return e.Clip.ZIndex }
func (e ImageElement) Window() timing.Sequence { return e.Hold }
func (ImageElement) element()                  {}

func (e AudioElement) ID() string              { return e.Clip.ID }
func (e AudioElement) Kind() timeline.Kind     { return e.Clip.Kind }
func (e AudioElement) TrackID() string         { return e.Clip.TrackID }
func (e AudioElement) ZIndex() int             { return e.Clip.ZIndex }
func (e AudioElement) Window() timing.Sequence { return e.Trim.Window }
func (AudioElement) element()                  {}

func (e TextElement) ID() string              { return e.Text.ID }
func (e TextElement) Kind() timeline.Kind     { return timeline.KindText }
func (e TextElement) TrackID() string         { return e.Text.TrackID }
func (e TextElement) ZIndex() int             { return e.Text.ZIndex }
func (e TextElement) Window() timing.Sequence { return e.Span }
func (TextElement) element()                  {}
