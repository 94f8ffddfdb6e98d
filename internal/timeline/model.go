package timeline

import "math"

// Kind identifies the element variant a clip or overlay belongs to.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindText  Kind = "text"
)

// Visual reports whether elements of this kind paint onto the canvas.
func (k Kind) Visual() bool {
	return k == KindVideo || k == KindImage || k == KindText
}

// Audible reports whether elements of this kind contribute to the audio mix.
func (k Kind) Audible() bool {
	return k == KindVideo || k == KindAudio
}

// Span is a [Start, End) interval in seconds.
type Span struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Duration returns End-Start, which may be negative for degenerate spans.
func (s Span) Duration() float64 { return s.End - s.Start }

// Degenerate reports whether the span is empty, inverted, or not finite.
func (s Span) Degenerate() bool {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0) {
		return true
	}
	return s.End <= s.Start
}

// Contains reports whether t falls inside the half-open span.
func (s Span) Contains(t float64) bool { return t >= s.Start && t < s.End }

// Crop selects a region of the source in native pixel coordinates.
type Crop struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Transform describes placement and visual adjustments in canvas pixels.
// Opacity is a percentage; nil means fully opaque.
type Transform struct {
	X        float64  `json:"x" yaml:"x"`
	Y        float64  `json:"y" yaml:"y"`
	Width    float64  `json:"width" yaml:"width"`
	Height   float64  `json:"height" yaml:"height"`
	Rotation float64  `json:"rotation" yaml:"rotation"`
	Opacity  *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	Blur     float64  `json:"blur" yaml:"blur"`
	Crop     *Crop    `json:"crop,omitempty" yaml:"crop,omitempty"`

	// RenderedWidth, when set, resizes the element uniformly so its visible
	// width matches; stored size and crop scale together.
	RenderedWidth float64 `json:"renderedWidth,omitempty" yaml:"renderedWidth,omitempty"`
}

// OpacityPercent returns the configured opacity, defaulting to 100.
func (t Transform) OpacityPercent() float64 {
	if t.Opacity == nil || math.IsNaN(*t.Opacity) {
		return 100
	}
	return *t.Opacity
}

func (t Transform) clone() Transform {
	out := t
	if t.Opacity != nil {
		v := *t.Opacity
		out.Opacity = &v
	}
	if t.Crop != nil {
		c := *t.Crop
		out.Crop = &c
	}
	return out
}

// Clip is a media element (video, image, or audio) placed on the timeline.
type Clip struct {
	ID             string    `json:"id" yaml:"id"`
	Kind           Kind      `json:"kind" yaml:"kind"`
	SourceRef      string    `json:"sourceRef" yaml:"sourceRef"`
	Trim           Span      `json:"trim" yaml:"trim"`
	Position       Span      `json:"timelinePosition" yaml:"timelinePosition"`
	PlaybackSpeed  float64   `json:"playbackSpeed,omitempty" yaml:"playbackSpeed,omitempty"`
	Transform      Transform `json:"transform" yaml:"transform"`
	Volume         *float64  `json:"volume,omitempty" yaml:"volume,omitempty"`
	TrackID        string    `json:"trackId" yaml:"trackId"`
	ZIndex         int       `json:"zIndex" yaml:"zIndex"`
	SourceDuration float64   `json:"sourceDuration,omitempty" yaml:"sourceDuration,omitempty"`
	NativeWidth    int       `json:"nativeWidth,omitempty" yaml:"nativeWidth,omitempty"`
	NativeHeight   int       `json:"nativeHeight,omitempty" yaml:"nativeHeight,omitempty"`
}

// Speed returns the playback speed, treating non-positive or non-finite
// values as normal speed.
func (c Clip) Speed() float64 {
	s := c.PlaybackSpeed
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}

// VolumePercent returns the clip volume clamped to [0,100], defaulting to 100.
func (c Clip) VolumePercent() float64 {
	if c.Volume == nil || math.IsNaN(*c.Volume) {
		return 100
	}
	return math.Max(0, math.Min(100, *c.Volume))
}

func (c Clip) clone() Clip {
	out := c
	out.Transform = c.Transform.clone()
	if c.Volume != nil {
		v := *c.Volume
		out.Volume = &v
	}
	return out
}

// Align is the horizontal alignment of text inside its bounds.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// TextStyle configures how overlay text is drawn.
type TextStyle struct {
	Font            string  `json:"font" yaml:"font"`
	FontSize        float64 `json:"fontSize" yaml:"fontSize"`
	Color           string  `json:"color" yaml:"color"`
	BackgroundColor string  `json:"backgroundColor" yaml:"backgroundColor"`
	Align           Align   `json:"align" yaml:"align"`
}

// AnimationKind selects the entrance animation of a text overlay.
type AnimationKind string

const (
	AnimationNone    AnimationKind = "none"
	AnimationFade    AnimationKind = "fade"
	AnimationZoom    AnimationKind = "zoom"
	AnimationBounce  AnimationKind = "bounce"
	AnimationSlideIn AnimationKind = "slide-in"
	AnimationSlideUp AnimationKind = "slide-up"
)

// Slides reports whether the animation moves the overlay rather than
// altering its surface.
func (k AnimationKind) Slides() bool {
	return k == AnimationSlideIn || k == AnimationSlideUp
}

// Scales reports whether the animation resizes the surface over time.
func (k AnimationKind) Scales() bool {
	return k == AnimationZoom || k == AnimationBounce
}

// Animation configures entrance/exit timing of a text overlay.
type Animation struct {
	Kind           AnimationKind `json:"kind" yaml:"kind"`
	FadeInSeconds  float64       `json:"fadeInSeconds" yaml:"fadeInSeconds"`
	FadeOutSeconds float64       `json:"fadeOutSeconds" yaml:"fadeOutSeconds"`
}

// TextOverlay is a text element placed on the timeline.
type TextOverlay struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Position  Span      `json:"timelinePosition" yaml:"timelinePosition"`
	Transform Transform `json:"transform" yaml:"transform"`
	Style     TextStyle `json:"style" yaml:"style"`
	Animation Animation `json:"animation" yaml:"animation"`
	TrackID   string    `json:"trackId" yaml:"trackId"`
	ZIndex    int       `json:"zIndex" yaml:"zIndex"`
}

func (t TextOverlay) clone() TextOverlay {
	out := t
	out.Transform = t.Transform.clone()
	return out
}

// Track orders elements; higher orders paint above lower ones.
type Track struct {
	ID    string `json:"id" yaml:"id"`
	Order int    `json:"order" yaml:"order"`
}
