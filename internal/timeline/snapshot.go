package timeline

import (
	"fmt"
	"strings"

	"montage/internal/services"
)

// Project is the mutable scene graph produced by an editor.
type Project struct {
	Name   string        `json:"name" yaml:"name"`
	Width  int           `json:"width,omitempty" yaml:"width,omitempty"`
	Height int           `json:"height,omitempty" yaml:"height,omitempty"`
	Tracks []Track       `json:"tracks" yaml:"tracks"`
	Clips  []Clip        `json:"clips" yaml:"clips"`
	Texts  []TextOverlay `json:"texts" yaml:"texts"`
}

// Validate checks structural problems that make a project unexportable.
// Degenerate time spans are not errors; the planner drops those elements.
func (p *Project) Validate() error {
	if p == nil {
		return services.Wrap(services.ErrValidation, "timeline", "validate", "project is nil", nil)
	}
	seen := make(map[string]struct{}, len(p.Clips)+len(p.Texts))
	claim := func(id string) error {
		id = strings.TrimSpace(id)
		if id == "" {
			return services.Wrap(services.ErrValidation, "timeline", "validate", "element id is empty", nil)
		}
		if _, dup := seen[id]; dup {
			return services.Wrap(services.ErrValidation, "timeline", "validate", fmt.Sprintf("duplicate element id %q", id), nil)
		}
		seen[id] = struct{}{}
		return nil
	}
	for _, clip := range p.Clips {
		if err := claim(clip.ID); err != nil {
			return err
		}
		switch clip.Kind {
		case KindVideo, KindImage, KindAudio:
		default:
			return services.Wrap(services.ErrValidation, "timeline", "validate", fmt.Sprintf("clip %q has unsupported kind %q", clip.ID, clip.Kind), nil)
		}
		if strings.TrimSpace(clip.SourceRef) == "" {
			return services.Wrap(services.ErrValidation, "timeline", "validate", fmt.Sprintf("clip %q has no source reference", clip.ID), nil)
		}
	}
	for _, text := range p.Texts {
		if err := claim(text.ID); err != nil {
			return err
		}
	}
	tracks := make(map[string]struct{}, len(p.Tracks))
	for _, track := range p.Tracks {
		if _, dup := tracks[track.ID]; dup {
			return services.Wrap(services.ErrValidation, "timeline", "validate", fmt.Sprintf("duplicate track id %q", track.ID), nil)
		}
		tracks[track.ID] = struct{}{}
	}
	return nil
}

// Freeze deep-copies the project into an immutable snapshot.
func (p *Project) Freeze() *Snapshot {
	if p == nil {
		return &Snapshot{trackOrder: map[string]int{}}
	}
	s := &Snapshot{
		name:       p.Name,
		width:      p.Width,
		height:     p.Height,
		tracks:     append([]Track(nil), p.Tracks...),
		trackOrder: make(map[string]int, len(p.Tracks)),
		clips:      make([]Clip, len(p.Clips)),
		texts:      make([]TextOverlay, len(p.Texts)),
	}
	for _, track := range p.Tracks {
		s.trackOrder[track.ID] = track.Order
	}
	for i, clip := range p.Clips {
		s.clips[i] = clip.clone()
	}
	for i, text := range p.Texts {
		s.texts[i] = text.clone()
	}
	return s
}

// SourceInfo carries probed properties of a source asset.
type SourceInfo struct {
	Duration float64
	Width    int
	Height   int
}

// Snapshot is a read-only view of a project. Accessors return copies.
type Snapshot struct {
	name       string
	width      int
	height     int
	tracks     []Track
	trackOrder map[string]int
	clips      []Clip
	texts      []TextOverlay
}

func (s *Snapshot) Name() string { return s.name }

// Dimensions returns the editor canvas size, or zeros when the project did
// not declare one.
func (s *Snapshot) Dimensions() (int, int) { return s.width, s.height }

func (s *Snapshot) Tracks() []Track { return append([]Track(nil), s.tracks...) }

func (s *Snapshot) Clips() []Clip {
	out := make([]Clip, len(s.clips))
	for i, clip := range s.clips {
		out[i] = clip.clone()
	}
	return out
}

func (s *Snapshot) Texts() []TextOverlay {
	out := make([]TextOverlay, len(s.texts))
	for i, text := range s.texts {
		out[i] = text.clone()
	}
	return out
}

// TrackOrder returns the order of a track; unknown tracks order 0.
func (s *Snapshot) TrackOrder(trackID string) int {
	return s.trackOrder[trackID]
}

// TotalDuration is the latest end time over all non-degenerate elements.
func (s *Snapshot) TotalDuration() float64 {
	var total float64
	for _, clip := range s.clips {
		if !clip.Position.Degenerate() && clip.Position.End > total {
			total = clip.Position.End
		}
	}
	for _, text := range s.texts {
		if !text.Position.Degenerate() && text.Position.End > total {
			total = text.Position.End
		}
	}
	return total
}

// SourceRefs lists the distinct source references used by non-degenerate
// clips, in first-seen order.
func (s *Snapshot) SourceRefs() []string {
	seen := make(map[string]struct{}, len(s.clips))
	var refs []string
	for _, clip := range s.clips {
		if clip.Position.Degenerate() {
			continue
		}
		if _, ok := seen[clip.SourceRef]; ok {
			continue
		}
		seen[clip.SourceRef] = struct{}{}
		refs = append(refs, clip.SourceRef)
	}
	return refs
}

// WithSourceInfo returns a copy of the snapshot whose clips have missing
// source durations and native bounds filled from info, keyed by source ref.
// Values already present on a clip win.
func (s *Snapshot) WithSourceInfo(info map[string]SourceInfo) *Snapshot {
	out := &Snapshot{
		name:       s.name,
		width:      s.width,
		height:     s.height,
		tracks:     s.tracks,
		trackOrder: s.trackOrder,
		clips:      s.Clips(),
		texts:      s.texts,
	}
	for i := range out.clips {
		clip := &out.clips[i]
		probed, ok := info[clip.SourceRef]
		if !ok {
			continue
		}
		if clip.SourceDuration <= 0 && clip.Kind != KindImage {
			clip.SourceDuration = probed.Duration
		}
		if clip.NativeWidth <= 0 || clip.NativeHeight <= 0 {
			clip.NativeWidth = probed.Width
			clip.NativeHeight = probed.Height
		}
	}
	return out
}
