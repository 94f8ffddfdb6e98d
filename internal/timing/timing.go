// Package timing converts between timeline seconds, output frames, and
// source-trim frames. Every conversion rounds the same way so the planner,
// the audio mixer, and both backends agree on frame boundaries.
package timing

import (
	"math"

	"montage/internal/timeline"
)

// DefaultFPS is used whenever a caller supplies a non-positive frame rate.
const DefaultFPS = 30.0

// SecondsToFrames rounds s×fps to the nearest frame. Non-finite seconds map
// to frame 0; a non-positive or non-finite fps falls back to DefaultFPS.
func SecondsToFrames(s, fps float64) int64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return int64(math.Round(s * NormalizeFPS(fps)))
}

// NormalizeFPS returns fps, or DefaultFPS when fps is unusable.
func NormalizeFPS(fps float64) float64 {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return DefaultFPS
	}
	return fps
}

// Sequence is a frame window on the output timeline.
type Sequence struct {
	From     int64
	Duration int64
}

// End returns the first frame after the window.
func (s Sequence) End() int64 { return s.From + s.Duration }

// StartSeconds converts the window start back to seconds.
func (s Sequence) StartSeconds(fps float64) float64 {
	return float64(s.From) / NormalizeFPS(fps)
}

// EndSeconds converts the window end back to seconds.
func (s Sequence) EndSeconds(fps float64) float64 {
	return float64(s.End()) / NormalizeFPS(fps)
}

// DurationSeconds converts the window length back to seconds.
func (s Sequence) DurationSeconds(fps float64) float64 {
	return float64(s.Duration) / NormalizeFPS(fps)
}

// ComputeSequenceFrames returns the frame window for [from, to). The window
// is never shorter than one frame.
func ComputeSequenceFrames(from, to, fps float64) Sequence {
	fromFrame := SecondsToFrames(from, fps)
	toFrame := SecondsToFrames(to, fps)
	return Sequence{From: fromFrame, Duration: max(1, toFrame-fromFrame)}
}

// Trim is the resolved source window of a time-based clip.
type Trim struct {
	// Before and After bound the used source range in frames, After exclusive.
	Before int64
	After  int64
	// SourceDuration is the effective source length in frames after clamping.
	SourceDuration int64
	// Window is where the clip lands on the output timeline. Its duration is
	// already shortened to what the trimmed source can fill at Speed.
	Window Sequence
	Speed  float64
	FPS    float64
}

// SourceStartSeconds is the trim start in source seconds.
func (t Trim) SourceStartSeconds() float64 { return float64(t.Before) / t.FPS }

// SourceEndSeconds is the trim end in source seconds.
func (t Trim) SourceEndSeconds() float64 { return float64(t.After) / t.FPS }

// SourceSeconds is the length of source consumed by the timeline window.
func (t Trim) SourceSeconds() float64 {
	return math.Min(float64(t.After-t.Before), float64(t.Window.Duration)*t.Speed) / t.FPS
}

// TimelineSeconds is the on-timeline length in seconds.
func (t Trim) TimelineSeconds() float64 { return t.Window.DurationSeconds(t.FPS) }

// ComputeTrim resolves the source window of a video or audio clip.
//
// A trim end of zero or less means "to the end of the source". When the
// source length is unknown it is inferred from the declared timeline window
// scaled by playback speed.
func ComputeTrim(clip timeline.Clip, fps float64) Trim {
	fps = NormalizeFPS(fps)
	speed := clip.Speed()
	declared := ComputeSequenceFrames(clip.Position.Start, clip.Position.End, fps)

	trimBeforeRaw := SecondsToFrames(clip.Trim.Start, fps)
	sourceDurationRaw := int64(0)
	if clip.SourceDuration > 0 {
		sourceDurationRaw = SecondsToFrames(clip.SourceDuration, fps)
	}

	var trimAfterRaw int64
	switch {
	case clip.Trim.End > 0:
		trimAfterRaw = SecondsToFrames(clip.Trim.End, fps)
	case sourceDurationRaw > 0:
		trimAfterRaw = sourceDurationRaw
	default:
		trimAfterRaw = max(trimBeforeRaw, 0) + int64(math.Ceil(float64(declared.Duration)*speed))
	}

	sourceDuration := max(trimAfterRaw, sourceDurationRaw, trimBeforeRaw+1)
	trimBefore := clamp(trimBeforeRaw, 0, sourceDuration-1)
	trimAfter := clamp(trimAfterRaw, trimBefore+1, sourceDuration)

	fill := int64(math.Floor(float64(trimAfter-trimBefore) / speed))
	window := declared
	window.Duration = max(1, min(declared.Duration, fill))

	return Trim{
		Before:         trimBefore,
		After:          trimAfter,
		SourceDuration: sourceDuration,
		Window:         window,
		Speed:          speed,
		FPS:            fps,
	}
}

// ComputeHold returns the on-timeline window of a still image, which simply
// spans its declared position.
func ComputeHold(clip timeline.Clip, fps float64) Sequence {
	return ComputeSequenceFrames(clip.Position.Start, clip.Position.End, fps)
}

func clamp(v, lo, hi int64) int64 {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}
