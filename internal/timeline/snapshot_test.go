package timeline_test

import (
	"errors"
	"strings"
	"testing"

	"montage/internal/services"
	"montage/internal/timeline"
)

func sampleProject() *timeline.Project {
	opacity := 80.0
	volume := 50.0
	return &timeline.Project{
		Name:   "demo",
		Tracks: []timeline.Track{{ID: "base", Order: 0}, {ID: "titles", Order: 1}},
		Clips: []timeline.Clip{
			{
				ID:        "c1",
				Kind:      timeline.KindVideo,
				SourceRef: "intro.mp4",
				Trim:      timeline.Span{Start: 1, End: 6},
				Position:  timeline.Span{Start: 0, End: 5},
				Transform: timeline.Transform{Width: 1920, Height: 1080, Opacity: &opacity, Crop: &timeline.Crop{Width: 100, Height: 100}},
				Volume:    &volume,
				TrackID:   "base",
			},
			{ID: "broken", Kind: timeline.KindImage, SourceRef: "x.png", Position: timeline.Span{Start: 9, End: 9}},
		},
		Texts: []timeline.TextOverlay{
			{ID: "t1", Text: "hello", Position: timeline.Span{Start: 2, End: 7}, TrackID: "titles"},
		},
	}
}

func TestFreezeIsolatesSnapshotFromEdits(t *testing.T) {
	project := sampleProject()
	snap := project.Freeze()

	*project.Clips[0].Transform.Opacity = 10
	project.Clips[0].Transform.Crop.Width = 1
	*project.Clips[0].Volume = 0
	project.Texts[0].Text = "changed"
	project.Tracks[1].Order = 9

	clip := snap.Clips()[0]
	if got := clip.Transform.OpacityPercent(); got != 80 {
		t.Fatalf("snapshot opacity changed: %v", got)
	}
	if clip.Transform.Crop.Width != 100 {
		t.Fatalf("snapshot crop changed: %v", clip.Transform.Crop.Width)
	}
	if clip.VolumePercent() != 50 {
		t.Fatalf("snapshot volume changed: %v", clip.VolumePercent())
	}
	if snap.Texts()[0].Text != "hello" {
		t.Fatalf("snapshot text changed: %q", snap.Texts()[0].Text)
	}
	if snap.TrackOrder("titles") != 1 {
		t.Fatalf("snapshot track order changed: %d", snap.TrackOrder("titles"))
	}

	// Accessors hand out copies too.
	clips := snap.Clips()
	clips[0].Transform.Crop.Height = 3
	if snap.Clips()[0].Transform.Crop.Height != 100 {
		t.Fatal("mutating accessor result leaked into snapshot")
	}
}

func TestSnapshotTotalDurationSkipsDegenerate(t *testing.T) {
	snap := sampleProject().Freeze()
	if got := snap.TotalDuration(); got != 7 {
		t.Fatalf("TotalDuration = %v, want 7", got)
	}
	if got := (&timeline.Project{}).Freeze().TotalDuration(); got != 0 {
		t.Fatalf("empty TotalDuration = %v, want 0", got)
	}
}

func TestSnapshotTrackOrderUnknownIsZero(t *testing.T) {
	snap := sampleProject().Freeze()
	if got := snap.TrackOrder("missing"); got != 0 {
		t.Fatalf("TrackOrder(missing) = %d, want 0", got)
	}
}

func TestWithSourceInfoFillsOnlyMissingFields(t *testing.T) {
	project := sampleProject()
	project.Clips[0].NativeWidth = 640
	project.Clips[0].NativeHeight = 360
	snap := project.Freeze()

	filled := snap.WithSourceInfo(map[string]timeline.SourceInfo{
		"intro.mp4": {Duration: 12.5, Width: 1920, Height: 1080},
	})
	clip := filled.Clips()[0]
	if clip.SourceDuration != 12.5 {
		t.Fatalf("expected probed duration, got %v", clip.SourceDuration)
	}
	if clip.NativeWidth != 640 || clip.NativeHeight != 360 {
		t.Fatalf("expected declared bounds to win, got %dx%d", clip.NativeWidth, clip.NativeHeight)
	}
	if snap.Clips()[0].SourceDuration != 0 {
		t.Fatal("original snapshot was modified")
	}
}

func TestSourceRefsDeduplicates(t *testing.T) {
	project := sampleProject()
	project.Clips = append(project.Clips, timeline.Clip{ID: "c3", Kind: timeline.KindAudio, SourceRef: "intro.mp4", Position: timeline.Span{Start: 0, End: 1}})
	refs := project.Freeze().SourceRefs()
	if len(refs) != 1 || refs[0] != "intro.mp4" {
		t.Fatalf("unexpected refs %v", refs)
	}
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	project := sampleProject()
	project.Texts[0].ID = "c1"
	err := project.Validate()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestClipSpeedFallsBackToNormal(t *testing.T) {
	for _, speed := range []float64{0, -2} {
		if got := (timeline.Clip{PlaybackSpeed: speed}).Speed(); got != 1 {
			t.Fatalf("Speed(%v) = %v, want 1", speed, got)
		}
	}
	if got := (timeline.Clip{PlaybackSpeed: 2}).Speed(); got != 2 {
		t.Fatalf("Speed(2) = %v", got)
	}
}
