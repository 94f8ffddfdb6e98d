package transform

import (
	"testing"

	"montage/internal/timeline"
	"montage/internal/timing"
)

func TestVideoChainTimeOps(t *testing.T) {
	clip := timeline.Clip{
		Trim:          timeline.Span{Start: 1, End: 5},
		Position:      timeline.Span{Start: 2, End: 10},
		PlaybackSpeed: 2,
	}
	trim := timing.ComputeTrim(clip, 30)
	chain := VideoChain(trim, Resolve(timeline.Transform{Width: 320, Height: 240}, Size{}))

	if len(chain.Ops) != 5 {
		t.Fatalf("unexpected ops %v", chain.Ops)
	}
	if op := chain.Ops[0].(TrimOp); op.Start != 1 || op.End != 5 {
		t.Fatalf("trim = %+v", op)
	}
	if op := chain.Ops[1].(SpeedOp); op.Factor != 2 {
		t.Fatalf("speed = %+v", op)
	}
	if op := chain.Ops[2].(LimitOp); op.Duration != 2 {
		t.Fatalf("limit = %+v", op)
	}
	if _, ok := chain.Ops[3].(ScaleOp); !ok {
		t.Fatalf("expected scale after time ops, got %T", chain.Ops[3])
	}
	if chain.TimeOffset() != 2 {
		t.Fatalf("shift = %v, want 2", chain.TimeOffset())
	}
}

func TestImageChainHoldsForWindow(t *testing.T) {
	window := timing.ComputeSequenceFrames(1, 4, 30)
	chain := ImageChain(window, 30, Resolve(timeline.Transform{Width: 100, Height: 50, Rotation: 90}, Size{}))
	if op := chain.Ops[0].(HoldOp); op.Duration != 3 {
		t.Fatalf("hold = %+v", op)
	}
	dx, dy := chain.Offset()
	if dx != 25 || dy != -25 {
		t.Fatalf("offset = (%v, %v), want (25, -25)", dx, dy)
	}
}

func TestFadeOpAlphaAt(t *testing.T) {
	// 0..3s overlay with a 5s fade-out starts fading immediately.
	fade := FadeOp{In: 0, OutStart: 0, End: 3}
	if got := fade.AlphaAt(0); got != 1 {
		t.Fatalf("alpha(0) = %v", got)
	}
	if got := fade.AlphaAt(1.5); got != 0.5 {
		t.Fatalf("alpha(1.5) = %v", got)
	}
	if got := fade.AlphaAt(3); got != 0 {
		t.Fatalf("alpha(3) = %v", got)
	}

	in := FadeOp{In: 2, OutStart: 5, End: 5}
	if got := in.AlphaAt(1); got != 0.5 {
		t.Fatalf("fade-in alpha(1) = %v", got)
	}
	if !in.Active() || (FadeOp{OutStart: 4, End: 4}).Active() {
		t.Fatal("unexpected Active result")
	}
}

func TestScaleAtEndpoints(t *testing.T) {
	for _, kind := range []timeline.AnimationKind{timeline.AnimationZoom, timeline.AnimationBounce} {
		if got := ScaleAt(kind, 1); got < 0.9999 || got > 1.0001 {
			t.Fatalf("%s: ScaleAt(1) = %v", kind, got)
		}
		peak := 0.0
		for i := 0; i <= 100; i++ {
			peak = max(peak, ScaleAt(kind, float64(i)/100))
		}
		if peak > MaxScale(kind) {
			t.Fatalf("%s: peak %v exceeds MaxScale %v", kind, peak, MaxScale(kind))
		}
	}
	if got := ScaleAt(timeline.AnimationZoom, 0); got != 0.5 {
		t.Fatalf("zoom start = %v", got)
	}
	if got := ScaleAt(timeline.AnimationFade, 0); got != 1 {
		t.Fatalf("fade should not scale, got %v", got)
	}
}

func TestProgressAndSlideDistance(t *testing.T) {
	if got := Progress(3, 2, 2); got != 0.5 {
		t.Fatalf("Progress = %v", got)
	}
	if got := Progress(0, 2, 0); got != 1 {
		t.Fatalf("Progress with no fade-in = %v", got)
	}
	if got := SlideDistance(timeline.AnimationSlideUp, 80); got != 80 {
		t.Fatalf("slide-up distance = %v", got)
	}
	if got := SlideDistance(timeline.AnimationSlideIn, 80); got != 40 {
		t.Fatalf("slide-in distance = %v", got)
	}
}
