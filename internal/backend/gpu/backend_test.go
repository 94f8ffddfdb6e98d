package gpu

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"slices"
	"strings"
	"testing"

	"montage/internal/backend"
	"montage/internal/plan"
	"montage/internal/services"
	"montage/internal/timeline"
	"montage/internal/transform"
)

type muxExec struct {
	calls [][]string
}

func (m *muxExec) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	m.calls = append(m.calls, args)
	onStdout("progress=end")
	return os.WriteFile(args[len(args)-1], []byte("muxed"), 0o644)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, color.RGBA{B: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRenderCompositesAndMuxes(t *testing.T) {
	ws, err := backend.OpenWorkspace(t.TempDir(), "gpu-job")
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	if _, err := ws.StageSource("logo.png", pngBytes(t, 8, 8)); err != nil {
		t.Fatalf("StageSource: %v", err)
	}
	project := &timeline.Project{Clips: []timeline.Clip{{
		ID: "logo", Kind: timeline.KindImage, SourceRef: "logo.png",
		Position:  timeline.Span{Start: 0, End: 0.5},
		Transform: timeline.Transform{X: 4, Y: 4, Width: 16, Height: 16, Rotation: 30},
	}}}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "64x48", FPS: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	exec := &muxExec{}
	b := New(ws, Options{Exec: exec, Parallelism: 2})
	defer b.Close()

	var last int64
	data, err := b.Render(context.Background(), backend.Job{ID: "gpu-job", Plan: p}, func(processed, total int64) {
		if processed < last || total != 5 {
			t.Fatalf("progress went %d -> %d of %d", last, processed, total)
		}
		last = processed
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(data) != "muxed" || last != 5 {
		t.Fatalf("data=%q last=%d", data, last)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected only the mux call, got %d", len(exec.calls))
	}
	mux := exec.calls[0]
	idx := slices.Index(mux, "-i")
	if idx < 0 || !strings.HasSuffix(mux[idx+1], "frames.avi") {
		t.Fatalf("mux input = %v", mux)
	}
	info, err := os.Stat(mux[idx+1])
	if err != nil || info.Size() == 0 {
		t.Fatalf("intermediate missing: %v", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	ws, err := backend.OpenWorkspace(t.TempDir(), "cancel")
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	if _, err := ws.StageSource("a.png", pngBytes(t, 4, 4)); err != nil {
		t.Fatal(err)
	}
	project := &timeline.Project{Clips: []timeline.Clip{{ID: "a", Kind: timeline.KindImage, SourceRef: "a.png", Position: timeline.Span{Start: 0, End: 1}}}}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "32x32"})
	if err != nil {
		t.Fatal(err)
	}
	b := New(ws, Options{Exec: &muxExec{}})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Render(ctx, backend.Job{Plan: p}, nil)
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRawDecodeBytesCountsVideoFrames(t *testing.T) {
	project := &timeline.Project{Clips: []timeline.Clip{
		{ID: "v", Kind: timeline.KindVideo, SourceRef: "a.mp4", Position: timeline.Span{Start: 0, End: 2}, SourceDuration: 10, Transform: timeline.Transform{Width: 32, Height: 16}},
		{ID: "still", Kind: timeline.KindImage, SourceRef: "a.png", Position: timeline.Span{Start: 0, End: 2}},
	}}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "64x48", FPS: 10})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rawDecodeBytes(p), int64(32*16*4*20); got != want {
		t.Fatalf("rawDecodeBytes = %d, want %d", got, want)
	}
}

func TestRenderRefusesDecodeLargerThanDisk(t *testing.T) {
	ws, err := backend.OpenWorkspace(t.TempDir(), "huge")
	if err != nil {
		t.Fatalf("OpenWorkspace: %v", err)
	}
	project := &timeline.Project{Clips: []timeline.Clip{{
		ID: "v", Kind: timeline.KindVideo, SourceRef: "a.mp4",
		Position:       timeline.Span{Start: 0, End: 36000},
		SourceDuration: 36000,
		Transform:      timeline.Transform{Width: 20000, Height: 20000},
	}}}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "64x48", FPS: 60})
	if err != nil {
		t.Fatal(err)
	}
	exec := &muxExec{}
	b := New(ws, Options{Exec: exec})
	defer b.Close()

	_, err = b.Render(context.Background(), backend.Job{Plan: p}, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("nothing should be decoded, got %d calls", len(exec.calls))
	}
}

func TestFrameStateScalesAboutCentre(t *testing.T) {
	o := plan.Overlay{
		X: 100, Y: 50,
		Active: timeline.Span{Start: 1, End: 3},
		Chain: transform.Chain{
			Ops: []transform.Op{
				transform.AnimateScaleOp{Kind: timeline.AnimationZoom, Duration: 1, Width: 40, Height: 20},
				transform.FadeOp{In: 1, OutStart: 2, End: 2},
			},
			Bounds:   transform.Size{Width: 40, Height: 20},
			Rendered: transform.Size{Width: 40, Height: 20},
		},
	}
	if _, ok := frameState(o, 0.5, 40, 20); ok {
		t.Fatal("overlay drawn before its window")
	}
	if _, ok := frameState(o, 1, 40, 20); ok {
		t.Fatal("zero fade-in alpha should skip drawing")
	}
	s, ok := frameState(o, 1.5, 40, 20)
	if !ok {
		t.Fatal("expected visible overlay")
	}
	if s.opacity != 0.5 {
		t.Fatalf("opacity = %v", s.opacity)
	}
	if cx, cy := s.x+s.w/2, s.y+s.h/2; cx < 119 || cx > 121 || cy < 59 || cy > 61 {
		t.Fatalf("centre drifted to (%v,%v)", cx, cy)
	}
	if s.w >= 40 {
		t.Fatalf("zoom should still be below full size, got %v", s.w)
	}
	full, _ := frameState(o, 2.5, 40, 20)
	if full.w != 40 || full.x != 100 || full.y != 50 {
		t.Fatalf("settled state = %+v", full)
	}
}
