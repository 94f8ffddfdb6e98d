package timeline_test

import (
	"errors"
	"testing"

	"montage/internal/services"
	"montage/internal/timeline"
)

func TestExportConfigDefaults(t *testing.T) {
	cfg := timeline.ExportConfig{}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	w, h, err := cfg.CanvasSize()
	if err != nil || w != 1920 || h != 1080 {
		t.Fatalf("unexpected canvas %dx%d err=%v", w, h, err)
	}
	if cfg.CRF() != 20 || cfg.Preset() != "medium" || cfg.FPS != 30 {
		t.Fatalf("unexpected encoder defaults crf=%d preset=%s fps=%v", cfg.CRF(), cfg.Preset(), cfg.FPS)
	}
	if cfg.RenderEngine != timeline.EngineCPU {
		t.Fatalf("unexpected engine %q", cfg.RenderEngine)
	}
}

func TestExportConfigPresets(t *testing.T) {
	tests := []struct {
		cfg     timeline.ExportConfig
		width   int
		height  int
		crf     int
		preset  string
		format  string
	}{
		{timeline.ExportConfig{Resolution: "720p", Quality: "low", Speed: "fastest"}, 1280, 720, 28, "ultrafast", "mp4"},
		{timeline.ExportConfig{Resolution: "2160P", Quality: "ultra", Speed: "slowest", Format: ".webm"}, 3840, 2160, 17, "veryslow", "webm"},
		{timeline.ExportConfig{Resolution: "641x361", Quality: "medium", Speed: "fast", Format: "gif"}, 642, 362, 23, "veryfast", "gif"},
	}
	for _, tt := range tests {
		cfg := tt.cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%+v: unexpected error %v", tt.cfg, err)
		}
		w, h, _ := cfg.CanvasSize()
		if w != tt.width || h != tt.height {
			t.Fatalf("%+v: canvas %dx%d, want %dx%d", tt.cfg, w, h, tt.width, tt.height)
		}
		if cfg.CRF() != tt.crf || cfg.Preset() != tt.preset {
			t.Fatalf("%+v: crf=%d preset=%s", tt.cfg, cfg.CRF(), cfg.Preset())
		}
		if cfg.Container().Format != tt.format {
			t.Fatalf("%+v: container %q", tt.cfg, cfg.Container().Format)
		}
	}
	if (timeline.ExportConfig{Format: "gif"}).WithDefaults().Container().SupportsAudio {
		t.Fatal("gif should not carry audio")
	}
}

func TestExportConfigValidateRejectsUnknownValues(t *testing.T) {
	bad := []timeline.ExportConfig{
		{Resolution: "8k"},
		{Quality: "lossless"},
		{Speed: "warp"},
		{Format: "mkv"},
		{RenderEngine: "tpu"},
		{FPS: 1000},
	}
	for _, cfg := range bad {
		if err := cfg.WithDefaults().Validate(); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", cfg, err)
		}
	}
}
