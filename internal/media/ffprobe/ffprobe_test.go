package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const portraitReport = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "side_data_list": [{"side_data_type": "Display Matrix", "rotation": -90}]},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mov", "nb_streams": 2, "duration": "12.5", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParsePortraitVideo(t *testing.T) {
	result, err := Parse([]byte(portraitReport))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	info := result.Info()
	if info.Width != 1080 || info.Height != 1920 {
		t.Fatalf("display size = %dx%d, want 1080x1920", info.Width, info.Height)
	}
	if info.Duration != 12.5 {
		t.Fatalf("duration = %v", info.Duration)
	}
	if !result.HasAudio() {
		t.Fatal("expected audio stream")
	}
}

func TestInfoStillImageHasNoDuration(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", Width: 400, Height: 300}},
		Format:  Format{FormatName: "png_pipe", Duration: "0.04"},
	}
	info := result.Info()
	if info.Duration != 0 || info.Width != 400 || info.Height != 300 {
		t.Fatalf("info = %+v", info)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "3.2"}, {CodecType: "audio", Duration: "bad"}},
		Format:  Format{Duration: "N/A"},
	}
	if got := result.DurationSeconds(); got != 3.2 {
		t.Fatalf("duration = %v, want 3.2", got)
	}
}

func TestVideoStreamSkipsCoverArt(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "audio"},
		{CodecType: "video", Width: 600, Height: 600, Disposition: map[string]int{"attached_pic": 1}},
	}}
	if _, ok := result.VideoStream(); ok {
		t.Fatal("cover art should not count as video")
	}
}

func TestInspectRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + portraitReport + "\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	result, err := Inspect(context.Background(), stub, "/media/clip.mov")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(result.Streams) != 2 {
		t.Fatalf("streams = %d", len(result.Streams))
	}
	if _, err := Inspect(context.Background(), stub, "  "); err == nil {
		t.Fatal("expected empty path error")
	}
}
