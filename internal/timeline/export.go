package timeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"montage/internal/services"
)

// Engine selects the rendering backend.
type Engine string

const (
	EngineCPU Engine = "cpu"
	EngineGPU Engine = "gpu"
)

const (
	DefaultResolution = "1080p"
	DefaultQuality    = "high"
	DefaultSpeed      = "balanced"
	DefaultFPS        = 30.0
	DefaultFormat     = "mp4"
	DefaultEngine     = EngineCPU
)

// ExportConfig selects output size, encoder settings, and backend.
type ExportConfig struct {
	Resolution   string  `json:"resolution" yaml:"resolution"`
	Quality      string  `json:"quality" yaml:"quality"`
	Speed        string  `json:"speed" yaml:"speed"`
	FPS          float64 `json:"fps" yaml:"fps"`
	Format       string  `json:"format" yaml:"format"`
	RenderEngine Engine  `json:"renderEngine" yaml:"renderEngine"`
}

type size struct{ width, height int }

var resolutionPresets = map[string]size{
	"480p":  {854, 480},
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"1440p": {2560, 1440},
	"2160p": {3840, 2160},
}

var qualityCRF = map[string]int{
	"low":    28,
	"medium": 23,
	"high":   20,
	"ultra":  17,
}

var speedPresets = map[string]string{
	"fastest":  "ultrafast",
	"fast":     "veryfast",
	"balanced": "medium",
	"slow":     "slow",
	"slowest":  "veryslow",
}

// vp9 has no x264-style presets; cpu-used trades speed for quality instead.
var speedCPUUsed = map[string]int{
	"fastest":  8,
	"fast":     5,
	"balanced": 2,
	"slow":     1,
	"slowest":  0,
}

// Container describes the muxer and codecs used for an output format.
type Container struct {
	Format      string
	Extension   string
	Muxer       string
	VideoCodec  string
	AudioCodec  string
	PixelFormat string
	// SupportsAudio is false for formats that cannot carry sound (gif).
	SupportsAudio bool
	ExtraArgs     []string
}

var containers = map[string]Container{
	"mp4":  {Format: "mp4", Extension: ".mp4", Muxer: "mp4", VideoCodec: "libx264", AudioCodec: "aac", PixelFormat: "yuv420p", SupportsAudio: true, ExtraArgs: []string{"-movflags", "+faststart"}},
	"mov":  {Format: "mov", Extension: ".mov", Muxer: "mov", VideoCodec: "libx264", AudioCodec: "aac", PixelFormat: "yuv420p", SupportsAudio: true},
	"webm": {Format: "webm", Extension: ".webm", Muxer: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", PixelFormat: "yuv420p", SupportsAudio: true},
	"avi":  {Format: "avi", Extension: ".avi", Muxer: "avi", VideoCodec: "libx264", AudioCodec: "libmp3lame", PixelFormat: "yuv420p", SupportsAudio: true},
	"gif":  {Format: "gif", Extension: ".gif", Muxer: "gif", VideoCodec: "gif", SupportsAudio: false},
}

// WithDefaults fills unset fields with the package defaults.
func (c ExportConfig) WithDefaults() ExportConfig {
	c.Resolution = strings.ToLower(strings.TrimSpace(c.Resolution))
	c.Quality = strings.ToLower(strings.TrimSpace(c.Quality))
	c.Speed = strings.ToLower(strings.TrimSpace(c.Speed))
	c.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Format), "."))
	c.RenderEngine = Engine(strings.ToLower(strings.TrimSpace(string(c.RenderEngine))))
	if c.Resolution == "" {
		c.Resolution = DefaultResolution
	}
	if c.Quality == "" {
		c.Quality = DefaultQuality
	}
	if c.Speed == "" {
		c.Speed = DefaultSpeed
	}
	if c.FPS <= 0 || math.IsNaN(c.FPS) || math.IsInf(c.FPS, 0) {
		c.FPS = DefaultFPS
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.RenderEngine == "" {
		c.RenderEngine = DefaultEngine
	}
	return c
}

// Validate reports unknown presets. Call WithDefaults first.
func (c ExportConfig) Validate() error {
	if _, _, err := c.CanvasSize(); err != nil {
		return err
	}
	if _, ok := qualityCRF[c.Quality]; !ok {
		return services.Wrap(services.ErrValidation, "export config", "quality", fmt.Sprintf("unknown preset %q (want low, medium, high, ultra)", c.Quality), nil)
	}
	if _, ok := speedPresets[c.Speed]; !ok {
		return services.Wrap(services.ErrValidation, "export config", "speed", fmt.Sprintf("unknown preset %q (want fastest, fast, balanced, slow, slowest)", c.Speed), nil)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return services.Wrap(services.ErrValidation, "export config", "fps", fmt.Sprintf("%g out of range (0, 240]", c.FPS), nil)
	}
	if _, ok := containers[c.Format]; !ok {
		return services.Wrap(services.ErrValidation, "export config", "format", fmt.Sprintf("unsupported format %q (want mp4, webm, mov, avi, gif)", c.Format), nil)
	}
	if c.RenderEngine != EngineCPU && c.RenderEngine != EngineGPU {
		return services.Wrap(services.ErrValidation, "export config", "render engine", fmt.Sprintf("unknown engine %q (want cpu or gpu)", c.RenderEngine), nil)
	}
	return nil
}

// CanvasSize resolves the output frame size. Presets (720p, 1080p, ...) and
// explicit WIDTHxHEIGHT values are accepted; dimensions are rounded up to
// even numbers for yuv420p encoders.
func (c ExportConfig) CanvasSize() (int, int, error) {
	key := strings.ToLower(strings.TrimSpace(c.Resolution))
	if preset, ok := resolutionPresets[key]; ok {
		return preset.width, preset.height, nil
	}
	w, h, ok := parseDimensions(key)
	if !ok {
		return 0, 0, services.Wrap(services.ErrValidation, "export config", "resolution", fmt.Sprintf("unknown resolution %q", c.Resolution), nil)
	}
	return even(w), even(h), nil
}

// CRF returns the constant-rate factor for the quality preset.
func (c ExportConfig) CRF() int {
	if crf, ok := qualityCRF[c.Quality]; ok {
		return crf
	}
	return qualityCRF[DefaultQuality]
}

// Preset returns the x264 preset name for the speed preset.
func (c ExportConfig) Preset() string {
	if p, ok := speedPresets[c.Speed]; ok {
		return p
	}
	return speedPresets[DefaultSpeed]
}

// CPUUsed returns the libvpx cpu-used value for the speed preset.
func (c ExportConfig) CPUUsed() int {
	if v, ok := speedCPUUsed[c.Speed]; ok {
		return v
	}
	return speedCPUUsed[DefaultSpeed]
}

// Container returns the muxer/codec description for the configured format.
func (c ExportConfig) Container() Container {
	if spec, ok := containers[c.Format]; ok {
		spec.ExtraArgs = append([]string(nil), spec.ExtraArgs...)
		return spec
	}
	return containers[DefaultFormat]
}

func parseDimensions(value string) (int, int, bool) {
	parts := strings.Split(value, "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 || w > 8192 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 || h > 8192 {
		return 0, 0, false
	}
	return w, h, true
}

func even(v int) int {
	if v%2 != 0 {
		return v + 1
	}
	return v
}
