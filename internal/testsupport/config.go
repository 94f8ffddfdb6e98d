package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"montage/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Free space checks are disabled and logging is limited to errors.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FontsDir = filepath.Join(base, "fonts")
	cfgVal.Paths.RegistryPath = filepath.Join(base, "exports.db")
	cfgVal.Preflight.MinFreeGiB = 0
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithExportDefaults overrides the resolution and frame rate used when a
// project does not set them.
func WithExportDefaults(resolution string, fps float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.Resolution = resolution
		b.cfg.Export.FPS = fps
	}
}

// WithScript writes an executable shell script named name and points the
// matching ffmpeg or ffprobe setting at it.
func WithScript(name, script string) ConfigOption {
	return func(b *configBuilder) {
		target := b.writeBinary(name, []byte(script))
		switch name {
		case "ffmpeg":
			b.cfg.FFmpeg.FFmpegBinary = target
		case "ffprobe":
			b.cfg.FFmpeg.FFprobeBinary = target
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		for _, name := range names {
			b.writeBinary(name, []byte("#!/bin/sh\nexit 0\n"))
		}
		binDir := filepath.Join(b.baseDir, "bin")
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithFont writes data into the fonts directory and maps family to it.
func WithFont(family, file string, data []byte) ConfigOption {
	return func(b *configBuilder) {
		WriteBytes(b.t, filepath.Join(b.cfg.Paths.FontsDir, file), data, 0o644)
		families := make(map[string]string, len(b.cfg.Fonts.Families)+1)
		for name, existing := range b.cfg.Fonts.Families {
			families[name] = existing
		}
		families[family] = file
		b.cfg.Fonts.Families = families
	}
}

func (b *configBuilder) writeBinary(name string, script []byte) string {
	target := filepath.Join(b.baseDir, "bin", name)
	WriteBytes(b.t, target, script, 0o755)
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

// WriteConfig serializes cfg as TOML next to its directories and returns the
// file path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	WriteBytes(t, path, data, 0o644)
	return path
}
