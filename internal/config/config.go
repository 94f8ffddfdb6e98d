package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"montage/internal/timeline"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, output, and asset directories.
type Paths struct {
	WorkDir      string `toml:"work_dir"`
	OutputDir    string `toml:"output_dir"`
	LogDir       string `toml:"log_dir"`
	FontsDir     string `toml:"fonts_dir"`
	AssetsDir    string `toml:"assets_dir"`
	RegistryPath string `toml:"registry_path"`
}

// FFmpeg locates the external media tools.
type FFmpeg struct {
	FFmpegBinary   string   `toml:"ffmpeg_binary"`
	FFprobeBinary  string   `toml:"ffprobe_binary"`
	ExtraInputArgs []string `toml:"extra_input_args"`
}

// Export holds the defaults applied when a job does not override them.
type Export struct {
	Resolution   string  `toml:"resolution"`
	Quality      string  `toml:"quality"`
	Speed        string  `toml:"speed"`
	FPS          float64 `toml:"fps"`
	Format       string  `toml:"format"`
	RenderEngine string  `toml:"render_engine"`
}

// Fonts maps font family names to files under paths.fonts_dir.
type Fonts struct {
	DefaultFamily string            `toml:"default_family"`
	Families      map[string]string `toml:"families"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Preflight configures checks run before an export starts.
type Preflight struct {
	MinFreeGiB float64 `toml:"min_free_gib"`
}

// Config encapsulates all configuration values for montage.
//
// Configuration sections by subsystem:
//   - Paths: working storage, outputs, logs, fonts, assets, export registry
//   - FFmpeg: external tool binaries and extra input arguments
//   - Export: default export settings
//   - Fonts: default family and family-to-file mapping
//   - Logging: log format and level
//   - Preflight: free disk space required in the working directory
type Config struct {
	Paths     Paths     `toml:"paths"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Export    Export    `toml:"export"`
	Fonts     Fonts     `toml:"fonts"`
	Logging   Logging   `toml:"logging"`
	Preflight Preflight `toml:"preflight"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("montage.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories an export writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.RegistryPath); strings.TrimSpace(c.Paths.RegistryPath) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExportConfig returns the configured export defaults as a timeline value.
func (c *Config) ExportConfig() timeline.ExportConfig {
	return timeline.ExportConfig{
		Resolution:   c.Export.Resolution,
		Quality:      c.Export.Quality,
		Speed:        c.Export.Speed,
		FPS:          c.Export.FPS,
		Format:       c.Export.Format,
		RenderEngine: timeline.Engine(c.Export.RenderEngine),
	}.WithDefaults()
}

// FontFile resolves the file configured for a family, matching names
// case-insensitively. The second result is false when no mapping exists.
func (c *Config) FontFile(family string) (string, bool) {
	for name, file := range c.Fonts.Families {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(family)) {
			if filepath.IsAbs(file) {
				return file, true
			}
			return filepath.Join(c.Paths.FontsDir, file), true
		}
	}
	return "", false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
