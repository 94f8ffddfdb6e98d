package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeExport()
	c.normalizeFonts()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.work_dir", &c.Paths.WorkDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.fonts_dir", &c.Paths.FontsDir},
		{"paths.assets_dir", &c.Paths.AssetsDir},
		{"paths.registry_path", &c.Paths.RegistryPath},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if value, ok := os.LookupEnv("MONTAGE_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFmpegBinary = value
	}
	if value, ok := os.LookupEnv("MONTAGE_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.FFmpeg.FFprobeBinary = value
	}
	c.FFmpeg.FFmpegBinary = strings.TrimSpace(c.FFmpeg.FFmpegBinary)
	if c.FFmpeg.FFmpegBinary == "" {
		c.FFmpeg.FFmpegBinary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	args := c.FFmpeg.ExtraInputArgs[:0]
	for _, arg := range c.FFmpeg.ExtraInputArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.FFmpeg.ExtraInputArgs = args
}

func (c *Config) normalizeExport() {
	export := c.ExportConfig()
	c.Export = Export{
		Resolution:   export.Resolution,
		Quality:      export.Quality,
		Speed:        export.Speed,
		FPS:          export.FPS,
		Format:       export.Format,
		RenderEngine: string(export.RenderEngine),
	}
}

func (c *Config) normalizeFonts() {
	c.Fonts.DefaultFamily = strings.TrimSpace(c.Fonts.DefaultFamily)
	if c.Fonts.DefaultFamily == "" {
		c.Fonts.DefaultFamily = defaultFontFamily
	}
	families := make(map[string]string, len(c.Fonts.Families))
	for name, file := range c.Fonts.Families {
		name = strings.TrimSpace(name)
		file = strings.TrimSpace(file)
		if name == "" || file == "" {
			continue
		}
		families[name] = file
	}
	c.Fonts.Families = families
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("MONTAGE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
