package config

const (
	defaultConfigPath    = "~/.config/montage/config.toml"
	defaultWorkDir       = "~/.cache/montage/work"
	defaultOutputDir     = "~/Videos/montage"
	defaultLogDir        = "~/.local/share/montage/logs"
	defaultFontsDir      = "~/.local/share/montage/fonts"
	defaultRegistryPath  = "~/.local/share/montage/exports.db"
	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultResolution    = "1080p"
	defaultQuality       = "high"
	defaultSpeed         = "balanced"
	defaultFPS           = 30
	defaultFormat        = "mp4"
	defaultRenderEngine  = "cpu"
	defaultFontFamily    = "Inter"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultMinFreeGiB    = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:      defaultWorkDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			FontsDir:     defaultFontsDir,
			RegistryPath: defaultRegistryPath,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Export: Export{
			Resolution:   defaultResolution,
			Quality:      defaultQuality,
			Speed:        defaultSpeed,
			FPS:          defaultFPS,
			Format:       defaultFormat,
			RenderEngine: defaultRenderEngine,
		},
		Fonts: Fonts{
			DefaultFamily: defaultFontFamily,
			Families: map[string]string{
				defaultFontFamily: "Inter-Regular.ttf",
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Preflight: Preflight{
			MinFreeGiB: defaultMinFreeGiB,
		},
	}
}
