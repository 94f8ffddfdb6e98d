package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"montage/internal/assets"
	"montage/internal/backend"
	"montage/internal/backend/ffmpeg"
	"montage/internal/backend/gpu"
	"montage/internal/config"
	"montage/internal/export"
	"montage/internal/logging"
	"montage/internal/registry"
	"montage/internal/timeline"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) openRegistry() (*registry.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := registry.Open(cfg.Paths.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("open export registry: %w", err)
	}
	return store, nil
}

// sourceRoot is the directory relative sourceRef values resolve against:
// paths.assets_dir when set, otherwise the project file's directory.
func sourceRoot(cfg *config.Config, projectPath string) string {
	if dir := strings.TrimSpace(cfg.Paths.AssetsDir); dir != "" {
		return dir
	}
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return filepath.Dir(projectPath)
	}
	return filepath.Dir(abs)
}

func newOrchestrator(cfg *config.Config, projectPath string, store registry.Registry, logger *slog.Logger) (*export.Orchestrator, error) {
	return export.New(export.Options{
		WorkDir:       cfg.Paths.WorkDir,
		Sources:       assets.DirSourceStore{Root: sourceRoot(cfg, projectPath)},
		Fonts:         assets.DirFontStore{Dir: cfg.Paths.FontsDir, Families: cfg.Fonts.Families},
		DefaultFont:   cfg.Fonts.DefaultFamily,
		FFprobeBinary: cfg.FFmpeg.FFprobeBinary,
		MinFreeGiB:    cfg.Preflight.MinFreeGiB,
		Factory:       backendFactory(cfg, logger),
		Registry:      store,
		Logger:        logger,
	})
}

func backendFactory(cfg *config.Config, logger *slog.Logger) export.BackendFactory {
	return func(engine timeline.Engine, ws *backend.Workspace) (backend.Backend, error) {
		switch engine {
		case timeline.EngineGPU:
			return gpu.New(ws, gpu.Options{
				FFmpegBinary:   cfg.FFmpeg.FFmpegBinary,
				ExtraInputArgs: cfg.FFmpeg.ExtraInputArgs,
				Logger:         logger,
			}), nil
		case timeline.EngineCPU, "":
			return ffmpeg.New(ws, ffmpeg.Options{
				Binary:         cfg.FFmpeg.FFmpegBinary,
				ExtraInputArgs: cfg.FFmpeg.ExtraInputArgs,
				Logger:         logger,
			}), nil
		default:
			return nil, fmt.Errorf("unknown render engine %q", engine)
		}
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
