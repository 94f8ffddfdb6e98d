package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"montage/internal/config"
	"montage/internal/export"
	"montage/internal/preflight"
	"montage/internal/services"
	"montage/internal/textutil"
	"montage/internal/timeline"
)

type exportFlags struct {
	output     string
	engine     string
	format     string
	resolution string
	quality    string
	speed      string
	fps        float64
}

// apply overlays the flags that were set onto base.
func (f exportFlags) apply(base timeline.ExportConfig) timeline.ExportConfig {
	cfg := base
	if v := strings.TrimSpace(f.engine); v != "" {
		cfg.RenderEngine = timeline.Engine(strings.ToLower(v))
	}
	if v := strings.TrimSpace(f.format); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(f.resolution); v != "" {
		cfg.Resolution = v
	}
	if v := strings.TrimSpace(f.quality); v != "" {
		cfg.Quality = strings.ToLower(v)
	}
	if v := strings.TrimSpace(f.speed); v != "" {
		cfg.Speed = strings.ToLower(v)
	}
	if f.fps > 0 {
		cfg.FPS = f.fps
	}
	return cfg.WithDefaults()
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Render a project file to a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			project, err := timeline.LoadFile(args[0])
			if err != nil {
				return err
			}
			exportCfg := flags.apply(cfg.ExportConfig())
			if err := exportCfg.Validate(); err != nil {
				return err
			}
			output, err := outputPath(cfg, flags.output, project.Name, exportCfg)
			if err != nil {
				return err
			}

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				return preflightError(failed)
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			defer store.Close()

			orchestrator, err := newOrchestrator(cfg, args[0], store, logger)
			if err != nil {
				return err
			}

			progress := newProgressPrinter(cmd.ErrOrStderr())
			job, artifact, err := orchestrator.Export(cmd.Context(), export.Request{
				Snapshot:   project.Freeze(),
				Config:     exportCfg,
				OutputPath: output,
			}, progress.Update)
			progress.Done()
			if err != nil {
				if services.Retryable(err) {
					return fmt.Errorf("export %s failed (retry after fixing the cause): %w", job.ID, err)
				}
				return fmt.Errorf("export %s failed: %w", job.ID, err)
			}

			if err := writeArtifact(output, artifact.Bytes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %s, %s engine)\n",
				output,
				humanBytes(artifact.Metadata.FileSizeBytes),
				formatSeconds(artifact.Metadata.DurationSeconds),
				artifact.Metadata.Config.RenderEngine,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: <output_dir>/<project>.<ext>)")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "Render engine: cpu or gpu")
	cmd.Flags().StringVar(&flags.format, "format", "", "Container: mp4, webm, mov, avi, gif")
	cmd.Flags().StringVar(&flags.resolution, "resolution", "", "Preset (720p, 1080p, ...) or WIDTHxHEIGHT")
	cmd.Flags().StringVar(&flags.quality, "quality", "", "Quality preset: low, medium, high, ultra")
	cmd.Flags().StringVar(&flags.speed, "speed", "", "Encoder speed: fastest, fast, balanced, slow, slowest")
	cmd.Flags().Float64Var(&flags.fps, "fps", 0, "Output frame rate")
	return cmd
}

// outputPath resolves -o, defaulting to the configured output directory.
// A path without an extension gets the container's.
func outputPath(cfg *config.Config, flag, projectName string, exportCfg timeline.ExportConfig) (string, error) {
	ext := exportCfg.Container().Extension
	target := strings.TrimSpace(flag)
	if target == "" {
		name := textutil.SanitizeFileName(projectName, "export")
		return filepath.Join(cfg.Paths.OutputDir, name+ext), nil
	}
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	if filepath.Ext(expanded) == "" {
		expanded += ext
	}
	return expanded, nil
}

// writeArtifact writes data next to path and renames it into place so a
// failed write never leaves a truncated file behind.
func writeArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".montage-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

func preflightError(failed []preflight.Result) error {
	msgs := make([]string, 0, len(failed))
	for _, r := range failed {
		msgs = append(msgs, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", "run `montage doctor` for details",
		errors.New(strings.Join(msgs, "; ")))
}
