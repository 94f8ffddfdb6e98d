package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"montage/internal/backend"
	"montage/internal/compiler"
	"montage/internal/logging"
	"montage/internal/services"
)

// Name identifies this backend in logs and the export registry.
const Name = "cpu"

// Options configure the CPU backend.
type Options struct {
	Binary         string
	ExtraInputArgs []string
	Logger         *slog.Logger
	Exec           Executor
}

// Backend renders a plan with one ffmpeg process.
type Backend struct {
	ws     *backend.Workspace
	runner *Runner
	opts   compiler.Options
	logger *slog.Logger
}

// New returns a CPU backend bound to ws.
func New(ws *backend.Workspace, opts Options) *Backend {
	runner := NewRunner(opts.Binary)
	if opts.Exec != nil {
		runner.Exec = opts.Exec
	}
	return &Backend{
		ws:     ws,
		runner: runner,
		opts:   compiler.Options{ExtraInputArgs: opts.ExtraInputArgs},
		logger: logging.NewComponentLogger(opts.Logger, "ffmpeg"),
	}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Workspace() *backend.Workspace { return b.ws }

// Render compiles the job's plan against the staged workspace, runs ffmpeg,
// and returns the encoded file.
func (b *Backend) Render(ctx context.Context, job backend.Job, progress backend.ProgressFunc) ([]byte, error) {
	prog, err := compiler.Compile(job.Plan, b.ws, b.opts)
	if err != nil {
		return nil, err
	}
	output := b.ws.OutputPath("export" + prog.Container.Extension)
	logger := logging.WithContext(ctx, b.logger)
	logger.Debug("ffmpeg command prepared",
		logging.String(logging.FieldEventType, "ffmpeg_command"),
		logging.Int("inputs", len(prog.Inputs)),
		logging.String("filter_graph", prog.FilterGraph),
	)

	started := time.Now()
	if err := b.runner.Run(ctx, prog.Args(output), job.Plan.Frames, progress); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(output)
	if err != nil {
		return nil, &services.BackendExecutionError{Backend: Name, Details: "ffmpeg produced no output", Err: err}
	}
	if len(data) == 0 {
		return nil, &services.BackendExecutionError{Backend: Name, Details: fmt.Sprintf("empty output %s", output)}
	}
	logger.Info("ffmpeg render completed",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int64("frames", job.Plan.Frames),
		logging.Int("bytes", len(data)),
	)
	return data, nil
}

// Close discards the workspace.
func (b *Backend) Close() error {
	return b.ws.Discard()
}
