package gpu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/gogpu/gg"
	"github.com/icza/mjpeg"
	"golang.org/x/sync/errgroup"

	"montage/internal/backend"
	"montage/internal/backend/ffmpeg"
	"montage/internal/compiler"
	"montage/internal/logging"
	"montage/internal/preflight"
	"montage/internal/services"
)

// Name identifies this backend in logs and the export registry.
const Name = "gpu"

const defaultJPEGQuality = 92

// Options configure the raster backend.
type Options struct {
	FFmpegBinary   string
	ExtraInputArgs []string
	Logger         *slog.Logger
	// Exec replaces process execution for decode and mux steps.
	Exec ffmpeg.Executor
	// Parallelism bounds concurrent source decodes; 0 uses GOMAXPROCS.
	Parallelism int
	JPEGQuality int
}

// Backend composites frames in-process.
type Backend struct {
	ws          *backend.Workspace
	runner      *ffmpeg.Runner
	opts        compiler.Options
	logger      *slog.Logger
	parallelism int
	quality     int
}

// New returns a raster backend bound to ws.
func New(ws *backend.Workspace, opts Options) *Backend {
	runner := ffmpeg.NewRunner(opts.FFmpegBinary)
	if opts.Exec != nil {
		runner.Exec = opts.Exec
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	return &Backend{
		ws:          ws,
		runner:      runner,
		opts:        compiler.Options{ExtraInputArgs: opts.ExtraInputArgs},
		logger:      logging.NewComponentLogger(opts.Logger, "gpu"),
		parallelism: parallelism,
		quality:     quality,
	}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Workspace() *backend.Workspace { return b.ws }

// Render decodes every layer, composites all frames into an MJPEG
// intermediate, then muxes it with the audio mix into the target container.
func (b *Backend) Render(ctx context.Context, job backend.Job, progress backend.ProgressFunc) ([]byte, error) {
	p := job.Plan
	if p.Frames <= 0 {
		return nil, services.Wrap(services.ErrValidation, "gpu", "render", "timeline has no visible or audible content", nil)
	}
	report := backend.Monotonic(progress)
	logger := logging.WithContext(ctx, b.logger)
	started := time.Now()

	if r := preflight.CheckFreeBytes("raw decode space", b.ws.Dir(), rawDecodeBytes(p)); !r.Passed {
		return nil, services.Wrap(services.ErrConfiguration, "gpu", "decode", r.Detail, nil)
	}
	layers, err := b.loadLayers(ctx, p)
	if err != nil {
		return nil, b.wrap(ctx, err)
	}
	defer closeLayers(layers)

	intermediate := b.ws.OutputPath("frames.avi")
	if err := b.composite(ctx, job, layers, intermediate, report); err != nil {
		return nil, b.wrap(ctx, err)
	}
	logger.Debug("frames composited",
		logging.String(logging.FieldEventType, "frames_complete"),
		logging.Int64("frames", p.Frames),
		logging.Duration("elapsed", time.Since(started)),
	)

	prog, err := compiler.CompileMux(p, intermediate, b.ws, b.opts)
	if err != nil {
		return nil, err
	}
	output := b.ws.OutputPath("export" + prog.Container.Extension)
	if err := b.runner.Run(ctx, prog.Args(output), p.Frames, nil); err != nil {
		return nil, err
	}
	report(p.Frames, p.Frames)

	data, err := os.ReadFile(output)
	if err != nil || len(data) == 0 {
		return nil, &services.BackendExecutionError{Backend: Name, Details: "mux produced no output", Err: err}
	}
	logger.Info("gpu render completed",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int64("frames", p.Frames),
		logging.Int("bytes", len(data)),
	)
	return data, nil
}

func (b *Backend) composite(ctx context.Context, job backend.Job, layers map[string]layer, path string, report backend.ProgressFunc) error {
	p := job.Plan
	fps := int32(math.Max(1, math.Round(p.FPS)))
	writer, err := mjpeg.New(path, int32(p.Width), int32(p.Height), fps)
	if err != nil {
		return fmt.Errorf("create frame writer: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = writer.Close()
		}
	}()

	dc := gg.NewContext(p.Width, p.Height)
	defer dc.Close()
	black := gg.RGBA{R: 0, G: 0, B: 0, A: 1}
	var buf bytes.Buffer

	for frame := int64(0); frame < p.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := float64(frame) / p.FPS
		dc.ClearWithColor(black)
		for _, overlay := range p.Overlays {
			l, ok := layers[overlay.Label]
			if !ok || !overlay.Active.Contains(t) {
				continue
			}
			local := frame - overlay.Element.Window().From
			img, err := l.Frame(local)
			if err != nil {
				return fmt.Errorf("overlay %s: %w", overlay.Label, err)
			}
			if img == nil {
				continue
			}
			w, h := img.Bounds()
			if state, visible := frameState(overlay, t, w, h); visible {
				drawLayer(dc, img, state)
			}
		}

		buf.Reset()
		if err := dc.EncodeJPEG(&buf, b.quality); err != nil {
			return fmt.Errorf("encode frame %d: %w", frame, err)
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			return fmt.Errorf("write frame %d: %w", frame, err)
		}
		report(frame+1, p.Frames)
	}

	closed = true
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize frames: %w", err)
	}
	return nil
}

// wrap classifies raster failures: cancellation stays cancellation, and
// everything else becomes a backend execution error.
func (b *Backend) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return services.Wrap(services.ErrCancelled, "gpu", "render", "export cancelled", ctx.Err())
	}
	var execErr *services.BackendExecutionError
	if errors.As(err, &execErr) || errors.Is(err, services.ErrNotFound) {
		return err
	}
	return &services.BackendExecutionError{Backend: Name, Err: err}
}

// Close discards the workspace.
func (b *Backend) Close() error {
	return b.ws.Discard()
}

func newGroup(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	return g, gctx
}
