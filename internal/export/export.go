package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"montage/internal/assets"
	"montage/internal/backend"
	"montage/internal/logging"
	"montage/internal/plan"
	"montage/internal/preflight"
	"montage/internal/registry"
	"montage/internal/services"
	"montage/internal/timeline"
)

// ProgressSink receives advisory (processed, total) frame counts.
type ProgressSink func(processed, total int64)

// Metadata describes a finished artifact.
type Metadata struct {
	DurationSeconds float64
	FileSizeBytes   int64
	Config          timeline.ExportConfig
}

// Artifact is the encoded output of a job.
type Artifact struct {
	Bytes    []byte
	Metadata Metadata
}

// BackendFactory returns a fresh backend bound to ws. Backends are never
// reused across jobs.
type BackendFactory func(engine timeline.Engine, ws *backend.Workspace) (backend.Backend, error)

// Options configure an Orchestrator.
type Options struct {
	// WorkDir holds one scoped workspace per running job.
	WorkDir string
	Sources assets.SourceStore
	Fonts   assets.FontStore
	// DefaultFont draws overlays whose family is missing or unset.
	DefaultFont string
	// FFprobeBinary enables source probing when set.
	FFprobeBinary string
	// MinFreeGiB is the free space WorkDir must have before Compiling.
	MinFreeGiB float64
	Factory    BackendFactory
	// Registry, when set, receives a record for every finished job.
	Registry registry.Registry
	Logger   *slog.Logger
	// Parallelism bounds concurrent staging; 0 uses GOMAXPROCS.
	Parallelism int
}

// Orchestrator runs export jobs sequentially through a backend.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case strings.TrimSpace(opts.WorkDir) == "":
		return nil, services.Wrap(services.ErrConfiguration, "export", "init", "work directory is required", nil)
	case opts.Sources == nil:
		return nil, services.Wrap(services.ErrConfiguration, "export", "init", "source store is required", nil)
	case opts.Factory == nil:
		return nil, services.Wrap(services.ErrConfiguration, "export", "init", "backend factory is required", nil)
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Orchestrator{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "export"),
		now:    time.Now,
	}, nil
}

// Request is one export submission.
type Request struct {
	Snapshot *timeline.Snapshot
	Config   timeline.ExportConfig
	// OutputPath is recorded in the registry. The orchestrator never writes
	// it; callers persist Artifact.Bytes themselves.
	OutputPath string
}

// Job is a single export run. A Job runs at most once.
type Job struct {
	ID string

	o       *Orchestrator
	req     Request
	machine *stateMachine

	mu        sync.Mutex
	err       error
	plan      *plan.Plan
	startedAt time.Time
}

// NewJob prepares a job in the Idle state.
func (o *Orchestrator) NewJob(req Request) *Job {
	return &Job{
		ID:      uuid.NewString(),
		o:       o,
		req:     req,
		machine: newStateMachine(o.now),
	}
}

// Export creates and runs a job.
func (o *Orchestrator) Export(ctx context.Context, req Request, sink ProgressSink) (*Job, *Artifact, error) {
	job := o.NewJob(req)
	artifact, err := job.Run(ctx, sink)
	return job, artifact, err
}

// State returns the current phase.
func (j *Job) State() State { return j.machine.current() }

// Transitions returns every state change so far, oldest first.
func (j *Job) Transitions() []Transition { return j.machine.history() }

// Err returns the terminal error of a Failed or Cancelled job.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Plan returns the resolved plan once Compiling has completed.
func (j *Job) Plan() *plan.Plan {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.plan
}

// Run drives the job to a terminal state.
func (j *Job) Run(ctx context.Context, sink ProgressSink) (*Artifact, error) {
	if j.State() != StateIdle {
		return nil, services.Wrap(services.ErrValidation, "export", "run", fmt.Sprintf("job %s already ran", j.ID), nil)
	}
	if j.req.Snapshot == nil {
		return nil, j.fail(ctx, services.Wrap(services.ErrValidation, "export", "run", "snapshot is required", nil))
	}
	cfg := j.req.Config.WithDefaults()
	ctx = services.WithJobID(ctx, j.ID)
	ctx = services.WithEngine(ctx, string(cfg.RenderEngine))
	j.mu.Lock()
	j.startedAt = j.o.now()
	j.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return nil, j.fail(ctx, err)
	}

	j.transition(ctx, StateCompiling)
	ctx = services.WithStage(ctx, string(StateCompiling))
	if r := preflight.CheckFreeSpace("working disk space", j.o.opts.WorkDir, j.o.opts.MinFreeGiB); !r.Passed {
		return nil, j.fail(ctx, services.Wrap(services.ErrConfiguration, string(StateCompiling), "preflight", r.Detail, nil))
	}
	ws, err := backend.OpenWorkspace(j.o.opts.WorkDir, j.ID)
	if err != nil {
		return nil, j.fail(ctx, err)
	}
	be, err := j.o.opts.Factory(cfg.RenderEngine, ws)
	if err != nil {
		_ = ws.Discard()
		return nil, j.fail(ctx, services.Wrap(services.ErrConfiguration, string(StateCompiling), "backend", string(cfg.RenderEngine), err))
	}
	defer func() {
		if err := be.Close(); err != nil {
			logging.WithContext(ctx, j.o.logger).Warn("backend close failed",
				logging.String(logging.FieldEventType, "backend_close_failed"),
				logging.Error(err),
			)
		}
	}()

	p, err := j.compile(ctx, ws, cfg)
	if err != nil {
		return nil, j.fail(ctx, err)
	}
	j.mu.Lock()
	j.plan = p
	j.mu.Unlock()

	j.transition(ctx, StateExecuting)
	ctx = services.WithStage(ctx, string(StateExecuting))
	data, err := be.Render(ctx, backend.Job{ID: j.ID, Plan: p}, backend.Monotonic(j.progress(ctx, sink)))
	if err != nil {
		return nil, j.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, j.fail(ctx, err)
	}

	j.transition(ctx, StatePackaging)
	ctx = services.WithStage(ctx, string(StatePackaging))
	artifact := &Artifact{
		Bytes: data,
		Metadata: Metadata{
			DurationSeconds: p.Duration(),
			FileSizeBytes:   int64(len(data)),
			Config:          p.Config,
		},
	}

	j.transition(ctx, StateDone)
	j.record(ctx, registry.StatusDone, artifact, nil)
	return artifact, nil
}

// progress forwards render progress to sink and logs it in 10% steps.
func (j *Job) progress(ctx context.Context, sink ProgressSink) backend.ProgressFunc {
	sampler := logging.NewProgressSampler(10)
	logger := logging.WithContext(ctx, j.o.logger)
	return func(processed, total int64) {
		if sink != nil {
			sink(processed, total)
		}
		percent := -1.0
		if total > 0 {
			percent = float64(processed) / float64(total) * 100
		}
		if sampler.ShouldLog(percent, string(StateExecuting)) {
			logger.Debug("render progress",
				logging.String(logging.FieldEventType, "render_progress"),
				logging.Int64("processed", processed),
				logging.Int64("total", total),
			)
		}
	}
}

func (j *Job) transition(ctx context.Context, next State) {
	prev, ok := j.machine.advance(next)
	if !ok {
		return
	}
	logging.WithContext(ctx, j.o.logger).Info("export state changed",
		logging.String(logging.FieldEventType, "state_transition"),
		logging.String("from", string(prev)),
		logging.String("to", string(next)),
	)
}

// fail moves the job to Failed or Cancelled and returns the terminal error.
func (j *Job) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, services.ErrCancelled) {
		err = services.Wrap(services.ErrCancelled, string(j.State()), "export", "job cancelled", err)
	}
	status := services.FailureStatus(err)
	next := StateFailed
	if status == registry.StatusCancelled {
		next = StateCancelled
	}
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()

	j.transition(ctx, next)
	attrs := []logging.Attr{
		logging.String("state", string(next)),
		logging.Bool("retryable", services.Retryable(err)),
		logging.Error(err),
	}
	logger := logging.WithContext(ctx, j.o.logger)
	if next == StateCancelled {
		logger.Warn("export cancelled", logging.Args(append(attrs, logging.String(logging.FieldEventType, "export_cancelled"))...)...)
	} else {
		logging.ErrorWithContext(logger, "export failed", "export_failed", attrs...)
	}
	j.record(ctx, status, nil, err)
	return err
}

func (j *Job) record(ctx context.Context, status registry.Status, artifact *Artifact, jobErr error) {
	if j.o.opts.Registry == nil || j.req.Snapshot == nil {
		return
	}
	cfg := j.req.Config.WithDefaults()
	rec := registry.Record{
		JobID:      j.ID,
		Project:    j.req.Snapshot.Name(),
		Status:     status,
		Engine:     string(cfg.RenderEngine),
		Format:     cfg.Format,
		Resolution: cfg.Resolution,
		OutputPath: j.req.OutputPath,
		FinishedAt: j.o.now(),
	}
	j.mu.Lock()
	rec.StartedAt = j.startedAt
	j.mu.Unlock()
	if artifact != nil {
		rec.DurationSeconds = artifact.Metadata.DurationSeconds
		rec.FileSizeBytes = artifact.Metadata.FileSizeBytes
		cfg = artifact.Metadata.Config
	}
	if encoded, err := json.Marshal(cfg); err == nil {
		rec.ConfigJSON = string(encoded)
	}
	if jobErr != nil {
		rec.ErrorMessage = jobErr.Error()
	}
	// Cancelled jobs still get recorded.
	if err := j.o.opts.Registry.Append(context.WithoutCancel(ctx), rec); err != nil {
		logging.WithContext(ctx, j.o.logger).Warn("export registry append failed",
			logging.String(logging.FieldEventType, "registry_append_failed"),
			logging.Error(err),
		)
	}
}
