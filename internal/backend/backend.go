// Package backend defines the contract between the export orchestrator and
// the engines that turn a plan into encoded bytes, plus the per-job working
// storage both engines stage their resources into.
package backend

import (
	"context"

	"montage/internal/plan"
)

// ProgressFunc receives (processed, total) frame counts. Values are
// advisory; processed never decreases within a job.
type ProgressFunc func(processed, total int64)

// Job is one export handed to a backend after staging completes.
type Job struct {
	ID   string
	Plan *plan.Plan
}

// Backend executes a fully staged job. Each instance serves one job: after
// Close (or a cancelled Render) it must not be reused.
type Backend interface {
	Name() string
	Workspace() *Workspace
	Render(ctx context.Context, job Job, progress ProgressFunc) ([]byte, error)
	Close() error
}

// Monotonic wraps fn so reported progress never goes backwards and never
// exceeds total.
func Monotonic(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(int64, int64) {}
	}
	var last int64
	return func(processed, total int64) {
		if total > 0 && processed > total {
			processed = total
		}
		if processed < last {
			processed = last
		}
		last = processed
		fn(processed, total)
	}
}
