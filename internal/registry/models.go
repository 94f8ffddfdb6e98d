package registry

import (
	"strings"
	"time"
)

// Status is the terminal state of an export job.
type Status string

const (
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes a status string, reporting whether it is known.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusDone, StatusFailed, StatusCancelled:
		return s, true
	default:
		return "", false
	}
}

// Record is one finished export.
type Record struct {
	JobID           string
	Project         string
	Status          Status
	Engine          string
	Format          string
	Resolution      string
	OutputPath      string
	DurationSeconds float64
	FileSizeBytes   int64
	// ConfigJSON is the resolved export configuration as JSON.
	ConfigJSON   string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Elapsed is the wall-clock time the job took.
func (r Record) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
