// Package logging assembles structured slog loggers and formatting helpers used
// across montage.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so export code automatically
// tags log lines with job IDs, phases, and render engines. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
