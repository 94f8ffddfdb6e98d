// Package services defines shared utilities consumed by the export pipeline
// and its backends.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, phase names, render engines, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and the typed asset and
//     backend errors that unwrap to those markers so callers can classify
//     failures with errors.Is.
//   - Mapping failures onto the terminal status recorded in the export
//     registry.
package services
