// Package main hosts the montage CLI entrypoint and command graph.
//
// The Cobra command tree loads a project file, resolves export settings from
// flags over configuration defaults, and hands the job to the export
// orchestrator. It also exposes a dry-run view of the compiled ffmpeg
// program, the export registry, configuration scaffolding, and environment
// diagnostics.
//
// Keep this package lean: rendering, staging, and bookkeeping live in the
// internal packages; commands here only wire them together and format
// output.
package main
