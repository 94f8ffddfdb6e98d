// Package timeline holds the declarative project model consumed by the export
// engine: clips, text overlays, tracks, and the export configuration.
//
// Callers hand the engine a Project; Freeze deep-copies it into a Snapshot so
// nothing downstream can observe later edits. Projects can be decoded from
// JSON or YAML documents.
package timeline
