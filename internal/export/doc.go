// Package export runs one export job end to end.
//
// A job moves through Compiling (stage sources and fonts into a fresh
// backend workspace, probe sources, resolve the plan, rasterize text),
// Executing (one Render call on the backend) and Packaging (assemble the
// artifact and its metadata) before reaching Done. Any error ends the job in
// Failed, or Cancelled when the context was cancelled; in both cases the
// backend and its workspace are discarded and no partial output escapes.
package export
