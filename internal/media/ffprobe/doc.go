// Package ffprobe inspects source assets with ffprobe.
//
// Inspect runs ffprobe and decodes its JSON report; Result.Info reduces the
// report to the properties the planner needs (duration, display size, and
// whether the asset carries sound).
package ffprobe
