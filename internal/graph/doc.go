// Package graph is a small typed DAG for ffmpeg filter graphs.
//
// Callers add source, filter, overlay, and mix nodes through a Builder and
// receive opaque pads; the builder assigns unique labels, inserts split
// nodes for pads consumed more than once, and serializes the result to a
// filter_complex string in creation order. Every pad must be consumed or
// marked as an output before serialization succeeds.
package graph
