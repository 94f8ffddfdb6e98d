// Package ffmpeg is the CPU backend: it compiles a plan to a single ffmpeg
// filter graph and runs it as one process, translating `-progress` output
// into frame counts.
package ffmpeg
