// Package gpu is the raster backend. It composites every output frame with
// gogpu/gg, writes the frames to an MJPEG AVI intermediate, and hands that
// to ffmpeg together with the shared audio mix for final encoding.
//
// Video sources are still decoded by ffmpeg (to raw RGBA at working size);
// stills and text surfaces are decoded in-process. All spatial ops follow the
// same chain the CPU backend serializes, so both backends place every
// overlay identically.
package gpu
