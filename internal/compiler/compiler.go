// Package compiler lowers a plan to a single ffmpeg invocation: the input
// list, a filter_complex built through the graph package, and the encoder
// arguments for the configured container.
package compiler

import (
	"fmt"
	"strings"

	"montage/internal/audiomix"
	"montage/internal/graph"
	"montage/internal/plan"
	"montage/internal/services"
	"montage/internal/timeline"
)

// Staging resolves plan references to files in the job's working storage.
// All resources must be staged before Compile runs.
type Staging interface {
	SourcePath(ref string) (string, error)
	TextSurfacePath(label string) (string, error)
	HasAudio(ref string) bool
}

// Options tune the generated command line.
type Options struct {
	// ExtraInputArgs are placed before every media -i (hwaccel flags, ...).
	ExtraInputArgs []string
}

// Input is one -i entry.
type Input struct {
	Path string
	Args []string
}

// Program is a compiled ffmpeg invocation minus the output path.
type Program struct {
	Inputs      []Input
	FilterGraph string
	VideoOut    string
	AudioOut    string
	Duration    float64
	FPS         float64
	Container   timeline.Container
	Encode      []string
}

type inputs struct {
	list  []Input
	index map[string]int
}

func (in *inputs) add(path string, args []string) int {
	key := strings.Join(args, "\x00") + "\x00" + path
	if idx, ok := in.index[key]; ok {
		return idx
	}
	in.list = append(in.list, Input{Path: path, Args: append([]string(nil), args...)})
	idx := len(in.list) - 1
	in.index[key] = idx
	return idx
}

// Compile builds the full composite for p: a black canvas, every overlay in
// paint order, and the audio mix.
func Compile(p *plan.Plan, staging Staging, opts Options) (*Program, error) {
	if p.Frames <= 0 {
		return nil, services.Wrap(services.ErrValidation, "compile", "duration", "timeline has no visible or audible content", nil)
	}
	in := &inputs{index: make(map[string]int)}
	b := graph.NewBuilder()
	fps := graph.Num(p.FPS)
	duration := p.Duration()

	canvas := b.Source("base", graph.Video, graph.F("color",
		"c", "black",
		"s", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"r", fps,
		"d", graph.Num(duration),
	), graph.F("format", "pix_fmts", "rgba"))

	hold := []string{"-loop", "1", "-framerate", fps}
	for _, overlay := range p.Overlays {
		var idx int
		switch el := overlay.Element.(type) {
		case plan.TextElement:
			path, err := staging.TextSurfacePath(overlay.Label)
			if err != nil {
				return nil, err
			}
			idx = in.add(path, hold)
		case plan.ImageElement:
			path, err := staging.SourcePath(el.Clip.SourceRef)
			if err != nil {
				return nil, err
			}
			idx = in.add(path, hold)
		case plan.VideoElement:
			path, err := staging.SourcePath(el.Clip.SourceRef)
			if err != nil {
				return nil, err
			}
			idx = in.add(path, opts.ExtraInputArgs)
		default:
			return nil, fmt.Errorf("overlay %s: unsupported element %T", overlay.Label, el)
		}

		filters, err := chainFilters(overlay.Chain, p.FPS)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", overlay.Label, err)
		}
		layer := b.Filter(overlay.Label, b.Input(idx, graph.Video), filters...)
		canvas = b.Overlay("o"+overlay.Label, canvas, layer, overlayFilter(overlay))
	}

	video := b.Filter("vout", canvas, outputFormat(p.Config.Container())...)
	prog := &Program{
		Duration:  duration,
		FPS:       p.FPS,
		Container: p.Config.Container(),
		VideoOut:  b.Output(video),
	}

	if prog.Container.SupportsAudio {
		out, err := compileAudio(b, in, p, staging, opts)
		if err != nil {
			return nil, err
		}
		prog.AudioOut = b.Output(out)
	}

	graphText, err := b.String()
	if err != nil {
		return nil, fmt.Errorf("build filter graph: %w", err)
	}
	prog.FilterGraph = graphText
	prog.Inputs = in.list
	prog.Encode = EncoderArgs(p.Config, prog.AudioOut != "")
	return prog, nil
}

// CompileMux wraps pre-rendered frames (an intermediate video at framesPath)
// with the same audio mix and encoder settings Compile would use.
func CompileMux(p *plan.Plan, framesPath string, staging Staging, opts Options) (*Program, error) {
	if p.Frames <= 0 {
		return nil, services.Wrap(services.ErrValidation, "compile", "duration", "timeline has no visible or audible content", nil)
	}
	in := &inputs{index: make(map[string]int)}
	b := graph.NewBuilder()
	idx := in.add(framesPath, []string{"-r", graph.Num(p.FPS)})
	video := b.Filter("vout", b.Input(idx, graph.Video),
		append([]graph.Filter{graph.F("trim", "duration", graph.Num(p.Duration()))}, outputFormat(p.Config.Container())...)...)

	prog := &Program{
		Duration:  p.Duration(),
		FPS:       p.FPS,
		Container: p.Config.Container(),
		VideoOut:  b.Output(video),
	}
	if prog.Container.SupportsAudio {
		out, err := compileAudio(b, in, p, staging, opts)
		if err != nil {
			return nil, err
		}
		prog.AudioOut = b.Output(out)
	}
	graphText, err := b.String()
	if err != nil {
		return nil, fmt.Errorf("build filter graph: %w", err)
	}
	prog.FilterGraph = graphText
	prog.Inputs = in.list
	prog.Encode = EncoderArgs(p.Config, prog.AudioOut != "")
	return prog, nil
}

func compileAudio(b *graph.Builder, in *inputs, p *plan.Plan, staging Staging, opts Options) (graph.Pad, error) {
	var contributions []audiomix.Contribution
	var sources []graph.Pad
	for _, c := range audiomix.Contributions(p) {
		if !staging.HasAudio(c.SourceRef) {
			continue
		}
		path, err := staging.SourcePath(c.SourceRef)
		if err != nil {
			return graph.Pad{}, err
		}
		idx := in.add(path, opts.ExtraInputArgs)
		contributions = append(contributions, c)
		sources = append(sources, b.Input(idx, graph.Audio))
	}
	return audiomix.Mix(b, sources, contributions, p.Duration()), nil
}

func overlayFilter(o plan.Overlay) graph.Filter {
	x, y := o.Placement()
	yExpr := graph.Num(y)
	if d := o.SlideDistance(); d != 0 {
		progress := "1"
		if o.FadeInSeconds > 0 {
			progress = fmt.Sprintf("clip((t-%s)/%s,0,1)", graph.Num(o.Active.Start), graph.Num(o.FadeInSeconds))
		}
		yExpr = fmt.Sprintf("%s+%s*(1-%s)", graph.Num(y), graph.Num(d), progress)
	}
	return graph.F("overlay",
		"x", graph.Num(x),
		"y", yExpr,
		"format", "auto",
		"eof_action", "pass",
		"enable", fmt.Sprintf("gte(t,%s)*lt(t,%s)", graph.Num(o.Active.Start), graph.Num(o.Active.End)),
	)
}

func outputFormat(c timeline.Container) []graph.Filter {
	if c.PixelFormat == "" {
		return []graph.Filter{graph.F("null")}
	}
	return []graph.Filter{graph.F("format", "pix_fmts", c.PixelFormat)}
}

// EncoderArgs returns codec, rate-control, and muxer flags for cfg. Output
// is made bit-exact so identical jobs produce identical files.
func EncoderArgs(cfg timeline.ExportConfig, withAudio bool) []string {
	c := cfg.Container()
	args := []string{"-c:v", c.VideoCodec}
	switch c.VideoCodec {
	case "libx264":
		args = append(args, "-preset", cfg.Preset(), "-crf", graph.Int(cfg.CRF()), "-pix_fmt", c.PixelFormat)
	case "libvpx-vp9":
		args = append(args, "-crf", graph.Int(cfg.CRF()), "-b:v", "0", "-cpu-used", graph.Int(cfg.CPUUsed()), "-row-mt", "1", "-pix_fmt", c.PixelFormat)
	}
	args = append(args, "-r", graph.Num(timingFPS(cfg)))
	if withAudio {
		args = append(args, "-c:a", c.AudioCodec, "-ar", graph.Int(audiomix.SampleRate), "-ac", "2")
		switch c.AudioCodec {
		case "libopus":
			args = append(args, "-b:a", "160k")
		default:
			args = append(args, "-b:a", "192k")
		}
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-map_metadata", "-1", "-fflags", "+bitexact", "-flags:v", "+bitexact", "-flags:a", "+bitexact")
	args = append(args, c.ExtraArgs...)
	args = append(args, "-f", c.Muxer)
	return args
}

func timingFPS(cfg timeline.ExportConfig) float64 {
	if cfg.FPS > 0 {
		return cfg.FPS
	}
	return timeline.DefaultFPS
}

// Args returns the complete ffmpeg argument list writing to output.
// Progress is reported as key=value lines on stdout.
func (p *Program) Args(output string) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	for _, in := range p.Inputs {
		args = append(args, in.Args...)
		args = append(args, "-i", in.Path)
	}
	args = append(args, "-filter_complex", p.FilterGraph, "-map", p.VideoOut)
	if p.AudioOut != "" {
		args = append(args, "-map", p.AudioOut)
	}
	args = append(args, p.Encode...)
	args = append(args, "-t", graph.Num(p.Duration), "-progress", "pipe:1", "-nostats", output)
	return args
}
