package gpu

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/gogpu/gg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"montage/internal/graph"
	"montage/internal/plan"
	"montage/internal/transform"
)

// layer yields the drawable image of one overlay for a frame index local to
// the overlay's window.
type layer interface {
	Frame(local int64) (*gg.ImageBuf, error)
	Close() error
}

// staticLayer is a still image or text surface with its spatial ops baked in.
type staticLayer struct {
	buf *gg.ImageBuf
}

func (l staticLayer) Frame(int64) (*gg.ImageBuf, error) { return l.buf, nil }
func (staticLayer) Close() error                        { return nil }

// videoLayer reads raw RGBA frames decoded by ffmpeg at working size and
// applies the remaining spatial ops per frame.
type videoLayer struct {
	file   *os.File
	width  int
	height int
	frames int64
	ops    []transform.Op
}

func (l *videoLayer) Frame(local int64) (*gg.ImageBuf, error) {
	if l.frames <= 0 {
		return nil, nil
	}
	local = min(max(local, 0), l.frames-1)
	img := image.NewRGBA(image.Rect(0, 0, l.width, l.height))
	offset := local * int64(len(img.Pix))
	if _, err := l.file.ReadAt(img.Pix, offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read frame %d: %w", local, err)
	}
	return gg.ImageBufFromImage(applySpatial(img, l.ops)), nil
}

func (l *videoLayer) Close() error { return l.file.Close() }

func decodeStill(path string, ops []transform.Op) (layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return staticLayer{buf: gg.ImageBufFromImage(applySpatial(toRGBA(img), ops))}, nil
}

// spatialAfterScale drops the leading scale op, which ffmpeg already applied
// while decoding.
func spatialAfterScale(ops []transform.Op) []transform.Op {
	out := make([]transform.Op, 0, len(ops))
	for _, op := range ops {
		if _, ok := op.(transform.ScaleOp); ok {
			continue
		}
		out = append(out, op)
	}
	return out
}

// decodeVideoArgs builds the ffmpeg invocation that writes the retimed,
// scaled frames of a video overlay as raw RGBA.
func decodeVideoArgs(source, output string, chain transform.Chain, fps float64) []string {
	var filters []graph.Filter
	for _, op := range chain.Ops {
		switch op := op.(type) {
		case transform.TrimOp:
			filters = append(filters,
				graph.F("trim", "start", graph.Num(op.Start), "end", graph.Num(op.End)),
				graph.F("setpts", "expr", "PTS-STARTPTS"),
			)
		case transform.SpeedOp:
			filters = append(filters, graph.F("setpts", "expr", "PTS/"+graph.Num(op.Factor)))
		case transform.LimitOp:
			filters = append(filters,
				graph.F("trim", "duration", graph.Num(op.Duration)),
				graph.F("fps", "fps", graph.Num(fps)),
			)
		case transform.ScaleOp:
			filters = append(filters, graph.F("scale", "w", graph.Int(op.Width), "h", graph.Int(op.Height)))
		}
	}
	filters = append(filters, graph.F("format", "pix_fmts", "rgba"))

	chainText := ""
	for i, f := range filters {
		if i > 0 {
			chainText += ","
		}
		chainText += f.String()
	}
	return []string{
		"-hide_banner", "-nostdin", "-y", "-loglevel", "error",
		"-i", source,
		"-vf", chainText,
		"-an", "-f", "rawvideo", "-pix_fmt", "rgba",
		"-progress", "pipe:1", "-nostats",
		output,
	}
}

func openVideoLayer(path string, layout transform.Layout, ops []transform.Op) (layer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	frameSize := int64(layout.Working.Width * layout.Working.Height * 4)
	return &videoLayer{
		file:   f,
		width:  layout.Working.Width,
		height: layout.Working.Height,
		frames: info.Size() / frameSize,
		ops:    spatialAfterScale(ops),
	}, nil
}

// rawDecodeBytes estimates the disk space the raw RGBA decodes of all video
// layers take in the workspace.
func rawDecodeBytes(p *plan.Plan) int64 {
	var total int64
	for _, overlay := range p.Overlays {
		el, ok := overlay.Element.(plan.VideoElement)
		if !ok {
			continue
		}
		frameSize := int64(el.Layout.Working.Width) * int64(el.Layout.Working.Height) * 4
		total += frameSize * el.Trim.Window.Duration
	}
	return total
}

// loadLayers decodes every overlay source. Videos are decoded by ffmpeg in
// parallel; stills and text surfaces are decoded in-process.
func (b *Backend) loadLayers(ctx context.Context, p *plan.Plan) (map[string]layer, error) {
	layers := make(map[string]layer, len(p.Overlays))
	results := make([]layer, len(p.Overlays))

	g, gctx := newGroup(ctx, b.parallelism)
	for i, overlay := range p.Overlays {
		g.Go(func() error {
			l, err := b.loadLayer(gctx, p, overlay)
			if err != nil {
				return fmt.Errorf("overlay %s: %w", overlay.Label, err)
			}
			results[i] = l
			return nil
		})
	}
	err := g.Wait()
	for i, l := range results {
		if l != nil {
			layers[p.Overlays[i].Label] = l
		}
	}
	if err != nil {
		closeLayers(layers)
		return nil, err
	}
	return layers, nil
}

func (b *Backend) loadLayer(ctx context.Context, p *plan.Plan, overlay plan.Overlay) (layer, error) {
	switch el := overlay.Element.(type) {
	case plan.TextElement:
		path, err := b.ws.TextSurfacePath(overlay.Label)
		if err != nil {
			return nil, err
		}
		return decodeStill(path, overlay.Chain.Ops)
	case plan.ImageElement:
		path, err := b.ws.SourcePath(el.Clip.SourceRef)
		if err != nil {
			return nil, err
		}
		return decodeStill(path, overlay.Chain.Ops)
	case plan.VideoElement:
		path, err := b.ws.SourcePath(el.Clip.SourceRef)
		if err != nil {
			return nil, err
		}
		raw := b.ws.OutputPath(overlay.Label + ".rgba")
		if err := b.runner.Run(ctx, decodeVideoArgs(path, raw, overlay.Chain, p.FPS), 0, nil); err != nil {
			return nil, err
		}
		return openVideoLayer(raw, el.Layout, overlay.Chain.Ops)
	default:
		return nil, fmt.Errorf("unsupported element %T", el)
	}
}

func closeLayers(layers map[string]layer) {
	for _, l := range layers {
		_ = l.Close()
	}
}
