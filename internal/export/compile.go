package export

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"montage/internal/assets"
	"montage/internal/backend"
	"montage/internal/logging"
	"montage/internal/media/ffprobe"
	"montage/internal/plan"
	"montage/internal/services"
	"montage/internal/textrender"
	"montage/internal/timeline"
)

var probe = ffprobe.Inspect

// SetProbeForTests swaps the ffprobe implementation and returns a restore
// function.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	prev := probe
	probe = fn
	return func() { probe = prev }
}

// compile stages every source, probes them, resolves the plan, stages fonts
// and rasterizes text. It returns only after all staging has finished.
func (j *Job) compile(ctx context.Context, ws *backend.Workspace, cfg timeline.ExportConfig) (*plan.Plan, error) {
	snap := j.req.Snapshot
	info, err := j.stageSources(ctx, ws, snap)
	if err != nil {
		return nil, err
	}
	if len(info) > 0 {
		snap = snap.WithSourceInfo(info)
	}

	p, err := plan.Build(snap, cfg)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, j.o.logger)
	if len(p.Dropped) > 0 {
		logger.Debug("degenerate elements excluded",
			logging.String(logging.FieldEventType, "elements_dropped"),
			logging.String("ids", strings.Join(p.Dropped, ",")),
		)
	}

	texts := textOverlays(p)
	if len(texts) > 0 {
		book, err := j.stageFonts(ctx, ws, texts)
		if err != nil {
			return nil, err
		}
		if err := renderText(ctx, ws, p, book); err != nil {
			return nil, err
		}
	}

	logger.Info("export compiled",
		logging.String(logging.FieldEventType, "compile_complete"),
		logging.Int("overlays", len(p.Overlays)),
		logging.Int("audio_tracks", len(p.Audio)),
		logging.Int64("frames", p.Frames),
		logging.Float64("fps", p.FPS),
	)
	return p, nil
}

// stageSources copies each distinct source referenced by a live clip into
// the workspace and probes it.
func (j *Job) stageSources(ctx context.Context, ws *backend.Workspace, snap *timeline.Snapshot) (map[string]timeline.SourceInfo, error) {
	owners := make(map[string]string)
	var refs []string
	for _, clip := range snap.Clips() {
		if clip.Position.Degenerate() {
			continue
		}
		if _, ok := owners[clip.SourceRef]; ok {
			continue
		}
		owners[clip.SourceRef] = clip.ID
		refs = append(refs, clip.SourceRef)
	}
	sort.Strings(refs)

	var (
		mu   sync.Mutex
		info = make(map[string]timeline.SourceInfo, len(refs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.o.opts.Parallelism)
	for _, ref := range refs {
		g.Go(func() error {
			if err := stageSource(gctx, ws, j.o.opts.Sources, ref); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil && ctx.Err() != nil {
					return services.Wrap(services.ErrCancelled, string(StateCompiling), "stage source", ref, ctxErr)
				}
				return &services.MissingSourceAssetError{ClipID: owners[ref], SourceRef: ref, Err: err}
			}
			probed, ok := j.probeSource(gctx, ws, ref)
			if !ok {
				return nil
			}
			mu.Lock()
			info[ref] = probed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return info, nil
}

func stageSource(ctx context.Context, ws *backend.Workspace, store assets.SourceStore, ref string) error {
	if locator, ok := store.(assets.Locator); ok {
		if path, found := locator.Locate(ref); found {
			_, err := ws.StageSourceFile(ref, path)
			return err
		}
	}
	data, err := store.Read(ctx, ref)
	if err != nil {
		return err
	}
	_, err = ws.StageSource(ref, data)
	return err
}

// probeSource inspects a staged source. A failed probe is logged and the
// source is treated as carrying audio, leaving ffmpeg to report the problem.
func (j *Job) probeSource(ctx context.Context, ws *backend.Workspace, ref string) (timeline.SourceInfo, bool) {
	if strings.TrimSpace(j.o.opts.FFprobeBinary) == "" {
		return timeline.SourceInfo{}, false
	}
	path, err := ws.SourcePath(ref)
	if err != nil {
		return timeline.SourceInfo{}, false
	}
	result, err := probe(ctx, j.o.opts.FFprobeBinary, path)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, j.o.logger), "source probe failed", "probe_failed",
			logging.String("source_ref", ref),
			logging.String(logging.FieldErrorHint, "check ffmpeg.ffprobe_binary"),
			logging.String(logging.FieldImpact, "source duration and bounds come from the project"),
			logging.Error(err),
		)
		return timeline.SourceInfo{}, false
	}
	if !result.HasAudio() {
		ws.MarkSilent(ref)
	}
	return result.Info(), true
}

func textOverlays(p *plan.Plan) []timeline.TextOverlay {
	var texts []timeline.TextOverlay
	for _, overlay := range p.Overlays {
		if el, ok := overlay.Element.(plan.TextElement); ok {
			texts = append(texts, el.Text)
		}
	}
	return texts
}

// stageFonts loads every requested family. A missing non-default family
// falls back to the default; a missing default fails the job.
func (j *Job) stageFonts(ctx context.Context, ws *backend.Workspace, texts []timeline.TextOverlay) (*textrender.FontBook, error) {
	defaultFamily := strings.TrimSpace(j.o.opts.DefaultFont)
	if defaultFamily == "" {
		defaultFamily = textrender.DefaultFamily
	}
	book := textrender.NewFontBook(defaultFamily)
	if j.o.opts.Fonts == nil {
		return nil, &services.MissingFontAssetError{Family: defaultFamily, Err: errors.New("no font store configured")}
	}
	logger := logging.WithContext(ctx, j.o.logger)
	for _, family := range textrender.Families(texts, defaultFamily) {
		isDefault := textrender.FoldFamily(family) == textrender.FoldFamily(defaultFamily)
		if err := loadFont(ctx, ws, book, j.o.opts.Fonts, family); err != nil {
			if ctx.Err() != nil {
				return nil, services.Wrap(services.ErrCancelled, string(StateCompiling), "stage font", family, ctx.Err())
			}
			if isDefault {
				var fontErr *services.MissingFontAssetError
				if errors.As(err, &fontErr) {
					return nil, err
				}
				return nil, &services.MissingFontAssetError{Family: family, Err: err}
			}
			logging.WarnWithContext(logger, "font unavailable, using default", "font_fallback",
				logging.String("family", family),
				logging.String("fallback", defaultFamily),
				logging.String(logging.FieldErrorHint, "map the family under [fonts.families]"),
				logging.String(logging.FieldImpact, "text drawn with "+defaultFamily),
				logging.Error(err),
			)
		}
	}
	return book, nil
}

func loadFont(ctx context.Context, ws *backend.Workspace, book *textrender.FontBook, store assets.FontStore, family string) error {
	data, err := store.Read(ctx, family)
	if err != nil {
		return err
	}
	if err := book.Load(family, data); err != nil {
		return err
	}
	_, err = ws.StageFont(family, data)
	return err
}

// renderText rasterizes each text overlay at its working size and stages
// the PNG under the overlay label.
func renderText(ctx context.Context, ws *backend.Workspace, p *plan.Plan, book *textrender.FontBook) error {
	for _, overlay := range p.Overlays {
		el, ok := overlay.Element.(plan.TextElement)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, string(StateCompiling), "render text", overlay.Label, err)
		}
		surface, err := textrender.Render(el.Text, el.Layout.Working, book)
		if err != nil {
			return err
		}
		if _, err := ws.StageTextSurface(overlay.Label, surface.PNG); err != nil {
			return services.Wrap(services.ErrTransient, string(StateCompiling), "stage text", overlay.Label, err)
		}
	}
	return nil
}
