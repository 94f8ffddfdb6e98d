package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"montage/internal/compiler"
	"montage/internal/config"
	"montage/internal/media/ffprobe"
	"montage/internal/plan"
	"montage/internal/timeline"
)

// dryStaging resolves sources in place instead of copying them into a
// workspace, so the printed program points at the user's files.
type dryStaging struct {
	root   string
	silent map[string]bool
}

func (s dryStaging) SourcePath(ref string) (string, error) {
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	return filepath.Join(s.root, filepath.FromSlash(ref)), nil
}

func (s dryStaging) TextSurfacePath(label string) (string, error) {
	return label + ".png", nil
}

func (s dryStaging) HasAudio(ref string) bool { return !s.silent[ref] }

type planOutput struct {
	Name     string        `json:"name"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	FPS      float64       `json:"fps"`
	Frames   int64         `json:"frames"`
	Duration float64       `json:"duration_seconds"`
	Overlays []overlayView `json:"overlays"`
	Dropped  []string      `json:"dropped,omitempty"`
	Filter   string        `json:"filter_complex"`
	Args     []string      `json:"args"`
}

type overlayView struct {
	Label      string  `json:"label"`
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	EffectiveZ int64   `json:"effective_z"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags exportFlags
	var asJSON bool
	var probe bool

	cmd := &cobra.Command{
		Use:   "plan <project>",
		Short: "Print the paint order and ffmpeg program an export would run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			project, err := timeline.LoadFile(args[0])
			if err != nil {
				return err
			}
			exportCfg := flags.apply(cfg.ExportConfig())

			staging := dryStaging{root: sourceRoot(cfg, args[0]), silent: map[string]bool{}}
			snap := project.Freeze()
			if probe {
				snap = probeSources(cmd, cfg, snap, staging)
			}
			p, err := plan.Build(snap, exportCfg)
			if err != nil {
				return err
			}
			prog, err := compiler.Compile(p, staging, compiler.Options{ExtraInputArgs: cfg.FFmpeg.ExtraInputArgs})
			if err != nil {
				return err
			}

			output, err := outputPath(cfg, flags.output, p.Name, p.Config)
			if err != nil {
				return err
			}
			view := buildPlanOutput(p, prog, append([]string{cfg.FFmpeg.FFmpegBinary}, prog.Args(output)...))
			if asJSON {
				return writeJSON(cmd, view)
			}
			printPlan(cmd, view)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file shown in the program")
	cmd.Flags().StringVar(&flags.format, "format", "", "Container: mp4, webm, mov, avi, gif")
	cmd.Flags().StringVar(&flags.resolution, "resolution", "", "Preset (720p, 1080p, ...) or WIDTHxHEIGHT")
	cmd.Flags().StringVar(&flags.quality, "quality", "", "Quality preset: low, medium, high, ultra")
	cmd.Flags().StringVar(&flags.speed, "speed", "", "Encoder speed: fastest, fast, balanced, slow, slowest")
	cmd.Flags().Float64Var(&flags.fps, "fps", 0, "Output frame rate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&probe, "probe", false, "Inspect sources with ffprobe for durations, sizes, and audio")
	return cmd
}

// probeSources fills missing source facts. Unreadable sources are reported
// and left as declared in the project.
func probeSources(cmd *cobra.Command, cfg *config.Config, snap *timeline.Snapshot, staging dryStaging) *timeline.Snapshot {
	info := make(map[string]timeline.SourceInfo)
	for _, ref := range snap.SourceRefs() {
		path, _ := staging.SourcePath(ref)
		result, err := ffprobe.Inspect(cmd.Context(), cfg.FFmpeg.FFprobeBinary, path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "probe %s: %v\n", ref, err)
			continue
		}
		if !result.HasAudio() {
			staging.silent[ref] = true
		}
		info[ref] = result.Info()
	}
	return snap.WithSourceInfo(info)
}

func buildPlanOutput(p *plan.Plan, prog *compiler.Program, args []string) planOutput {
	view := planOutput{
		Name:     p.Name,
		Width:    p.Width,
		Height:   p.Height,
		FPS:      p.FPS,
		Frames:   p.Frames,
		Duration: p.Duration(),
		Dropped:  p.Dropped,
		Filter:   prog.FilterGraph,
		Args:     args,
	}
	for _, o := range p.Overlays {
		x, y := o.Placement()
		view.Overlays = append(view.Overlays, overlayView{
			Label:      o.Label,
			ID:         o.Element.ID(),
			Kind:       string(o.Element.Kind()),
			EffectiveZ: o.EffectiveZ,
			Start:      o.Active.Start,
			End:        o.Active.End,
			X:          x,
			Y:          y,
		})
	}
	return view
}

func printPlan(cmd *cobra.Command, view planOutput) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %dx%d @ %s fps, %d frames (%s)\n",
		view.Name, view.Width, view.Height, strconv.FormatFloat(view.FPS, 'f', -1, 64), view.Frames, formatSeconds(view.Duration))

	rows := make([][]string, 0, len(view.Overlays))
	for i, o := range view.Overlays {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			o.Label,
			o.ID,
			o.Kind,
			strconv.FormatInt(o.EffectiveZ, 10),
			fmt.Sprintf("%.3f-%.3f", o.Start, o.End),
			fmt.Sprintf("%.0f,%.0f", o.X, o.Y),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Label", "Element", "Kind", "Z", "Active (s)", "Position"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
		))
	} else {
		fmt.Fprintln(out, "No visual layers; output is the background canvas")
	}
	if len(view.Dropped) > 0 {
		fmt.Fprintf(out, "Excluded (empty span): %s\n", strings.Join(view.Dropped, ", "))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, shellJoin(view.Args))
}

func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`;&|<>()[]{}*?!#~,=") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
