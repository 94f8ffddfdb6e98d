package compiler

import (
	"fmt"
	"math"

	"montage/internal/graph"
	"montage/internal/transform"
)

// chainFilters lowers a transform chain to ffmpeg video filters. The stream
// is normalized to fps right after its time ops so every overlay shares the
// output frame grid.
func chainFilters(chain transform.Chain, fps float64) ([]graph.Filter, error) {
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
		case transform.HoldOp:
			filters = append(filters,
				graph.F("trim", "duration", graph.Num(op.Duration)),
				graph.F("setpts", "expr", "PTS-STARTPTS"),
				graph.F("fps", "fps", graph.Num(fps)),
			)
		case transform.ScaleOp:
			filters = append(filters,
				graph.F("scale", "w", graph.Int(op.Width), "h", graph.Int(op.Height)),
				graph.F("format", "pix_fmts", "rgba"),
			)
		case transform.BlurOp:
			filters = append(filters, graph.F("gblur", "sigma", graph.Num(op.Sigma)))
		case transform.CropOp:
			filters = append(filters, graph.F("crop",
				"w", graph.Int(op.Width), "h", graph.Int(op.Height),
				"x", graph.Int(op.X), "y", graph.Int(op.Y),
			))
		case transform.RotateOp:
			filters = append(filters, graph.F("rotate",
				"a", graph.Num(op.Degrees*math.Pi/180),
				"ow", graph.Int(op.Width), "oh", graph.Int(op.Height),
				"c", "none",
			))
		case transform.AlphaOp:
			filters = append(filters, graph.F("colorchannelmixer", "aa", graph.Num(op.Alpha)))
		case transform.AnimateScaleOp:
			factor := transform.ScaleExpr(op.Kind, progressExpr(op.Duration))
			filters = append(filters,
				graph.F("scale", "w", "max(1,iw*"+factor+")", "h", "max(1,ih*"+factor+")", "eval", "frame"),
				graph.F("pad",
					"w", graph.Int(op.Width), "h", graph.Int(op.Height),
					"x", "(ow-iw)/2", "y", "(oh-ih)/2",
					"color", "black@0", "eval", "frame",
				),
			)
		case transform.FadeOp:
			if op.In > 0 {
				filters = append(filters, graph.F("fade", "t", "in", "st", "0", "d", graph.Num(op.In), "alpha", "1"))
			}
			if d := op.End - op.OutStart; d > 0 {
				filters = append(filters, graph.F("fade", "t", "out", "st", graph.Num(op.OutStart), "d", graph.Num(d), "alpha", "1"))
			}
		case transform.ShiftOp:
			filters = append(filters, graph.F("setpts", "expr", "PTS-STARTPTS+"+graph.Num(op.Offset)+"/TB"))
		default:
			return nil, fmt.Errorf("unsupported op %s", op.Name())
		}
	}
	return filters, nil
}

// progressExpr is the animation progress over local stream time t.
func progressExpr(duration float64) string {
	if duration <= 0 {
		return "1"
	}
	return fmt.Sprintf("clip(t/%s,0,1)", graph.Num(duration))
}
