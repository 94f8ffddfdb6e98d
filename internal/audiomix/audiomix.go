// Package audiomix turns the audible elements of a plan into per-source
// contributions and wires them into an amix node.
//
// Every contribution is trimmed, retimed, delayed to its timeline start,
// and scaled by its volume. Silent (volume 0) clips still take part in the
// mix as zero-gain inputs. The mix never normalizes, so adding a clip does
// not change the loudness of the others.
package audiomix

import (
	"fmt"
	"math"

	"montage/internal/graph"
	"montage/internal/plan"
)

const (
	SampleRate    = 48000
	ChannelLayout = "stereo"

	minTempo = 0.5
	maxTempo = 2.0
)

// Contribution is one element's share of the output audio.
type Contribution struct {
	ID        string
	SourceRef string
	// SourceStart/SourceEnd bound the consumed source range in seconds.
	SourceStart float64
	SourceEnd   float64
	Tempo       []float64
	// Duration is the on-timeline length after retiming.
	Duration float64
	DelayMS  int64
	Gain     float64
}

// Contributions returns one contribution per audible element, in plan order.
// The delay is the timeline start rounded to milliseconds. Elements starting
// before zero lose their leading audio; elements ending before zero are
// skipped.
func Contributions(p *plan.Plan) []Contribution {
	out := make([]Contribution, 0, len(p.Audio))
	for _, el := range p.Audio {
		trim := el.Trim
		start := trim.SourceStartSeconds()
		end := start + trim.SourceSeconds()
		duration := trim.TimelineSeconds()
		delay := math.Round(el.Clip.Position.Start * 1000)
		if delay < 0 {
			// The part before t=0 is cut from the source, not delayed.
			lead := -el.Clip.Position.Start
			duration -= lead
			start = math.Min(end, start+lead*trim.Speed)
			delay = 0
		}
		if duration <= 0 {
			continue
		}
		out = append(out, Contribution{
			ID:          el.ID(),
			SourceRef:   el.Clip.SourceRef,
			SourceStart: start,
			SourceEnd:   end,
			Tempo:       TempoChain(trim.Speed),
			Duration:    duration,
			DelayMS:     int64(delay),
			Gain:        el.Clip.VolumePercent() / 100,
		})
	}
	return out
}

// TempoChain splits a speed factor into atempo steps, each within the
// filter's supported [0.5, 2] range. Normal speed needs no steps.
func TempoChain(speed float64) []float64 {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) || speed == 1 {
		return nil
	}
	var steps []float64
	for speed > maxTempo {
		steps = append(steps, maxTempo)
		speed /= maxTempo
	}
	for speed < minTempo {
		steps = append(steps, minTempo)
		speed /= minTempo
	}
	if math.Abs(speed-1) > 1e-9 {
		steps = append(steps, speed)
	}
	return steps
}

// Filters returns the per-contribution chain:
// atrim → asetpts → atempo… → atrim(duration) → aformat → volume → adelay.
func (c Contribution) Filters() []graph.Filter {
	filters := []graph.Filter{
		graph.F("atrim", "start", graph.Num(c.SourceStart), "end", graph.Num(c.SourceEnd)),
		graph.F("asetpts", "expr", "PTS-STARTPTS"),
	}
	for _, step := range c.Tempo {
		filters = append(filters, graph.F("atempo", "tempo", graph.Num(step)))
	}
	filters = append(filters,
		graph.F("atrim", "duration", graph.Num(c.Duration)),
		graph.F("aformat", "sample_rates", graph.Int(SampleRate), "channel_layouts", ChannelLayout),
		graph.F("volume", "volume", graph.Num(c.Gain)),
	)
	if c.DelayMS > 0 {
		filters = append(filters, graph.F("adelay", "delays", graph.Num(float64(c.DelayMS)), "all", "1"))
	}
	return filters
}

// Mix adds the contribution chains and the final mix to b. sources[i] is
// the audio pad feeding contributions[i]. The result lasts exactly total
// seconds; an empty mix yields silence.
func Mix(b *graph.Builder, sources []graph.Pad, contributions []Contribution, total float64) graph.Pad {
	pad := graph.F("apad", "whole_dur", graph.Num(total))
	cut := graph.F("atrim", "duration", graph.Num(total))

	if len(contributions) == 0 {
		return b.Source("aout", graph.Audio,
			graph.F("anullsrc", "r", graph.Int(SampleRate), "cl", ChannelLayout),
			cut,
		)
	}

	chains := make([]graph.Pad, len(contributions))
	for i, c := range contributions {
		chains[i] = b.Filter(fmt.Sprintf("a%d", i), sources[i], c.Filters()...)
	}
	if len(chains) == 1 {
		return b.Filter("aout", chains[0], pad, cut)
	}
	mixed := b.Mix("amix", chains, graph.F("amix",
		"inputs", graph.Int(len(chains)),
		"duration", "longest",
		"dropout_transition", "0",
		"normalize", "0",
	))
	return b.Filter("aout", mixed, pad, cut)
}
