package graph

import (
	"fmt"
	"maps"
	"strings"
)

// String serializes the graph to a filter_complex value. Pads consumed more
// than once are fanned out through split/asplit. It fails if construction
// failed or a node output is neither consumed nor marked as an output.
func (b *Builder) String() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	for _, p := range b.pads {
		if !p.input && !p.output && p.uses == 0 {
			return "", fmt.Errorf("pad [%s] is never consumed", p.label)
		}
		if p.output && p.uses > 0 {
			return "", fmt.Errorf("pad [%s] is both an output and consumed", p.label)
		}
	}

	// Every consumer of a shared pad reads its own split branch.
	taken := maps.Clone(b.labels)
	branches := make(map[int][]string)
	var chains []string
	emitSplit := func(id int) {
		p := b.pads[id]
		if p.uses < 2 {
			return
		}
		name := "split"
		if p.media == Audio {
			name = "asplit"
		}
		outs := make([]string, p.uses)
		for i := range outs {
			outs[i] = unique(taken, fmt.Sprintf("%s_s%d", strings.ReplaceAll(p.label, ":", "_"), i))
		}
		branches[id] = outs
		chains = append(chains, fmt.Sprintf("[%s]%s=%d%s", p.label, name, p.uses, brackets(outs)))
	}
	next := make(map[int]int)
	ref := func(id int) string {
		if outs, ok := branches[id]; ok {
			i := next[id]
			next[id]++
			return "[" + outs[i] + "]"
		}
		return "[" + b.pads[id].label + "]"
	}

	for id, p := range b.pads {
		if p.input {
			emitSplit(id)
		}
	}
	for _, node := range b.nodes {
		var sb strings.Builder
		for _, in := range node.inputs {
			sb.WriteString(ref(in))
		}
		for i, f := range node.Filters {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(f.String())
		}
		labels := make([]string, len(node.outputs))
		for i, out := range node.outputs {
			labels[i] = b.pads[out].label
		}
		sb.WriteString(brackets(labels))
		chains = append(chains, sb.String())
		for _, out := range node.outputs {
			emitSplit(out)
		}
	}
	return strings.Join(chains, ";"), nil
}

func brackets(labels []string) string {
	var sb strings.Builder
	for _, l := range labels {
		sb.WriteString("[" + l + "]")
	}
	return sb.String()
}
