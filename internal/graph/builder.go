package graph

import (
	"fmt"
	"strings"
)

// Media is the stream type carried by a pad.
type Media int

const (
	Video Media = iota
	Audio
)

func (m Media) String() string {
	if m == Audio {
		return "audio"
	}
	return "video"
}

// NodeKind classifies nodes in the DAG.
type NodeKind int

const (
	NodeSource NodeKind = iota
	NodeFilter
	NodeOverlay
	NodeMix
	NodeSplit
)

func (k NodeKind) String() string {
	switch k {
	case NodeSource:
		return "source"
	case NodeFilter:
		return "filter"
	case NodeOverlay:
		return "overlay"
	case NodeMix:
		return "mix"
	case NodeSplit:
		return "split"
	default:
		return "unknown"
	}
}

// Pad is a stream produced by an input or a node.
type Pad struct {
	id    int
	media Media
	owner *Builder
}

// Media returns the stream type of the pad.
func (p Pad) Media() Media { return p.media }

type padInfo struct {
	label  string
	media  Media
	input  bool // an input stream reference such as 0:v
	output bool
	uses   int
}

// Node is one filter chain of the graph.
type Node struct {
	Kind    NodeKind
	Filters []Filter
	inputs  []int
	outputs []int
}

// Builder accumulates nodes. It is not safe for concurrent use.
type Builder struct {
	pads   []padInfo
	nodes  []*Node
	labels map[string]struct{}
	inputs map[string]int
	err    error
}

// NewBuilder returns an empty graph.
func NewBuilder() *Builder {
	return &Builder{labels: make(map[string]struct{}), inputs: make(map[string]int)}
}

// Input references stream media of input file index.
func (b *Builder) Input(index int, media Media) Pad {
	spec := "v"
	if media == Audio {
		spec = "a"
	}
	label := fmt.Sprintf("%d:%s", index, spec)
	if id, ok := b.inputs[label]; ok {
		return Pad{id: id, media: media, owner: b}
	}
	p := b.addPad(label, media, true)
	b.inputs[label] = p.id
	return p
}

// Source adds a generator node with no inputs (color, anullsrc, ...).
func (b *Builder) Source(hint string, media Media, filters ...Filter) Pad {
	return b.add(NodeSource, hint, media, nil, filters)
}

// Filter appends a linear chain of filters to in.
func (b *Builder) Filter(hint string, in Pad, filters ...Filter) Pad {
	if len(filters) == 0 {
		return in
	}
	return b.add(NodeFilter, hint, in.media, []Pad{in}, filters)
}

// Overlay composites top over base with the given overlay filter.
func (b *Builder) Overlay(hint string, base, top Pad, overlay Filter) Pad {
	if base.media != Video || top.media != Video {
		b.fail(fmt.Errorf("overlay %q needs video inputs", hint))
	}
	return b.add(NodeOverlay, hint, Video, []Pad{base, top}, []Filter{overlay})
}

// Mix combines ins with a single multi-input filter such as amix.
func (b *Builder) Mix(hint string, ins []Pad, mix Filter) Pad {
	if len(ins) == 0 {
		b.fail(fmt.Errorf("mix %q has no inputs", hint))
		return Pad{}
	}
	return b.add(NodeMix, hint, ins[0].media, ins, []Filter{mix})
}

// Output marks p as a graph output and returns its label for -map.
func (b *Builder) Output(p Pad) string {
	info := b.info(p)
	if info == nil {
		return ""
	}
	info.output = true
	return "[" + info.label + "]"
}

// Label returns the label assigned to p.
func (b *Builder) Label(p Pad) string {
	if info := b.info(p); info != nil {
		return info.label
	}
	return ""
}

// Err returns the first construction error.
func (b *Builder) Err() error { return b.err }

func (b *Builder) add(kind NodeKind, hint string, media Media, ins []Pad, filters []Filter) Pad {
	node := &Node{Kind: kind, Filters: append([]Filter(nil), filters...)}
	for _, in := range ins {
		info := b.info(in)
		if info == nil {
			return Pad{}
		}
		info.uses++
		node.inputs = append(node.inputs, in.id)
	}
	out := b.addPad(unique(b.labels, hint), media, false)
	node.outputs = []int{out.id}
	b.nodes = append(b.nodes, node)
	return out
}

func (b *Builder) addPad(label string, media Media, input bool) Pad {
	b.pads = append(b.pads, padInfo{label: label, media: media, input: input})
	return Pad{id: len(b.pads) - 1, media: media, owner: b}
}

func (b *Builder) info(p Pad) *padInfo {
	if p.owner != b || p.id < 0 || p.id >= len(b.pads) {
		b.fail(fmt.Errorf("pad does not belong to this graph"))
		return nil
	}
	return &b.pads[p.id]
}

func unique(taken map[string]struct{}, hint string) string {
	hint = strings.Trim(hint, "[] ")
	if hint == "" {
		hint = "n"
	}
	label := hint
	for i := 1; ; i++ {
		if _, used := taken[label]; !used {
			taken[label] = struct{}{}
			return label
		}
		label = fmt.Sprintf("%s_%d", hint, i)
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
