package audiomix_test

import (
	"strings"
	"testing"

	"montage/internal/audiomix"
	"montage/internal/graph"
	"montage/internal/plan"
	"montage/internal/timeline"
)

func TestTempoChainStaysInRange(t *testing.T) {
	cases := []struct {
		speed float64
		want  []float64
	}{
		{1, nil},
		{1.5, []float64{1.5}},
		{4, []float64{2, 2}},
		{0.25, []float64{0.5, 0.5}},
		{3, []float64{2, 1.5}},
	}
	for _, tc := range cases {
		got := audiomix.TempoChain(tc.speed)
		if len(got) != len(tc.want) {
			t.Fatalf("speed %v: got %v, want %v", tc.speed, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("speed %v: got %v, want %v", tc.speed, got, tc.want)
			}
		}
	}
}

func TestSilentClipStillMixed(t *testing.T) {
	silent := 0.0
	project := &timeline.Project{
		Clips: []timeline.Clip{
			{ID: "music", Kind: timeline.KindAudio, SourceRef: "m.wav", Position: timeline.Span{Start: 0, End: 4}, SourceDuration: 10},
			{ID: "muted", Kind: timeline.KindAudio, SourceRef: "v.wav", Position: timeline.Span{Start: 1.5, End: 3}, SourceDuration: 10, Volume: &silent},
		},
	}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "720p"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	contributions := audiomix.Contributions(p)
	if len(contributions) != 2 {
		t.Fatalf("contributions = %d, want 2", len(contributions))
	}
	muted := contributions[1]
	if muted.Gain != 0 || muted.DelayMS != 1500 {
		t.Fatalf("muted contribution = %+v", muted)
	}

	b := graph.NewBuilder()
	sources := []graph.Pad{b.Input(0, graph.Audio), b.Input(1, graph.Audio)}
	b.Output(audiomix.Mix(b, sources, contributions, p.Duration()))
	got, err := b.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	for _, want := range []string{
		"[1:a]atrim=start=0:end=1.5,asetpts=expr=PTS-STARTPTS",
		"volume=volume=0,adelay=delays=1500:all=1[a1]",
		"[a0][a1]amix=inputs=2:duration=longest:dropout_transition=0:normalize=0[amix]",
		"apad=whole_dur=4,atrim=duration=4[aout]",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("graph missing %q:\n%s", want, got)
		}
	}
}

func TestEmptyMixIsSilence(t *testing.T) {
	b := graph.NewBuilder()
	b.Output(audiomix.Mix(b, nil, nil, 2))
	got, err := b.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "anullsrc=r=48000:cl=stereo,atrim=duration=2[aout]" {
		t.Fatalf("got %q", got)
	}
}

func TestContributionAppliesSpeed(t *testing.T) {
	project := &timeline.Project{
		Clips: []timeline.Clip{{
			ID: "fast", Kind: timeline.KindVideo, SourceRef: "a.mp4",
			Trim:          timeline.Span{Start: 2, End: 10},
			Position:      timeline.Span{Start: 0, End: 2},
			PlaybackSpeed: 4,
		}},
	}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := audiomix.Contributions(p)[0]
	if c.SourceStart != 2 || c.SourceEnd != 10 || c.Duration != 2 {
		t.Fatalf("contribution = %+v", c)
	}
	if len(c.Tempo) != 2 {
		t.Fatalf("tempo = %v", c.Tempo)
	}
}

func TestContributionDelayUsesTimelineMilliseconds(t *testing.T) {
	project := &timeline.Project{
		Clips: []timeline.Clip{
			{ID: "voice", Kind: timeline.KindAudio, SourceRef: "v.wav", Position: timeline.Span{Start: 1.01, End: 3}, SourceDuration: 10},
		},
	}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "720p", FPS: 30})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := audiomix.Contributions(p)[0].DelayMS; got != 1010 {
		t.Fatalf("delay = %dms, want 1010ms", got)
	}
}

func TestContributionBeforeZeroTrimsLeadingSource(t *testing.T) {
	project := &timeline.Project{
		Clips: []timeline.Clip{
			{ID: "early", Kind: timeline.KindAudio, SourceRef: "e.wav", Position: timeline.Span{Start: -1, End: 2}, SourceDuration: 10},
			{ID: "gone", Kind: timeline.KindAudio, SourceRef: "g.wav", Position: timeline.Span{Start: -3, End: -1}, SourceDuration: 10},
		},
	}
	p, err := plan.Build(project.Freeze(), timeline.ExportConfig{Resolution: "720p", FPS: 30})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	contributions := audiomix.Contributions(p)
	if len(contributions) != 1 {
		t.Fatalf("contributions = %+v, want only the clip that reaches t=0", contributions)
	}
	c := contributions[0]
	if c.ID != "early" || c.DelayMS != 0 || c.SourceStart != 1 || c.SourceEnd != 3 || c.Duration != 2 {
		t.Fatalf("contribution = %+v", c)
	}
	for _, f := range c.Filters() {
		if f.Name == "adelay" {
			t.Fatalf("unexpected adelay in %v", c.Filters())
		}
	}
}
