package graph

import (
	"strings"
	"testing"
)

func TestFilterQuotesSeparators(t *testing.T) {
	f := F("overlay", "x", "10", "y", "20", "enable", "between(t,1,2)")
	want := "overlay=x=10:y=20:enable='between(t,1,2)'"
	if got := f.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := F("null").String(); got != "null" {
		t.Fatalf("bare filter = %q", got)
	}
}

func TestBuilderSerializesInCreationOrder(t *testing.T) {
	b := NewBuilder()
	base := b.Source("base", Video, F("color", "c", "black", "s", "64x64", "r", "30", "d", "2"))
	clip := b.Filter("v0", b.Input(0, Video), F("scale", "w", "32", "h", "32"))
	out := b.Overlay("o0", base, clip, F("overlay", "x", "0", "y", "0"))
	label := b.Output(out)

	got, err := b.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	want := "color=c=black:s=64x64:r=30:d=2[base];[0:v]scale=w=32:h=32[v0];[base][v0]overlay=x=0:y=0[o0]"
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
	if label != "[o0]" {
		t.Fatalf("output label = %q", label)
	}
}

func TestBuilderLabelsAreUnique(t *testing.T) {
	b := NewBuilder()
	a := b.Filter("x", b.Input(0, Video), F("null"))
	c := b.Filter("x", b.Input(1, Video), F("null"))
	if b.Label(a) == b.Label(c) {
		t.Fatalf("duplicate label %q", b.Label(a))
	}
}

func TestBuilderSplitsSharedPads(t *testing.T) {
	b := NewBuilder()
	in := b.Input(0, Audio)
	first := b.Filter("a0", in, F("volume", "volume", "1"))
	second := b.Filter("a1", b.Input(0, Audio), F("volume", "volume", "0"))
	b.Output(b.Mix("mix", []Pad{first, second}, F("amix", "inputs", "2")))

	got, err := b.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if !strings.HasPrefix(got, "[0:a]asplit=2[0_a_s0][0_a_s1];") {
		t.Fatalf("missing asplit prefix: %q", got)
	}
	if !strings.Contains(got, "[0_a_s0]volume=volume=1[a0]") || !strings.Contains(got, "[0_a_s1]volume=volume=0[a1]") {
		t.Fatalf("branches not wired: %q", got)
	}

	again, err := b.String()
	if err != nil || again != got {
		t.Fatalf("serialization not repeatable: %q vs %q (%v)", again, got, err)
	}
}

func TestBuilderRejectsDanglingPads(t *testing.T) {
	b := NewBuilder()
	b.Filter("lost", b.Input(0, Video), F("null"))
	if _, err := b.String(); err == nil {
		t.Fatal("expected dangling pad error")
	}
}

func TestBuilderRejectsForeignPads(t *testing.T) {
	other := NewBuilder()
	foreign := other.Input(0, Video)
	b := NewBuilder()
	b.Output(b.Filter("v", foreign, F("null")))
	if b.Err() == nil {
		t.Fatal("expected foreign pad error")
	}
}
