package textrender

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/text/cases"

	"montage/internal/services"
	"montage/internal/timeline"
)

// DefaultFamily is used when an overlay names no font or an unsupported one.
const DefaultFamily = "Inter"

// FoldFamily normalizes a family name for case-insensitive matching.
func FoldFamily(family string) string {
	// Casers carry state, so each call gets its own.
	return cases.Fold().String(strings.Join(strings.Fields(family), " "))
}

// FontBook holds the font sources loaded for one export. It is safe for
// concurrent use once loading is complete.
type FontBook struct {
	mu            sync.RWMutex
	defaultFamily string
	sources       map[string]*text.FontSource
	names         map[string]string
}

// NewFontBook creates an empty book whose fallback family is defaultFamily.
func NewFontBook(defaultFamily string) *FontBook {
	if strings.TrimSpace(defaultFamily) == "" {
		defaultFamily = DefaultFamily
	}
	return &FontBook{
		defaultFamily: strings.TrimSpace(defaultFamily),
		sources:       make(map[string]*text.FontSource),
		names:         make(map[string]string),
	}
}

// DefaultFamily returns the fallback family name.
func (b *FontBook) DefaultFamily() string { return b.defaultFamily }

// Load parses font bytes and registers them under family.
func (b *FontBook) Load(family string, data []byte) error {
	source, err := text.NewFontSource(data)
	if err != nil {
		return &services.MissingFontAssetError{Family: family, Err: fmt.Errorf("parse font: %w", err)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := FoldFamily(family)
	b.sources[key] = source
	b.names[key] = strings.TrimSpace(family)
	return nil
}

// Loaded reports whether family has been registered.
func (b *FontBook) Loaded(family string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sources[FoldFamily(family)]
	return ok
}

// Resolve returns the family that will actually draw requested: the
// requested family when loaded, otherwise the default.
func (b *FontBook) Resolve(requested string) string {
	if strings.TrimSpace(requested) != "" && b.Loaded(requested) {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.names[FoldFamily(requested)]
	}
	return b.defaultFamily
}

// Face returns a face of the resolved family at size. Drawing with a book
// that lacks the default family is an error.
func (b *FontBook) Face(requested string, size float64) (text.Face, error) {
	family := b.Resolve(requested)
	b.mu.RLock()
	source, ok := b.sources[FoldFamily(family)]
	b.mu.RUnlock()
	if !ok {
		return nil, &services.MissingFontAssetError{Family: family}
	}
	return source.Face(size), nil
}

// Families lists the distinct font families requested by overlays that
// will be drawn, plus the default family, in a stable order. Matching is
// case-folded; the first spelling seen is kept.
func Families(texts []timeline.TextOverlay, defaultFamily string) []string {
	if strings.TrimSpace(defaultFamily) == "" {
		defaultFamily = DefaultFamily
	}
	seen := map[string]string{FoldFamily(defaultFamily): strings.TrimSpace(defaultFamily)}
	for _, overlay := range texts {
		if overlay.Position.Degenerate() {
			continue
		}
		family := strings.TrimSpace(overlay.Style.Font)
		if family == "" {
			continue
		}
		key := FoldFamily(family)
		if _, ok := seen[key]; !ok {
			seen[key] = family
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, seen[key])
	}
	return out
}
