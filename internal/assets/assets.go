package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"montage/internal/services"
	"montage/internal/textrender"
)

// SourceStore returns the bytes of a media source.
type SourceStore interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// FontStore returns the bytes of a font family's file.
type FontStore interface {
	Read(ctx context.Context, family string) ([]byte, error)
}

// Locator is implemented by stores whose assets already live on disk.
// Staging copies the file instead of buffering it in memory.
type Locator interface {
	Locate(ref string) (string, bool)
}

// DirSourceStore reads sources relative to Root. Absolute refs are used
// as-is.
type DirSourceStore struct {
	Root string
}

func (s DirSourceStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.Locate(ref)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "assets", "read source", fmt.Sprintf("source %q not found", ref), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "assets", "read source", ref, err)
	}
	return data, nil
}

// Locate resolves ref to an existing regular file.
func (s DirSourceStore) Locate(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, filepath.FromSlash(ref))
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// DirFontStore reads font files from Dir. Families maps a family name to a
// file name; unmapped families are looked up as <Family>.ttf/.otf with
// case-folded matching.
type DirFontStore struct {
	Dir      string
	Families map[string]string
}

var fontExtensions = []string{".ttf", ".otf", ".ttc"}

func (s DirFontStore) Read(ctx context.Context, family string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.Locate(family)
	if !ok {
		return nil, &services.MissingFontAssetError{Family: family, Err: fs.ErrNotExist}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &services.MissingFontAssetError{Family: family, Err: err}
	}
	return data, nil
}

// Locate finds the file backing family.
func (s DirFontStore) Locate(family string) (string, bool) {
	want := textrender.FoldFamily(family)
	if want == "" {
		return "", false
	}
	for name, file := range s.Families {
		if textrender.FoldFamily(name) != want {
			continue
		}
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.Dir, file)
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !isFontExtension(ext) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if textrender.FoldFamily(stem) == want || textrender.FoldFamily(strings.TrimSuffix(stem, "-Regular")) == want {
			return filepath.Join(s.Dir, entry.Name()), true
		}
	}
	return "", false
}

func isFontExtension(ext string) bool {
	for _, candidate := range fontExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// MemoryStore serves bytes from a map. It satisfies both SourceStore and
// FontStore; font lookups are case-insensitive.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	fonts bool
}

// NewMemorySources returns an empty in-memory source store.
func NewMemorySources() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// NewMemoryFonts returns an empty in-memory font store.
func NewMemoryFonts() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte), fonts: true}
}

// Put stores a copy of data under key.
func (m *MemoryStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[m.key(key)] = append([]byte(nil), data...)
}

func (m *MemoryStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.items[m.key(key)]
	m.mu.RUnlock()
	if !ok {
		if m.fonts {
			return nil, &services.MissingFontAssetError{Family: key, Err: fs.ErrNotExist}
		}
		return nil, services.Wrap(services.ErrNotFound, "assets", "read source", fmt.Sprintf("source %q not found", key), nil)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) key(k string) string {
	if m.fonts {
		return textrender.FoldFamily(k)
	}
	return k
}

// IsNotFound reports whether err means the asset does not exist.
func IsNotFound(err error) bool {
	var font *services.MissingFontAssetError
	return errors.Is(err, services.ErrNotFound) || errors.As(err, &font)
}
