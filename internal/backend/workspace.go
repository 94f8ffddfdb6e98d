package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"montage/internal/fileutil"
	"montage/internal/services"
	"montage/internal/textrender"
)

// ErrWorkspaceBusy is returned when another job holds the directory lock.
var ErrWorkspaceBusy = errors.New("workspace is locked by another job")

const lockFile = ".montage.lock"

// Workspace is a job-scoped directory holding staged sources, fonts, text
// surfaces, and intermediate output. It holds an exclusive flock for its
// lifetime. Staging writes go to a temp file and are renamed into place, so
// re-staging the same resource overwrites it atomically.
type Workspace struct {
	dir  string
	lock *flock.Flock

	mu       sync.RWMutex
	sources  map[string]string
	noAudio  map[string]bool
	fonts    map[string]string
	surfaces map[string]string
	closed   bool
}

// OpenWorkspace creates root/jobID and locks it.
func OpenWorkspace(root, jobID string) (*Workspace, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" || strings.ContainsAny(jobID, `/\`) {
		return nil, services.Wrap(services.ErrValidation, "workspace", "open", fmt.Sprintf("invalid job id %q", jobID), nil)
	}
	dir := filepath.Join(root, jobID)
	for _, sub := range []string{"sources", "fonts", "text", "out"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workspace", "create", dir, err)
		}
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceBusy, dir)
	}
	return &Workspace{
		dir:      dir,
		lock:     lock,
		sources:  make(map[string]string),
		noAudio:  make(map[string]bool),
		fonts:    make(map[string]string),
		surfaces: make(map[string]string),
	}, nil
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string { return w.dir }

// StageSource writes the bytes of ref into the workspace.
func (w *Workspace) StageSource(ref string, data []byte) (string, error) {
	path := filepath.Join(w.dir, "sources", stagedName(ref))
	if err := writeAtomic(path, func(tmp string) error { return os.WriteFile(tmp, data, 0o644) }); err != nil {
		return "", services.Wrap(services.ErrTransient, "workspace", "stage source", ref, err)
	}
	w.record(w.sources, ref, path)
	return path, nil
}

// StageSourceFile copies an on-disk source into the workspace.
func (w *Workspace) StageSourceFile(ref, src string) (string, error) {
	path := filepath.Join(w.dir, "sources", stagedName(ref))
	if err := writeAtomic(path, func(tmp string) error {
		_, err := fileutil.CopyFileVerified(src, tmp)
		return err
	}); err != nil {
		return "", services.Wrap(services.ErrTransient, "workspace", "stage source", ref, err)
	}
	w.record(w.sources, ref, path)
	return path, nil
}

// StageFont writes font bytes for family.
func (w *Workspace) StageFont(family string, data []byte) (string, error) {
	path := filepath.Join(w.dir, "fonts", stagedName(textrender.FoldFamily(family)))
	if err := writeAtomic(path, func(tmp string) error { return os.WriteFile(tmp, data, 0o644) }); err != nil {
		return "", services.Wrap(services.ErrTransient, "workspace", "stage font", family, err)
	}
	w.record(w.fonts, textrender.FoldFamily(family), path)
	return path, nil
}

// StageTextSurface writes the PNG drawn for the overlay with label.
func (w *Workspace) StageTextSurface(label string, png []byte) (string, error) {
	path := filepath.Join(w.dir, "text", label+".png")
	if err := writeAtomic(path, func(tmp string) error { return os.WriteFile(tmp, png, 0o644) }); err != nil {
		return "", services.Wrap(services.ErrTransient, "workspace", "stage text", label, err)
	}
	w.record(w.surfaces, label, path)
	return path, nil
}

// MarkSilent records that ref has no audio stream.
func (w *Workspace) MarkSilent(ref string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.noAudio[ref] = true
}

// SourcePath returns the staged location of ref.
func (w *Workspace) SourcePath(ref string) (string, error) {
	return w.lookup(w.sources, ref, "source")
}

// TextSurfacePath returns the staged PNG for the overlay label.
func (w *Workspace) TextSurfacePath(label string) (string, error) {
	return w.lookup(w.surfaces, label, "text surface")
}

// FontPath returns the staged font file for family.
func (w *Workspace) FontPath(family string) (string, error) {
	return w.lookup(w.fonts, textrender.FoldFamily(family), "font")
}

// HasAudio reports whether ref was staged and carries sound.
func (w *Workspace) HasAudio(ref string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, staged := w.sources[ref]
	return staged && !w.noAudio[ref]
}

// OutputPath returns where a backend writes the named intermediate or final
// file.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.dir, "out", name)
}

// Discard releases the lock and deletes the directory. It is safe to call
// more than once.
func (w *Workspace) Discard() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	unlockErr := w.lock.Unlock()
	removeErr := os.RemoveAll(w.dir)
	return errors.Join(unlockErr, removeErr)
}

func (w *Workspace) record(m map[string]string, key, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m[key] = path
}

func (w *Workspace) lookup(m map[string]string, key, kind string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return "", services.Wrap(services.ErrCancelled, "workspace", "lookup", "workspace discarded", nil)
	}
	path, ok := m[key]
	if !ok {
		return "", services.Wrap(services.ErrNotFound, "workspace", "lookup", fmt.Sprintf("%s %q not staged", kind, key), nil)
	}
	return path, nil
}

// stagedName derives a stable, filesystem-safe name that keeps the
// extension ffmpeg uses for format detection.
func stagedName(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	ext := strings.ToLower(filepath.Ext(ref))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return hex.EncodeToString(sum[:8]) + ext
}

func writeAtomic(path string, write func(tmp string) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stage-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	if err := write(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
