package testsupport

import (
	"testing"

	"montage/internal/config"
	"montage/internal/registry"
)

// MustOpenRegistry opens the export registry for cfg and registers cleanup.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *registry.Store {
	t.Helper()

	store, err := registry.Open(cfg.Paths.RegistryPath)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
