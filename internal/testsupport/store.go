package testsupport

import (
	"testing"

	"nxqueue/internal/config"
	"nxqueue/internal/docstore"
)

// MustOpenStore opens the document store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(cfg.DocumentStorePath())
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
