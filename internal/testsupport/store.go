package testsupport

import (
	"testing"

	"lectern/internal/config"
	"lectern/internal/transcript"
)

// MustOpenStore opens a transcript.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *transcript.Store {
	t.Helper()

	store, err := transcript.Open(cfg)
	if err != nil {
		t.Fatalf("transcript.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
