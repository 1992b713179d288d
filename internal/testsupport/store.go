package testsupport

import (
	"context"
	"testing"

	"clipsight/internal/config"
	"clipsight/internal/media"
)

// MustOpenStore opens a media.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *media.Store {
	t.Helper()

	store, err := media.Open(cfg)
	if err != nil {
		t.Fatalf("media.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecord creates a pending media record for tests using the provided store.
func NewRecord(t testing.TB, store *media.Store, kind media.Kind, sourcePath string) *media.Record {
	t.Helper()

	record, err := store.NewRecord(context.Background(), media.NewRecordParams{
		Kind:       kind,
		SourcePath: sourcePath,
		Title:      "test media",
	})
	if err != nil {
		t.Fatalf("store.NewRecord: %v", err)
	}
	return record
}
