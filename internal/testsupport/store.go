package testsupport

import (
	"context"
	"testing"

	"vodworks/internal/artifacts"
	"vodworks/internal/catalog"
	"vodworks/internal/config"
	"vodworks/internal/jobqueue"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenQueue opens a jobqueue.Queue for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *jobqueue.Queue {
	t.Helper()

	queue, err := jobqueue.Open(cfg)
	if err != nil {
		t.Fatalf("jobqueue.Open: %v", err)
	}
	t.Cleanup(func() {
		queue.Close()
	})
	return queue
}

// NewArtifactStore creates an artifact store rooted at the config media root.
func NewArtifactStore(t testing.TB, cfg *config.Config) *artifacts.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return artifacts.NewStore(cfg.Paths.MediaRoot)
}

// NewMovie creates an uploaded movie record for tests using the provided store.
func NewMovie(t testing.TB, store *catalog.Store, title, sourcePath string) *catalog.Movie {
	t.Helper()

	movie, err := store.Create(context.Background(), catalog.NewMovie{
		Title:      title,
		SourcePath: sourcePath,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return movie
}
