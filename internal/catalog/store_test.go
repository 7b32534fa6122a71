package catalog_test

import (
	"context"
	"testing"

	"vodworks/internal/catalog"
	"vodworks/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	movie, err := store.Create(ctx, catalog.NewMovie{
		Title:       "The Example",
		Description: "A test movie",
		SourcePath:  "/media/movies/files/example.mp4",
		ReleaseYear: 2024,
		Genres:      []string{"drama", "SCIENCE FICTION"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if movie.ID == 0 {
		t.Fatal("expected movie ID to be assigned")
	}
	if movie.Status != catalog.StatusUploaded {
		t.Fatalf("expected uploaded status, got %q", movie.Status)
	}
	if movie.ManifestPath != "" {
		t.Fatalf("new movie must not have a manifest path, got %q", movie.ManifestPath)
	}

	fetched, err := store.GetByID(ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "The Example" {
		t.Fatalf("unexpected fetched movie: %#v", fetched)
	}
	if len(fetched.Genres) != 2 || fetched.Genres[0] != "Drama" || fetched.Genres[1] != "Science Fiction" {
		t.Fatalf("expected canonical genres, got %v", fetched.Genres)
	}
}

func TestCreateRequiresTitleAndSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Create(ctx, catalog.NewMovie{SourcePath: "/tmp/x.mp4"}); err == nil {
		t.Fatal("expected error when title missing")
	}
	if _, err := store.Create(ctx, catalog.NewMovie{Title: "No Source"}); err == nil {
		t.Fatal("expected error when source path missing")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	movie, err := store.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if movie != nil {
		t.Fatalf("expected nil for missing movie, got %#v", movie)
	}
}

func TestExistsTitleYear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Create(ctx, catalog.NewMovie{
		Title:       "Duplicate Check",
		SourcePath:  "/tmp/a.mp4",
		ReleaseYear: 2020,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	exists, err := store.ExistsTitleYear(ctx, "duplicate check", 2020)
	if err != nil {
		t.Fatalf("ExistsTitleYear failed: %v", err)
	}
	if !exists {
		t.Fatal("expected case-insensitive duplicate to be detected")
	}

	exists, err = store.ExistsTitleYear(ctx, "Duplicate Check", 2021)
	if err != nil {
		t.Fatalf("ExistsTitleYear failed: %v", err)
	}
	if exists {
		t.Fatal("different year must not count as duplicate")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewMovie(t, store, "First", "/tmp/first.mp4")
	testsupport.NewMovie(t, store, "Second", "/tmp/second.mp4")

	if _, ok, err := store.ClaimProcessing(ctx, first.ID); err != nil || !ok {
		t.Fatalf("ClaimProcessing failed: ok=%v err=%v", ok, err)
	}

	uploaded, err := store.List(ctx, catalog.StatusUploaded)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(uploaded) != 1 || uploaded[0].Title != "Second" {
		t.Fatalf("unexpected uploaded list: %#v", uploaded)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(all))
	}
}

func TestUpdateDoesNotTouchLifecycleFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	movie := testsupport.NewMovie(t, store, "Before", "/tmp/before.mp4")

	movie.Title = "After"
	movie.Description = "updated"
	movie.SourcePath = "/tmp/hacked.mp4"
	movie.Status = catalog.StatusReady
	if err := store.Update(ctx, movie); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Title != "After" || fetched.Description != "updated" {
		t.Fatalf("metadata update not applied: %#v", fetched)
	}
	if fetched.Status != catalog.StatusUploaded || fetched.SourcePath != "/tmp/before.mp4" {
		t.Fatalf("lifecycle fields must be untouched by Update: %#v", fetched)
	}
}

func TestStatsCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewMovie(t, store, "One", "/tmp/one.mp4")
	testsupport.NewMovie(t, store, "Two", "/tmp/two.mp4")
	if _, ok, err := store.ClaimProcessing(ctx, first.ID); err != nil || !ok {
		t.Fatalf("ClaimProcessing failed: ok=%v err=%v", ok, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Uploaded != 1 || stats.Processing != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	movie := testsupport.NewMovie(t, store, "Doomed", "/tmp/doomed.mp4")

	removed, err := store.Remove(ctx, movie.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report success")
	}

	removed, err = store.Remove(ctx, movie.ID)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removed {
		t.Fatal("removing a missing movie must report false")
	}
}

func TestGenreRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	movie := testsupport.NewMovie(t, store, "Genre Movie", "/tmp/genre.mp4")

	if err := store.SetMovieGenres(ctx, movie.ID, []string{"horror", "thriller", "horror"}); err != nil {
		t.Fatalf("SetMovieGenres failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(fetched.Genres) != 2 {
		t.Fatalf("expected 2 distinct genres, got %v", fetched.Genres)
	}

	names, err := store.ListGenres(ctx)
	if err != nil {
		t.Fatalf("ListGenres failed: %v", err)
	}
	if len(names) != 2 || names[0] != "Horror" || names[1] != "Thriller" {
		t.Fatalf("unexpected genre list: %v", names)
	}
}
