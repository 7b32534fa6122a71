package submit_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vodworks/internal/artifacts"
	"vodworks/internal/catalog"
	"vodworks/internal/jobqueue"
	"vodworks/internal/services"
	"vodworks/internal/submit"
	"vodworks/internal/testsupport"
)

type testEnv struct {
	queue     *jobqueue.Queue
	artifacts *artifacts.Store
}

func newGateway(t *testing.T) (*submit.Gateway, *catalog.Store, *testEnv) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	artifactStore := testsupport.NewArtifactStore(t, cfg)
	gateway := submit.NewGateway(store, queue, artifactStore, nil)
	return gateway, store, &testEnv{queue: queue, artifacts: artifactStore}
}

func TestCreateMovieStoresArtifactsAndEnqueues(t *testing.T) {
	gateway, store, env := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:       "New Release",
		Description: "desc",
		ReleaseYear: 2025,
		Genres:      []string{"action"},
		Source:      strings.NewReader("raw video"),
		SourceExt:   ".mp4",
		Poster:      strings.NewReader("poster"),
		PosterExt:   ".jpg",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}
	if movie.Status != catalog.StatusUploaded {
		t.Fatalf("expected uploaded, got %q", movie.Status)
	}
	if !env.artifacts.Exists(movie.SourcePath) {
		t.Fatalf("source artifact missing at %q", movie.SourcePath)
	}
	if !env.artifacts.Exists(movie.PosterPath) {
		t.Fatalf("poster artifact missing at %q", movie.PosterPath)
	}
	if base := filepath.Base(movie.SourcePath); strings.Contains(base, "New") {
		t.Fatalf("stored source name must be generated, got %q", base)
	}

	queued, _, err := env.queue.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if queued != 1 {
		t.Fatalf("expected 1 queued job, got %d", queued)
	}

	fetched, err := store.GetByID(ctx, movie.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetByID: movie=%#v err=%v", fetched, err)
	}
	if len(fetched.Genres) != 1 || fetched.Genres[0] != "Action" {
		t.Fatalf("unexpected genres: %v", fetched.Genres)
	}
}

func TestCreateMovieRejectsDuplicateTitleYear(t *testing.T) {
	gateway, _, _ := newGateway(t)

	ctx := context.Background()
	if _, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:       "Same Movie",
		ReleaseYear: 2022,
		Source:      strings.NewReader("a"),
		SourceExt:   ".mp4",
	}); err != nil {
		t.Fatalf("first CreateMovie failed: %v", err)
	}

	_, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:       "same movie",
		ReleaseYear: 2022,
		Source:      strings.NewReader("b"),
		SourceExt:   ".mp4",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for duplicate, got %v", err)
	}
}

func TestCreateMovieRequiresTitleAndSource(t *testing.T) {
	gateway, _, _ := newGateway(t)

	ctx := context.Background()
	if _, err := gateway.CreateMovie(ctx, submit.Submission{Source: strings.NewReader("x")}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
	if _, err := gateway.CreateMovie(ctx, submit.Submission{Title: "No Source"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing source, got %v", err)
	}
}

func TestCreateMovieRejectsOutOfRangeMetadata(t *testing.T) {
	gateway, _, _ := newGateway(t)

	ctx := context.Background()
	cases := []struct {
		name     string
		year     int
		duration int
		wantErr  bool
	}{
		{name: "year before cinema", year: 1800, wantErr: true},
		{name: "year too far out", year: time.Now().Year() + 5, wantErr: true},
		{name: "duration too short", duration: 20, wantErr: true},
		{name: "duration too long", duration: 700, wantErr: true},
		{name: "in range", year: 1950, duration: 90, wantErr: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.CreateMovie(ctx, submit.Submission{
				Title:           "Bounds " + tc.name,
				ReleaseYear:     tc.year,
				DurationMinutes: tc.duration,
				Source:          strings.NewReader("x"),
				SourceExt:       ".mp4",
			})
			if tc.wantErr {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateMovie failed: %v", err)
			}
		})
	}
}

func TestReplaceSourceResetsAndCleansUp(t *testing.T) {
	gateway, store, env := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:     "Replace Me",
		Source:    strings.NewReader("original"),
		SourceExt: ".mp4",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}
	// Simulate a completed encode: the worker removed the source and
	// produced output under the movie's HLS directory.
	if _, ok, err := store.ClaimProcessing(ctx, movie.ID); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	outDir := env.artifacts.OutputDir(movie.ID)
	manifest := filepath.Join(outDir, "index.m3u8")
	testsupport.WriteFile(t, manifest, 32)
	if ok, err := store.MarkReady(ctx, movie.ID, manifest); err != nil || !ok {
		t.Fatalf("ready: ok=%v err=%v", ok, err)
	}

	updated, err := gateway.ReplaceSource(ctx, movie.ID, strings.NewReader("replacement"), ".mkv")
	if err != nil {
		t.Fatalf("ReplaceSource failed: %v", err)
	}
	if updated.Status != catalog.StatusUploaded {
		t.Fatalf("expected uploaded after replace, got %q", updated.Status)
	}
	if updated.ManifestPath != "" {
		t.Fatalf("manifest must be cleared, got %q", updated.ManifestPath)
	}
	if updated.SourcePath == "" {
		t.Fatal("expected a fresh source artifact")
	}
	if _, err := os.Stat(outDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale output directory must be deleted: %v", err)
	}
}

func TestReplaceSourceOnFailedMovieDeletesKeptSource(t *testing.T) {
	gateway, store, env := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:     "Failed Replace",
		Source:    strings.NewReader("bad upload"),
		SourceExt: ".mp4",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}
	oldSource := movie.SourcePath

	if _, ok, err := store.ClaimProcessing(ctx, movie.ID); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if ok, err := store.MarkFailed(ctx, movie.ID, "corrupt input"); err != nil || !ok {
		t.Fatalf("fail: ok=%v err=%v", ok, err)
	}

	updated, err := gateway.ReplaceSource(ctx, movie.ID, strings.NewReader("good upload"), ".mp4")
	if err != nil {
		t.Fatalf("ReplaceSource failed: %v", err)
	}
	if updated.Status != catalog.StatusUploaded || updated.ErrorMessage != "" {
		t.Fatalf("replace must reset lifecycle state: %#v", updated)
	}
	if env.artifacts.Exists(oldSource) {
		t.Fatal("the kept failed source must be deleted after replacement")
	}
	if !env.artifacts.Exists(updated.SourcePath) {
		t.Fatalf("new source artifact missing at %q", updated.SourcePath)
	}
}

func TestReplaceSourceRefusesProcessingMovie(t *testing.T) {
	gateway, store, _ := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:     "Busy",
		Source:    strings.NewReader("busy"),
		SourceExt: ".mp4",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}
	if _, ok, err := store.ClaimProcessing(ctx, movie.ID); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}

	_, err = gateway.ReplaceSource(ctx, movie.ID, strings.NewReader("new"), ".mp4")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error while processing, got %v", err)
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	gateway, store, env := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:     "Retry Me",
		Source:    strings.NewReader("retry"),
		SourceExt: ".mp4",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}

	if err := gateway.Retry(ctx, movie.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error retrying an uploaded movie, got %v", err)
	}
	if err := gateway.Retry(ctx, 999999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}

	if _, ok, err := store.ClaimProcessing(ctx, movie.ID); err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if ok, err := store.MarkFailed(ctx, movie.ID, "boom"); err != nil || !ok {
		t.Fatalf("fail: ok=%v err=%v", ok, err)
	}

	if err := gateway.Retry(ctx, movie.ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	queued, _, err := env.queue.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if queued != 2 {
		t.Fatalf("expected the original and the retry job queued, got %d", queued)
	}
}

func TestRemoveDeletesRecordArtifactsAndJobs(t *testing.T) {
	gateway, store, env := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:     "Remove Me",
		Source:    strings.NewReader("gone"),
		SourceExt: ".mp4",
		Poster:    strings.NewReader("poster"),
		PosterExt: ".jpg",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}

	if err := gateway.Remove(ctx, movie.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, movie.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("record must be gone, got %#v", fetched)
	}
	if env.artifacts.Exists(movie.SourcePath) || env.artifacts.Exists(movie.PosterPath) {
		t.Fatal("artifacts must be deleted with the record")
	}
	queued, _, err := env.queue.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if queued != 0 {
		t.Fatalf("queued jobs must be discarded, got %d", queued)
	}

	if err := gateway.Remove(ctx, movie.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestUpdatePosterReplacesArtifact(t *testing.T) {
	gateway, store, env := newGateway(t)

	ctx := context.Background()
	movie, err := gateway.CreateMovie(ctx, submit.Submission{
		Title:     "Poster Movie",
		Source:    strings.NewReader("src"),
		SourceExt: ".mp4",
		Poster:    strings.NewReader("old poster"),
		PosterExt: ".jpg",
	})
	if err != nil {
		t.Fatalf("CreateMovie failed: %v", err)
	}
	oldPoster := movie.PosterPath

	if err := gateway.UpdatePoster(ctx, movie.ID, strings.NewReader("new poster"), ".png"); err != nil {
		t.Fatalf("UpdatePoster failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, movie.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetByID: movie=%#v err=%v", fetched, err)
	}
	if fetched.PosterPath == oldPoster || fetched.PosterPath == "" {
		t.Fatalf("expected a fresh poster artifact, got %q", fetched.PosterPath)
	}
	if env.artifacts.Exists(oldPoster) {
		t.Fatal("old poster artifact must be deleted")
	}
	if fetched.Status != catalog.StatusUploaded {
		t.Fatalf("poster update must not touch lifecycle state, got %q", fetched.Status)
	}
}

func TestCreateMovieFromFile(t *testing.T) {
	gateway, _, env := newGateway(t)

	src := filepath.Join(t.TempDir(), "local.mp4")
	testsupport.WriteFile(t, src, 256)

	ctx := context.Background()
	movie, err := gateway.CreateMovieFromFile(ctx, submit.Submission{Title: "Local File"}, src)
	if err != nil {
		t.Fatalf("CreateMovieFromFile failed: %v", err)
	}
	if !env.artifacts.Exists(movie.SourcePath) {
		t.Fatalf("copied source artifact missing at %q", movie.SourcePath)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("original file must remain: %v", err)
	}

	if _, err := gateway.CreateMovieFromFile(ctx, submit.Submission{Title: "Nope"}, filepath.Join(t.TempDir(), "missing.mp4")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
}
