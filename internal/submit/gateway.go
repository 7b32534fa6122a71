package submit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"vodworks/internal/artifacts"
	"vodworks/internal/catalog"
	"vodworks/internal/jobqueue"
	"vodworks/internal/logging"
	"vodworks/internal/services"
)

// Gateway is the single write path into the pipeline. It owns the ordering
// between the three stores: artifact first, catalog record second, queue
// entry last, so a job is only ever announced after the record it refers to
// is durable.
type Gateway struct {
	store     *catalog.Store
	queue     *jobqueue.Queue
	artifacts *artifacts.Store
	logger    *slog.Logger
}

// NewGateway constructs a submission gateway.
func NewGateway(store *catalog.Store, queue *jobqueue.Queue, artifactStore *artifacts.Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:     store,
		queue:     queue,
		artifacts: artifactStore,
		logger:    logging.NewComponentLogger(logger, "submit"),
	}
}

// Submission carries the metadata and content of a new movie upload.
type Submission struct {
	Title           string
	Description     string
	TrailerURL      string
	ReleaseYear     int
	DurationMinutes int
	Genres          []string

	Source    io.Reader
	SourceExt string

	Poster    io.Reader
	PosterExt string
}

// CreateMovie validates a submission, stores its artifacts, creates the
// catalog record in the uploaded state, and enqueues the transcode job. The
// enqueue happens strictly after the record write; if it fails the movie
// simply waits in uploaded until an operator retries it.
func (g *Gateway) CreateMovie(ctx context.Context, sub Submission) (*catalog.Movie, error) {
	title := strings.TrimSpace(sub.Title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "submit", "create", "title is required", nil)
	}
	if sub.Source == nil {
		return nil, services.Wrap(services.ErrValidation, "submit", "create", "source file is required", nil)
	}
	if err := validateMetadata(sub.ReleaseYear, sub.DurationMinutes); err != nil {
		return nil, err
	}

	if sub.ReleaseYear != 0 {
		exists, err := g.store.ExistsTitleYear(ctx, title, sub.ReleaseYear)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "submit", "duplicate check", "", err)
		}
		if exists {
			return nil, services.Wrap(services.ErrValidation, "submit", "create", "a movie with this title and release year already exists", nil)
		}
	}

	sourcePath, err := g.artifacts.Put(artifacts.KindSource, sub.Source, sub.SourceExt)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "store source", "", err)
	}

	posterPath := ""
	if sub.Poster != nil {
		posterPath, err = g.artifacts.Put(artifacts.KindPoster, sub.Poster, sub.PosterExt)
		if err != nil {
			_ = g.artifacts.Remove(sourcePath)
			return nil, services.Wrap(services.ErrTransient, "submit", "store poster", "", err)
		}
	}

	movie, err := g.store.Create(ctx, catalog.NewMovie{
		Title:           title,
		Description:     sub.Description,
		SourcePath:      sourcePath,
		PosterPath:      posterPath,
		TrailerURL:      sub.TrailerURL,
		ReleaseYear:     sub.ReleaseYear,
		DurationMinutes: sub.DurationMinutes,
		Genres:          sub.Genres,
	})
	if err != nil {
		_ = g.artifacts.Remove(sourcePath)
		_ = g.artifacts.Remove(posterPath)
		return nil, services.Wrap(services.ErrTransient, "submit", "create record", "", err)
	}

	g.enqueue(ctx, movie.ID)
	g.logger.Info("movie submitted",
		logging.Int64(logging.FieldMovieID, movie.ID),
		logging.String("title", movie.Title),
		logging.String(logging.FieldEventType, "movie_submitted"),
	)
	return movie, nil
}

// CreateMovieFromFile is the ingest path for local files: the source is
// copied into the artifact store rather than streamed.
func (g *Gateway) CreateMovieFromFile(ctx context.Context, sub Submission, sourceFile string) (*catalog.Movie, error) {
	if !g.artifacts.Exists(sourceFile) {
		return nil, services.Wrap(services.ErrValidation, "submit", "create", "source file does not exist: "+sourceFile, nil)
	}
	if err := validateMetadata(sub.ReleaseYear, sub.DurationMinutes); err != nil {
		return nil, err
	}
	sourcePath, err := g.artifacts.PutFile(artifacts.KindSource, sourceFile)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "store source", "", err)
	}

	title := strings.TrimSpace(sub.Title)
	if title == "" {
		_ = g.artifacts.Remove(sourcePath)
		return nil, services.Wrap(services.ErrValidation, "submit", "create", "title is required", nil)
	}

	movie, err := g.store.Create(ctx, catalog.NewMovie{
		Title:           title,
		Description:     sub.Description,
		SourcePath:      sourcePath,
		TrailerURL:      sub.TrailerURL,
		ReleaseYear:     sub.ReleaseYear,
		DurationMinutes: sub.DurationMinutes,
		Genres:          sub.Genres,
	})
	if err != nil {
		_ = g.artifacts.Remove(sourcePath)
		return nil, services.Wrap(services.ErrTransient, "submit", "create record", "", err)
	}

	g.enqueue(ctx, movie.ID)
	g.logger.Info("movie submitted from file",
		logging.Int64(logging.FieldMovieID, movie.ID),
		logging.String("title", movie.Title),
		logging.String(logging.FieldEventType, "movie_submitted"),
	)
	return movie, nil
}

// ReplaceSource stores a replacement upload for an existing movie and
// resubmits it for transcoding. The catalog reset is persisted before the
// old artifacts are touched, so a crash between the two steps orphans files
// rather than corrupting the record.
func (g *Gateway) ReplaceSource(ctx context.Context, id int64, source io.Reader, ext string) (*catalog.Movie, error) {
	movie, err := g.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "load record", "", err)
	}
	if movie == nil {
		return nil, services.Wrap(services.ErrNotFound, "submit", "replace source", "movie not found", nil)
	}
	if movie.Status == catalog.StatusProcessing {
		return nil, services.Wrap(services.ErrValidation, "submit", "replace source", "movie is currently processing", nil)
	}

	newSource, err := g.artifacts.Put(artifacts.KindSource, source, ext)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "store source", "", err)
	}

	oldSource := movie.SourcePath
	oldOutput := ""
	if movie.ManifestPath != "" {
		oldOutput = g.artifacts.OutputDir(movie.ID)
	}

	reset, err := g.store.ResetForNewSource(ctx, id, newSource)
	if err != nil {
		_ = g.artifacts.Remove(newSource)
		return nil, services.Wrap(services.ErrTransient, "submit", "reset record", "", err)
	}
	if !reset {
		// The movie was deleted, or a worker claimed it, after the status
		// check above; the compare-and-swap in the store is what actually
		// decides.
		_ = g.artifacts.Remove(newSource)
		current, getErr := g.store.GetByID(ctx, id)
		if getErr != nil {
			return nil, services.Wrap(services.ErrTransient, "submit", "reset record", "", getErr)
		}
		if current == nil {
			return nil, services.Wrap(services.ErrNotFound, "submit", "replace source", "movie disappeared during replace", nil)
		}
		return nil, services.Wrap(services.ErrValidation, "submit", "replace source", "movie is currently processing", nil)
	}

	if oldSource != "" && oldSource != newSource {
		if err := g.artifacts.Remove(oldSource); err != nil {
			g.logger.Warn("failed to remove replaced source",
				logging.Int64(logging.FieldMovieID, id),
				logging.Error(err),
			)
		}
	}
	if oldOutput != "" {
		if err := g.artifacts.RemoveDir(oldOutput); err != nil {
			g.logger.Warn("failed to remove stale output",
				logging.Int64(logging.FieldMovieID, id),
				logging.Error(err),
			)
		}
	}

	g.enqueue(ctx, id)
	g.logger.Info("movie source replaced",
		logging.Int64(logging.FieldMovieID, id),
		logging.String(logging.FieldEventType, "source_replaced"),
	)
	return g.store.GetByID(ctx, id)
}

// UpdatePoster swaps the poster artifact without touching the transcoding
// lifecycle.
func (g *Gateway) UpdatePoster(ctx context.Context, id int64, poster io.Reader, ext string) error {
	movie, err := g.store.GetByID(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "submit", "load record", "", err)
	}
	if movie == nil {
		return services.Wrap(services.ErrNotFound, "submit", "update poster", "movie not found", nil)
	}

	newPoster, err := g.artifacts.Put(artifacts.KindPoster, poster, ext)
	if err != nil {
		return services.Wrap(services.ErrTransient, "submit", "store poster", "", err)
	}
	if err := g.store.UpdatePoster(ctx, id, newPoster); err != nil {
		_ = g.artifacts.Remove(newPoster)
		return services.Wrap(services.ErrTransient, "submit", "update poster", "", err)
	}
	if movie.PosterPath != "" && movie.PosterPath != newPoster {
		if err := g.artifacts.Remove(movie.PosterPath); err != nil {
			g.logger.Warn("failed to remove replaced poster",
				logging.Int64(logging.FieldMovieID, id),
				logging.Error(err),
			)
		}
	}
	return nil
}

// Retry resubmits a failed movie. The catalog transition guards the state, so
// retrying a movie that is not failed is rejected rather than enqueued twice.
func (g *Gateway) Retry(ctx context.Context, id int64) error {
	moved, err := g.store.RetryFailed(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "submit", "retry", "", err)
	}
	if !moved {
		movie, getErr := g.store.GetByID(ctx, id)
		if getErr != nil {
			return services.Wrap(services.ErrTransient, "submit", "retry", "", getErr)
		}
		if movie == nil {
			return services.Wrap(services.ErrNotFound, "submit", "retry", "movie not found", nil)
		}
		return services.Wrap(services.ErrValidation, "submit", "retry", "movie is not in the failed state", nil)
	}

	g.enqueue(ctx, id)
	g.logger.Info("movie resubmitted",
		logging.Int64(logging.FieldMovieID, id),
		logging.String(logging.FieldEventType, "movie_retried"),
	)
	return nil
}

// Remove deletes a movie and everything it owns. The record is removed first;
// once it is gone any in-flight worker discards its delivery on the next
// status write, and artifact cleanup can proceed without racing the encode
// into a corrupt half-state.
func (g *Gateway) Remove(ctx context.Context, id int64) error {
	movie, err := g.store.GetByID(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "submit", "load record", "", err)
	}
	if movie == nil {
		return services.Wrap(services.ErrNotFound, "submit", "remove", "movie not found", nil)
	}

	removed, err := g.store.Remove(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrTransient, "submit", "remove record", "", err)
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "submit", "remove", "movie not found", nil)
	}

	if err := g.queue.Discard(ctx, id); err != nil {
		g.logger.Warn("failed to discard queued jobs",
			logging.Int64(logging.FieldMovieID, id),
			logging.Error(err),
		)
	}

	for _, path := range []string{movie.SourcePath, movie.PosterPath} {
		if err := g.artifacts.Remove(path); err != nil {
			g.logger.Warn("failed to remove artifact",
				logging.Int64(logging.FieldMovieID, id),
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
	if err := g.artifacts.RemoveDir(g.artifacts.OutputDir(id)); err != nil {
		g.logger.Warn("failed to remove output directory",
			logging.Int64(logging.FieldMovieID, id),
			logging.Error(err),
		)
	}

	g.logger.Info("movie removed",
		logging.Int64(logging.FieldMovieID, id),
		logging.String(logging.FieldEventType, "movie_removed"),
	)
	return nil
}

const (
	minReleaseYear     = 1888
	minDurationMinutes = 40
	maxDurationMinutes = 600
)

// validateMetadata bounds the optional numeric fields; zero means the field
// was not provided.
func validateMetadata(releaseYear, durationMinutes int) error {
	if releaseYear != 0 {
		maxYear := time.Now().Year() + 2
		if releaseYear < minReleaseYear || releaseYear > maxYear {
			return services.Wrap(services.ErrValidation, "submit", "create",
				fmt.Sprintf("release year must be between %d and %d", minReleaseYear, maxYear), nil)
		}
	}
	if durationMinutes != 0 && (durationMinutes < minDurationMinutes || durationMinutes > maxDurationMinutes) {
		return services.Wrap(services.ErrValidation, "submit", "create",
			fmt.Sprintf("duration must be between %d and %d minutes", minDurationMinutes, maxDurationMinutes), nil)
	}
	return nil
}

// enqueue announces a committed record to the queue. Failure is logged, not
// returned: the record is durable in uploaded and an operator retry will
// enqueue it again.
func (g *Gateway) enqueue(ctx context.Context, id int64) {
	if err := g.queue.Enqueue(ctx, id); err != nil {
		g.logger.Error("failed to enqueue transcode job",
			logging.Int64(logging.FieldMovieID, id),
			logging.Error(err),
			logging.String(logging.FieldEventType, "enqueue_failed"),
			logging.String(logging.FieldErrorHint, "retry the movie to enqueue it again"),
		)
	}
}
