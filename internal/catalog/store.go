package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vodworks/internal/config"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "catalog.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewMovie carries the fields required to create a catalog record.
type NewMovie struct {
	Title           string
	Description     string
	SourcePath      string
	PosterPath      string
	TrailerURL      string
	ReleaseYear     int
	DurationMinutes int
	Genres          []string
}

// Create inserts a movie in the uploaded state.
func (s *Store) Create(ctx context.Context, draft NewMovie) (*Movie, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if strings.TrimSpace(draft.SourcePath) == "" {
		return nil, errors.New("source path is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO movies (
            title, description, source_path, poster_path, trailer_url,
            release_year, duration_minutes, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		title,
		nullableString(draft.Description),
		draft.SourcePath,
		nullableString(draft.PosterPath),
		nullableString(draft.TrailerURL),
		nullableInt(draft.ReleaseYear),
		nullableInt(draft.DurationMinutes),
		StatusUploaded,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert movie: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if len(draft.Genres) > 0 {
		if err := s.SetMovieGenres(ctx, id, draft.Genres); err != nil {
			return nil, err
		}
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a movie by identifier. A nil movie with nil error means the
// record does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Movie, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	movie, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if movie.Genres, err = s.genresFor(ctx, id); err != nil {
		return nil, err
	}
	return movie, nil
}

// Update persists metadata changes to an existing movie. Lifecycle fields
// (status, source, manifest) are deliberately excluded; those move only
// through the transition methods.
func (s *Store) Update(ctx context.Context, movie *Movie) error {
	if movie == nil {
		return errors.New("movie is nil")
	}
	movie.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET title = ?, description = ?, trailer_url = ?,
             release_year = ?, duration_minutes = ?, updated_at = ?
         WHERE id = ?`,
		strings.TrimSpace(movie.Title),
		nullableString(movie.Description),
		nullableString(movie.TrailerURL),
		nullableInt(movie.ReleaseYear),
		nullableInt(movie.DurationMinutes),
		movie.UpdatedAt.Format(time.RFC3339Nano),
		movie.ID,
	)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	return nil
}

// UpdatePoster replaces the poster path. Posters are not gated by the
// transcoding state machine.
func (s *Store) UpdatePoster(ctx context.Context, id int64, posterPath string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE movies SET poster_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(posterPath),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update poster: %w", err)
	}
	return nil
}

// List returns movies filtered by status set (or all movies when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Movie, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + movieColumns + ` FROM movies`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var movies []*Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// ExistsTitleYear reports whether a movie with the same title (case
// insensitive) and release year already exists.
func (s *Store) ExistsTitleYear(ctx context.Context, title string, year int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM movies WHERE title = ? COLLATE NOCASE AND release_year = ?`,
		strings.TrimSpace(title),
		year,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return count > 0, nil
}

// Stats returns a count of movies grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM movies GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch status {
		case StatusUploaded:
			stats.Uploaded += count
		case StatusProcessing:
			stats.Processing += count
		case StatusReady:
			stats.Ready += count
		case StatusFailed:
			stats.Failed += count
		}
	}
	return stats, rows.Err()
}

// Remove deletes a movie by identifier. Artifact cleanup is the caller's
// responsibility; the store only owns the record.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete movie: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const movieColumns = "id, title, description, source_path, manifest_path, poster_path, trailer_url, release_year, duration_minutes, status, error_message, created_at, updated_at, last_heartbeat"

func scanMovie(scanner interface{ Scan(dest ...any) error }) (*Movie, error) {
	var (
		id               int64
		title            string
		description      sql.NullString
		sourcePath       sql.NullString
		manifestPath     sql.NullString
		posterPath       sql.NullString
		trailerURL       sql.NullString
		releaseYear      sql.NullInt64
		durationMinutes  sql.NullInt64
		statusStr        string
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&description,
		&sourcePath,
		&manifestPath,
		&posterPath,
		&trailerURL,
		&releaseYear,
		&durationMinutes,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	movie := &Movie{
		ID:              id,
		Title:           title,
		Description:     description.String,
		SourcePath:      sourcePath.String,
		ManifestPath:    manifestPath.String,
		PosterPath:      posterPath.String,
		TrailerURL:      trailerURL.String,
		ReleaseYear:     int(releaseYear.Int64),
		DurationMinutes: int(durationMinutes.Int64),
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		movie.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		movie.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			movie.LastHeartbeat = &heartbeat
		}
	}
	return movie, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
