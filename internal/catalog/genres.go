package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var genreCaser = cases.Title(language.English)

// NormalizeGenreName canonicalizes a genre name for storage and comparison.
func NormalizeGenreName(name string) string {
	return genreCaser.String(strings.ToLower(strings.TrimSpace(name)))
}

// AddGenre inserts a genre if it does not already exist and returns its
// identifier. Names are stored in canonical title case.
func (s *Store) AddGenre(ctx context.Context, name string) (int64, error) {
	normalized := NormalizeGenreName(name)
	if normalized == "" {
		return 0, fmt.Errorf("genre name is required")
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO genres (name) VALUES (?) ON CONFLICT(name) DO NOTHING`,
		normalized,
	); err != nil {
		return 0, fmt.Errorf("insert genre: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM genres WHERE name = ?`, normalized).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup genre: %w", err)
	}
	return id, nil
}

// ListGenres returns all genre names in alphabetical order.
func (s *Store) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetMovieGenres replaces the genre set attached to a movie, creating any
// genres that do not exist yet.
func (s *Store) SetMovieGenres(ctx context.Context, movieID int64, names []string) error {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := s.AddGenre(ctx, name)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	if err := s.execWithoutResultRetry(ctx, `DELETE FROM movie_genres WHERE movie_id = ?`, movieID); err != nil {
		return fmt.Errorf("clear movie genres: %w", err)
	}
	for _, genreID := range ids {
		if err := s.execWithoutResultRetry(
			ctx,
			`INSERT INTO movie_genres (movie_id, genre_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			movieID,
			genreID,
		); err != nil {
			return fmt.Errorf("attach genre: %w", err)
		}
	}
	return nil
}

func (s *Store) genresFor(ctx context.Context, movieID int64) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT g.name FROM genres g
         JOIN movie_genres mg ON mg.genre_id = g.id
         WHERE mg.movie_id = ? ORDER BY g.name`,
		movieID,
	)
	if err != nil {
		return nil, fmt.Errorf("movie genres: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
