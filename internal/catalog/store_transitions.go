package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimProcessing moves a movie from uploaded or failed into processing. The
// update is compare-and-swap on the status column: it succeeds only when the
// movie is still claimable, so a duplicate queue delivery observes zero rows
// and skips the work. The source path is read back in the same statement, so
// the caller encodes the upload that won the claim even when a replacement
// landed after the record was loaded. The heartbeat is seeded so the
// stale-reclaim sweep can watch the attempt from its first moment.
func (s *Store) ClaimProcessing(ctx context.Context, id int64) (string, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var sourcePath string
	err := retryOnBusy(ensureContext(ctx), func() error {
		return s.db.QueryRowContext(
			ctx,
			`UPDATE movies
	         SET status = ?, error_message = NULL, last_heartbeat = ?, updated_at = ?
	         WHERE id = ? AND status IN (?, ?) AND source_path IS NOT NULL
	         RETURNING source_path`,
			StatusProcessing,
			now,
			now,
			id,
			StatusUploaded,
			StatusFailed,
		).Scan(&sourcePath)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("claim processing: %w", err)
	}
	return sourcePath, true, nil
}

// MarkReady completes a processing attempt: status becomes ready, the
// manifest path is recorded, and the source path is cleared in the same
// update so the ready/source invariant can never be observed half-applied.
func (s *Store) MarkReady(ctx context.Context, id int64, manifestPath string) (bool, error) {
	if manifestPath == "" {
		return false, fmt.Errorf("manifest path is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET status = ?, manifest_path = ?, source_path = NULL,
             error_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusReady,
		manifestPath,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("mark ready: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkFailed ends a processing attempt in the failed state, keeping the
// source path intact so a retry can reuse the original upload.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetForNewSource records a replacement upload: the new source path is
// stored, any manifest reference is cleared, and the movie returns to the
// uploaded state awaiting a fresh encode. The update is compare-and-swap like
// the other transitions: a movie mid-encode cannot be reset, otherwise a
// second attempt could claim it and race the running one for the same output
// directory.
func (s *Store) ResetForNewSource(ctx context.Context, id int64, sourcePath string) (bool, error) {
	if sourcePath == "" {
		return false, fmt.Errorf("source path is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET status = ?, source_path = ?, manifest_path = NULL,
             error_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status != ?`,
		StatusUploaded,
		sourcePath,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("reset for new source: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed moves a failed movie back to uploaded for reprocessing. The
// guard on status keeps a retry from clobbering an attempt that is already
// running.
func (s *Store) RetryFailed(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusUploaded,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("retry failed movie: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateHeartbeat refreshes the last heartbeat timestamp for an in-flight movie.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE movies SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing fails processing movies whose heartbeats expired
// before the cutoff. A worker crash mid-encode leaves the record in
// processing; this sweep makes the loss visible and the movie retryable.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE movies
         SET status = ?, error_message = 'processing heartbeat expired', last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusFailed,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale movies: %w", err)
	}
	return res.RowsAffected()
}
