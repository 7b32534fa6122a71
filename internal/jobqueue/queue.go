package jobqueue

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

// Delivery is one handed-out job. The same movie may be delivered more than
// once (lease expiry, duplicate submission); consumers must tolerate
// redelivery.
type Delivery struct {
	ID      int64
	MovieID int64
}

// Queue is a durable at-least-once delivery channel carrying movie
// identifiers from submitters to workers, backed by its own SQLite file so
// transport state stays decoupled from the catalog.
type Queue struct {
	db           *sql.DB
	path         string
	pollInterval time.Duration
	leaseTimeout time.Duration
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    movie_id INTEGER NOT NULL,
    state TEXT NOT NULL DEFAULT 'queued',
    enqueued_at TEXT NOT NULL,
    leased_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state, id);
`

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Queue, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create queue schema: %w", err)
	}

	return &Queue{
		db:           db,
		path:         dbPath,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		leaseTimeout: time.Duration(cfg.Workflow.QueueLeaseTimeout) * time.Second,
	}, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Enqueue records a job for the given movie. Callers must only enqueue after
// the catalog write that created or updated the movie has committed.
func (q *Queue) Enqueue(ctx context.Context, movieID int64) error {
	_, err := q.db.ExecContext(
		ctx,
		`INSERT INTO jobs (movie_id, state, enqueued_at) VALUES (?, 'queued', ?)`,
		movieID,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("enqueue movie %d: %w", movieID, err)
	}
	return nil
}

// Dequeue blocks until a job is available or the context is cancelled. The
// returned delivery is leased, not removed; it must be acknowledged with Ack
// or it becomes deliverable again once the lease expires.
func (q *Queue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		delivery, err := q.TryDequeue(ctx)
		if err != nil {
			return nil, err
		}
		if delivery != nil {
			return delivery, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

// TryDequeue leases the oldest queued job, returning nil when the queue is
// empty. The lease is taken with a compare-and-swap on the job state so two
// workers can never receive the same delivery concurrently.
func (q *Queue) TryDequeue(ctx context.Context) (*Delivery, error) {
	if err := q.reclaimExpiredLeases(ctx); err != nil {
		return nil, err
	}

	for {
		var (
			id      int64
			movieID int64
		)
		err := q.db.QueryRowContext(
			ctx,
			`SELECT id, movie_id FROM jobs WHERE state = 'queued' ORDER BY id LIMIT 1`,
		).Scan(&id, &movieID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("peek queue: %w", err)
		}

		res, err := q.db.ExecContext(
			ctx,
			`UPDATE jobs SET state = 'leased', leased_at = ? WHERE id = ? AND state = 'queued'`,
			time.Now().UTC().Format(time.RFC3339Nano),
			id,
		)
		if err != nil {
			return nil, fmt.Errorf("lease job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race to another worker; try the next candidate.
			continue
		}
		return &Delivery{ID: id, MovieID: movieID}, nil
	}
}

// Ack removes a delivered job. Acknowledging an already-removed delivery is
// harmless, matching at-least-once semantics.
func (q *Queue) Ack(ctx context.Context, deliveryID int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, deliveryID); err != nil {
		return fmt.Errorf("ack job %d: %w", deliveryID, err)
	}
	return nil
}

// Discard removes every pending job for a movie, used when the movie itself
// is deleted. Leased jobs are left alone; the worker holding them discards
// the delivery on its own when the record load comes back empty.
func (q *Queue) Discard(ctx context.Context, movieID int64) error {
	if _, err := q.db.ExecContext(
		ctx,
		`DELETE FROM jobs WHERE movie_id = ? AND state = 'queued'`,
		movieID,
	); err != nil {
		return fmt.Errorf("discard jobs for movie %d: %w", movieID, err)
	}
	return nil
}

// Depth returns the number of deliverable and leased jobs.
func (q *Queue) Depth(ctx context.Context) (queued int, leased int, err error) {
	rows, err := q.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return 0, 0, fmt.Errorf("queue depth: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return 0, 0, err
		}
		switch strings.TrimSpace(state) {
		case "queued":
			queued = count
		case "leased":
			leased = count
		}
	}
	return queued, leased, rows.Err()
}

func (q *Queue) reclaimExpiredLeases(ctx context.Context) error {
	cutoff := time.Now().Add(-q.leaseTimeout).UTC().Format(time.RFC3339Nano)
	if _, err := q.db.ExecContext(
		ctx,
		`UPDATE jobs SET state = 'queued', leased_at = NULL
         WHERE state = 'leased' AND leased_at IS NOT NULL AND leased_at < ?`,
		cutoff,
	); err != nil {
		return fmt.Errorf("reclaim expired leases: %w", err)
	}
	return nil
}
