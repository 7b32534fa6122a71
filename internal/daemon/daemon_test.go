package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"vodworks/internal/encoding"
	"vodworks/internal/logging"
	"vodworks/internal/testsupport"
	"vodworks/internal/worker"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	artifactStore := testsupport.NewArtifactStore(t, cfg)

	registry := prometheus.NewRegistry()
	pool := worker.NewPool(cfg, store, queue, artifactStore, encoding.NewFFmpeg(cfg, logging.NewNop()), logging.NewNop(), worker.NewMetrics(registry))

	d, err := New(cfg, store, queue, pool, registry, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start must fail while running")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
	// Stop is idempotent.
	d.Stop()
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	d := newTestDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	second, err := New(d.cfg, d.store, d.queue, d.pool, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon must fail to acquire the lock")
	}
}

func TestAPIStatusEndpoint(t *testing.T) {
	d := newTestDaemon(t)

	testsupport.NewMovie(t, d.store, "Status Movie", "/tmp/status.mp4")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	d.api.handleStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload DaemonStatus
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 1 || payload.Uploaded != 1 {
		t.Fatalf("unexpected counters: %#v", payload)
	}
}

func TestAPIMovieEndpoints(t *testing.T) {
	d := newTestDaemon(t)

	movie := testsupport.NewMovie(t, d.store, "API Movie", "/tmp/api.mp4")

	rec := httptest.NewRecorder()
	d.api.handleMovies(rec, httptest.NewRequest(http.MethodGet, "/api/movies?status=uploaded", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list struct {
		Items []MovieItem `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Title != "API Movie" {
		t.Fatalf("unexpected list payload: %#v", list)
	}

	rec = httptest.NewRecorder()
	d.api.handleMovieItem(rec, httptest.NewRequest(http.MethodGet, "/api/movies/99999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing movie: expected 404, got %d", rec.Code)
	}

	// Manifest access is gated on the ready state.
	rec = httptest.NewRecorder()
	d.api.handleMovieItem(rec, httptest.NewRequest(http.MethodGet, "/api/movies/"+itoa(movie.ID)+"/manifest", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("manifest before ready: expected 409, got %d", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
