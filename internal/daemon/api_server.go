package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vodworks/internal/catalog"
	"vodworks/internal/config"
	"vodworks/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/movies", srv.handleMovies)
	mux.HandleFunc("/api/movies/", srv.handleMovieItem)
	if d.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// DaemonStatus is the wire form of the daemon status response.
type DaemonStatus struct {
	Running       bool   `json:"running"`
	CatalogDBPath string `json:"catalog_db_path"`
	QueueDBPath   string `json:"queue_db_path"`
	LockFilePath  string `json:"lock_file_path"`
	QueueDepth    int    `json:"queue_depth"`
	QueueLeased   int    `json:"queue_leased"`
	Total         int    `json:"total"`
	Uploaded      int    `json:"uploaded"`
	Processing    int    `json:"processing"`
	Ready         int    `json:"ready"`
	Failed        int    `json:"failed"`
}

// MovieItem is the wire form of one catalog record. Source and manifest
// paths are internal; the API exposes lifecycle state, not disk layout.
type MovieItem struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	TrailerURL      string   `json:"trailer_url,omitempty"`
	ReleaseYear     int      `json:"release_year,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	Status          string   `json:"status"`
	ErrorMessage    string   `json:"error_message,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func toMovieItem(movie *catalog.Movie) MovieItem {
	return MovieItem{
		ID:              movie.ID,
		Title:           movie.Title,
		Description:     movie.Description,
		TrailerURL:      movie.TrailerURL,
		ReleaseYear:     movie.ReleaseYear,
		DurationMinutes: movie.DurationMinutes,
		Genres:          movie.Genres,
		Status:          string(movie.Status),
		ErrorMessage:    movie.ErrorMessage,
		CreatedAt:       movie.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       movie.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, DaemonStatus{
		Running:       status.Running,
		CatalogDBPath: status.CatalogDBPath,
		QueueDBPath:   status.QueueDBPath,
		LockFilePath:  status.LockFilePath,
		QueueDepth:    status.QueueDepth,
		QueueLeased:   status.QueueLeased,
		Total:         status.Catalog.Total,
		Uploaded:      status.Catalog.Uploaded,
		Processing:    status.Catalog.Processing,
		Ready:         status.Catalog.Ready,
		Failed:        status.Catalog.Failed,
	})
}

func (s *apiServer) handleMovies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []catalog.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		statuses = append(statuses, catalog.Status(trimmed))
	}

	movies, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	items := make([]MovieItem, 0, len(movies))
	for _, movie := range movies {
		items = append(items, toMovieItem(movie))
	}
	s.writeJSON(w, http.StatusOK, map[string][]MovieItem{"items": items})
}

// handleMovieItem serves /api/movies/{id} and /api/movies/{id}/manifest.
func (s *apiServer) handleMovieItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/movies/")
	idStr, sub, _ := strings.Cut(rest, "/")
	if idStr == "" {
		s.writeError(w, http.StatusNotFound, "movie not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid movie id")
		return
	}

	movie, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if movie == nil {
		s.writeError(w, http.StatusNotFound, "movie not found")
		return
	}

	switch sub {
	case "":
		s.writeJSON(w, http.StatusOK, map[string]MovieItem{"item": toMovieItem(movie)})
	case "status":
		s.writeJSON(w, http.StatusOK, map[string]string{"status": string(movie.Status)})
	case "manifest":
		// The manifest is only addressable once the movie is ready; before
		// that the path column is empty by invariant.
		if movie.Status != catalog.StatusReady || movie.ManifestPath == "" {
			s.writeError(w, http.StatusConflict, "movie is not ready for playback")
			return
		}
		http.ServeFile(w, r, movie.ManifestPath)
	default:
		s.writeError(w, http.StatusNotFound, "movie not found")
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
