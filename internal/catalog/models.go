package catalog

import (
	"strings"
	"time"
)

// Status represents the transcoding lifecycle of a movie.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusProcessing,
	StatusReady,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the current attempt.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Movie represents a catalog record persisted in SQLite. One movie owns at
// most one source artifact, one poster artifact, and one HLS output
// directory; ManifestPath is non-empty exactly when Status is ready.
type Movie struct {
	ID              int64
	Title           string
	Description     string
	SourcePath      string
	ManifestPath    string
	PosterPath      string
	TrailerURL      string
	ReleaseYear     int
	DurationMinutes int
	Genres          []string
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// IsProcessing returns true when the movie has an in-flight encode attempt.
func (m Movie) IsProcessing() bool {
	return m.Status == StatusProcessing
}

// Streamable reports whether the movie can be played back.
func (m Movie) Streamable() bool {
	return m.Status == StatusReady && m.ManifestPath != ""
}

// Stats aggregates catalog counts per lifecycle state.
type Stats struct {
	Total      int
	Uploaded   int
	Processing int
	Ready      int
	Failed     int
}
