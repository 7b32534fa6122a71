package services

import "context"

type contextKey string

const (
	movieIDKey   contextKey = "movie_id"
	requestIDKey contextKey = "request_id"
)

// WithMovieID annotates context with the movie identifier being processed.
func WithMovieID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, movieIDKey, id)
}

// MovieIDFromContext extracts the movie identifier if present.
func MovieIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(movieIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
