package logging_test

import (
	"context"
	"testing"

	"vodworks/internal/logging"
	"vodworks/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewSupportedFormats(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		if _, err := logging.New(logging.Options{Format: format, Level: "debug"}); err != nil {
			t.Fatalf("New(%q) failed: %v", format, err)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithMovieID(context.Background(), 7)
	ctx = services.WithRequestID(ctx, "req-1")

	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != logging.FieldMovieID || fields[1].Key != logging.FieldCorrelationID {
		t.Fatalf("unexpected field keys: %v", fields)
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := logging.WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected usable logger")
	}
	logger.Info("no-op")
}
