package services_test

import (
	"errors"
	"testing"

	"vodworks/internal/services"
)

func TestWrapTagsWithMarker(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrExternalTool, "encoder", "transcode", "ffmpeg crashed", cause)

	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "worker", "claim", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestIsTerminal(t *testing.T) {
	if services.IsTerminal(nil) {
		t.Fatal("nil error is not terminal")
	}
	if services.IsTerminal(services.Wrap(services.ErrNotFound, "worker", "load", "", nil)) {
		t.Fatal("not-found errors discard the delivery rather than failing the job")
	}
	if !services.IsTerminal(services.Wrap(services.ErrExternalTool, "encoder", "transcode", "", nil)) {
		t.Fatal("external tool errors are terminal")
	}
}
