package services_test

import (
	"errors"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("disk full")
	err := services.Wrap(services.ErrStore, "transcript", "save", "persist sentences", cause)
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected ErrStore marker: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to survive wrapping: %v", err)
	}
	for _, want := range []string{"transcript", "save", "persist sentences", "disk full"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("message missing %q: %v", want, err)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "engine", "transcribe", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient default: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(nil) {
		t.Fatal("nil error is not retryable")
	}
	unavailable := services.Wrap(services.ErrUnavailable, "stt", "available", "binary missing", nil)
	if services.IsRetryable(unavailable) {
		t.Fatal("unavailability must not be retried")
	}
	stall := services.Wrap(services.ErrStall, "scheduler", "run", "no progress", nil)
	if !services.IsRetryable(stall) {
		t.Fatal("stalls are retryable")
	}
	if !services.IsRetryable(errors.New("plain")) {
		t.Fatal("unclassified errors are retryable")
	}
}
