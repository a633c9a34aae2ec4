package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable marks speech capability or locale failures that will
	// never succeed mid-run. Never retried.
	ErrUnavailable = errors.New("speech capability unavailable")
	// ErrExtraction marks failures producing the bounded audio segment.
	ErrExtraction = errors.New("audio extraction failed")
	// ErrStall marks a progress-timeout cancellation by the watchdog.
	ErrStall = errors.New("transcription stalled")
	// ErrStore marks a persistence failure surfaced from the chapter store.
	ErrStore = errors.New("store failure")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether the scheduler may spend retry budget on the
// failure. Unavailability is terminal: the capability will not appear
// mid-run, so retrying only burns attempts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrUnavailable)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
