package stt

import (
	"context"
	"errors"

	"lectern/internal/services"
)

// Disabled is the provider used when transcription is turned off in
// configuration. Every call reports the capability as unavailable.
type Disabled struct {
	Reason string
}

func (d Disabled) Available(ctx context.Context, locale string) error {
	return d.err()
}

func (d Disabled) Transcribe(ctx context.Context, wavPath, locale string, emit func(Span) error) error {
	return d.err()
}

func (d Disabled) err() error {
	reason := d.Reason
	if reason == "" {
		reason = "transcription disabled"
	}
	return services.Wrap(services.ErrUnavailable, "stt", "disabled", reason, errors.New(reason))
}
