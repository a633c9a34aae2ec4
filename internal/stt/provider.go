package stt

import "context"

// Word is a single recognized token with timing relative to the start of
// the audio handed to the provider.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Span is one recognizer output unit, typically a phrase or segment. Word
// timings may be interpolated when the recognizer reports only span bounds.
type Span struct {
	Text  string
	Start float64
	End   float64
	Words []Word
}

// Provider produces timed spans for an audio file. Implementations stream
// spans through emit in timeline order as recognition progresses; a
// returned emit error aborts the run.
type Provider interface {
	// Available reports whether the provider can transcribe in the given
	// locale right now. A nil return means Transcribe may be attempted.
	Available(ctx context.Context, locale string) error

	// Transcribe recognizes speech in the WAV file at wavPath, calling emit
	// for each span as it is produced. Span times are seconds relative to
	// the start of the file.
	Transcribe(ctx context.Context, wavPath, locale string, emit func(Span) error) error
}
