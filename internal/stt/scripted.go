package stt

import (
	"context"
	"sync"
	"time"
)

// Scripted is an in-memory provider for tests. Each Transcribe call plays
// back the configured spans in order, optionally pausing between them so
// tests can exercise progress and stall paths.
type Scripted struct {
	mu sync.Mutex

	// Spans is the playback script shared by every call.
	Spans []Span
	// EmitDelay pauses before each span is emitted.
	EmitDelay time.Duration
	// AvailableErr is returned from Available when set.
	AvailableErr error
	// TranscribeErr is returned after the script finishes when set.
	TranscribeErr error
	// Hang, when set, blocks after the script until ctx is canceled.
	Hang bool

	calls int
}

func (s *Scripted) Available(ctx context.Context, locale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AvailableErr
}

func (s *Scripted) Transcribe(ctx context.Context, wavPath, locale string, emit func(Span) error) error {
	s.mu.Lock()
	s.calls++
	spans := make([]Span, len(s.Spans))
	copy(spans, s.Spans)
	delay := s.EmitDelay
	transcribeErr := s.TranscribeErr
	hang := s.Hang
	s.mu.Unlock()

	for _, span := range spans {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := emit(span); err != nil {
			return err
		}
	}
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if transcribeErr != nil {
		return transcribeErr
	}
	return nil
}

// Calls returns how many times Transcribe ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
