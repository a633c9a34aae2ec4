package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lectern/internal/library"
	"lectern/internal/logging"
	"lectern/internal/services"
	"lectern/internal/stt"
	"lectern/internal/transcript"
)

// Options configures an Engine.
type Options struct {
	// FFmpegBinary runs chapter audio extraction.
	FFmpegBinary string
	// CacheDir holds scratch WAV files during a run.
	CacheDir string
	// DefaultLocale applies when a book doesn't declare its own.
	DefaultLocale string
}

// Engine transcribes single chapters through a speech provider.
type Engine struct {
	provider stt.Provider
	opts     Options
	logger   *slog.Logger
}

// New creates an Engine around the given provider.
func New(provider stt.Provider, opts Options, logger *slog.Logger) *Engine {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		provider: provider,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "engine"),
	}
}

// Available reports whether transcription can run for the book right now.
func (e *Engine) Available(ctx context.Context, book *library.Book) error {
	return e.provider.Available(ctx, e.localeFor(book))
}

// TranscribeChapter extracts the chapter's audio and streams recognized
// sentences through emit in timeline order. Sentence times are absolute on
// the book's timeline. The caller owns persistence; a returned error means
// no usable transcription was produced.
func (e *Engine) TranscribeChapter(ctx context.Context, book *library.Book, chapter library.Chapter, emit func(transcript.Sentence) error) error {
	locale := e.localeFor(book)
	if err := e.provider.Available(ctx, locale); err != nil {
		return err
	}

	workDir, err := os.MkdirTemp(e.opts.CacheDir, "chapter-*")
	if err != nil {
		return services.Wrap(services.ErrExtraction, "engine", "transcribe", "create scratch dir", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "chapter.wav")
	if err := extractChapterAudio(ctx, e.opts.FFmpegBinary, book.AudioPath, chapter.Start, chapter.Duration, wavPath); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExtraction, "engine", "transcribe",
			fmt.Sprintf("extract chapter %s audio", chapter.ID), err)
	}

	assembler := newSentenceAssembler(chapter.Start, chapter.Start, chapter.End(), emit)
	err = e.provider.Transcribe(ctx, wavPath, locale, func(span stt.Span) error {
		return assembler.AddSpan(span)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if err := assembler.Flush(); err != nil {
		return err
	}

	// Book and chapter ids arrive as context fields from the scheduler.
	logging.WithContext(ctx, e.logger).Info("chapter transcribed",
		logging.Int("sentences", assembler.Count()),
	)
	return nil
}

func (e *Engine) localeFor(book *library.Book) string {
	if book != nil && book.Locale != "" {
		return book.Locale
	}
	return e.opts.DefaultLocale
}
