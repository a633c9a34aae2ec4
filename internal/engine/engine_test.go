package engine_test

import (
	"context"
	"errors"
	"testing"

	"lectern/internal/engine"
	"lectern/internal/services"
	"lectern/internal/stt"
	"lectern/internal/testsupport"
	"lectern/internal/transcript"
)

func TestEngineTranscribeChapter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	book := testsupport.NewBook(t, "book-1", 2, 300)

	provider := &stt.Scripted{Spans: []stt.Span{
		{Words: []stt.Word{
			{Text: "Chapter", Start: 0.5, End: 1.0},
			{Text: "two", Start: 1.0, End: 1.4},
			{Text: "begins.", Start: 1.4, End: 2.0},
		}},
	}}
	eng := engine.New(provider, engine.Options{
		FFmpegBinary:  "ffmpeg",
		CacheDir:      cfg.Paths.CacheDir,
		DefaultLocale: "en-US",
	}, nil)

	chapter := book.Chapters[1]
	var got []transcript.Sentence
	err := eng.TranscribeChapter(context.Background(), book, chapter, func(s transcript.Sentence) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("TranscribeChapter: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(got))
	}
	if got[0].Text != "Chapter two begins." {
		t.Fatalf("unexpected text %q", got[0].Text)
	}
	// Chapter two starts at 300s; span times are relative to the chapter.
	if got[0].StartTime < chapter.Start || got[0].EndTime > chapter.End() {
		t.Fatalf("sentence [%v, %v] escaped chapter range", got[0].StartTime, got[0].EndTime)
	}
	if provider.Calls() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.Calls())
	}
}

func TestEngineUnavailableProviderShortCircuits(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	book := testsupport.NewBook(t, "book-1", 1, 300)

	provider := &stt.Scripted{AvailableErr: services.Wrap(
		services.ErrUnavailable, "stt", "available", "no recognizer", errors.New("no recognizer"))}
	eng := engine.New(provider, engine.Options{
		CacheDir:      cfg.Paths.CacheDir,
		DefaultLocale: "en-US",
	}, nil)

	err := eng.TranscribeChapter(context.Background(), book, book.Chapters[0], func(transcript.Sentence) error {
		t.Fatal("no sentences expected")
		return nil
	})
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if provider.Calls() != 0 {
		t.Fatal("Transcribe should not run when the provider is unavailable")
	}
}

func TestEngineExtractionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	book := testsupport.NewBook(t, "book-1", 1, 300)

	provider := &stt.Scripted{}
	eng := engine.New(provider, engine.Options{
		FFmpegBinary:  "definitely-not-ffmpeg-48151623",
		CacheDir:      cfg.Paths.CacheDir,
		DefaultLocale: "en-US",
	}, nil)

	err := eng.TranscribeChapter(context.Background(), book, book.Chapters[0], func(transcript.Sentence) error {
		return nil
	})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatal("extraction failures should be retryable")
	}
}

func TestEngineCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	book := testsupport.NewBook(t, "book-1", 1, 300)

	provider := &stt.Scripted{Hang: true}
	eng := engine.New(provider, engine.Options{
		FFmpegBinary:  "ffmpeg",
		CacheDir:      cfg.Paths.CacheDir,
		DefaultLocale: "en-US",
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- eng.TranscribeChapter(ctx, book, book.Chapters[0], func(transcript.Sentence) error {
			return nil
		})
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
