package daemon_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/daemon"
	"lectern/internal/library"
	"lectern/internal/logging"
	"lectern/internal/testsupport"
)

func writeManifest(t *testing.T, libraryDir string, book *library.Book) {
	t.Helper()
	dir := filepath.Join(libraryDir, book.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir book dir: %v", err)
	}
	data, err := json.Marshal(book)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, library.ManifestName), data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestDaemonStatusAndReload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.Enabled = false
	writeManifest(t, cfg.Paths.LibraryDir, testsupport.NewBook(t, "book-1", 2, 300))

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.BookCount != 1 {
		t.Fatalf("expected 1 book, got %d", status.BookCount)
	}
	if !strings.HasSuffix(status.DBPath, "transcripts.db") {
		t.Fatalf("unexpected db path: %s", status.DBPath)
	}
	if len(status.Dependencies) != 2 {
		t.Fatalf("expected ffmpeg and recognizer entries, got %d", len(status.Dependencies))
	}

	writeManifest(t, cfg.Paths.LibraryDir, testsupport.NewBook(t, "book-2", 1, 120))
	if err := d.ReloadLibrary(); err != nil {
		t.Fatalf("ReloadLibrary: %v", err)
	}
	if got := len(d.Books()); got != 2 {
		t.Fatalf("expected 2 books after reload, got %d", got)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped daemon")
	}
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.Enabled = false

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = first.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("second daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	err = second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected second instance rejection, got %v", err)
	}
}
