package library_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/library"
)

func writeManifest(t *testing.T, dir string, book library.Book) string {
	t.Helper()
	bookDir := filepath.Join(dir, book.ID)
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(book)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(bookDir, library.ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func sampleBook(id string) library.Book {
	return library.Book{
		ID:        id,
		Title:     "Sample " + id,
		AudioPath: "audio.m4b",
		Chapters: []library.Chapter{
			{ID: "ch-1", Start: 0, Duration: 300},
			{ID: "ch-2", Start: 300, Duration: 240},
		},
	}
}

func TestLoadCatalogFindsManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, sampleBook("book-a"))
	writeManifest(t, dir, sampleBook("book-b"))

	catalog, err := library.LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 books, got %d", catalog.Len())
	}
	book, ok := catalog.Book("book-a")
	if !ok {
		t.Fatal("book-a not found")
	}
	if !filepath.IsAbs(book.AudioPath) {
		t.Fatalf("expected resolved audio path, got %q", book.AudioPath)
	}
	if !strings.HasPrefix(book.AudioPath, filepath.Join(dir, "book-a")) {
		t.Fatalf("audio path should resolve against manifest dir: %q", book.AudioPath)
	}

	books := catalog.Books()
	if len(books) != 2 || books[0].ID != "book-a" || books[1].ID != "book-b" {
		t.Fatalf("unexpected ordering: %v, %v", books[0].ID, books[1].ID)
	}
}

func TestLoadCatalogMissingDirectoryIsEmpty(t *testing.T) {
	catalog, err := library.LoadCatalog(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if catalog.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d", catalog.Len())
	}
}

func TestLoadCatalogRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	book := sampleBook("book-a")
	writeManifest(t, dir, book)
	book.Title = "Other copy"
	bookDir := filepath.Join(dir, "copy")
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, _ := json.Marshal(book)
	if err := os.WriteFile(filepath.Join(bookDir, library.ManifestName), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := library.LoadCatalog(dir); err == nil || !strings.Contains(err.Error(), "duplicate book id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestBookValidate(t *testing.T) {
	book := sampleBook("book-a")
	if err := book.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	overlap := sampleBook("book-b")
	overlap.Chapters[1].Start = 100
	if err := overlap.Validate(); err != nil {
		t.Fatalf("out-of-order start only applies when decreasing: %v", err)
	}

	bad := sampleBook("book-c")
	bad.Chapters[1].Duration = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero duration")
	}

	dup := sampleBook("book-d")
	dup.Chapters[1].ID = "ch-1"
	if err := dup.Validate(); err == nil {
		t.Fatal("expected error for duplicate chapter id")
	}
}

func TestChapterLookups(t *testing.T) {
	book := sampleBook("book-a")

	first, ok := book.FirstChapter()
	if !ok || first.ID != "ch-1" {
		t.Fatalf("unexpected first chapter: %+v", first)
	}

	next, ok := book.NextChapter("ch-1")
	if !ok || next.ID != "ch-2" {
		t.Fatalf("unexpected next chapter: %+v", next)
	}
	if _, ok := book.NextChapter("ch-2"); ok {
		t.Fatal("expected no chapter after the last one")
	}

	containing, ok := book.ChapterContaining(310)
	if !ok || containing.ID != "ch-2" {
		t.Fatalf("unexpected containing chapter: %+v", containing)
	}
	if _, ok := book.ChapterContaining(5000); ok {
		t.Fatal("expected no chapter past the end")
	}
}
