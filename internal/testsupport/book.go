package testsupport

import (
	"fmt"
	"testing"

	"lectern/internal/library"
)

// NewBook builds an in-memory book with the requested number of
// equal-length chapters. Chapter IDs follow the pattern "ch-N".
func NewBook(t testing.TB, id string, chapters int, chapterSeconds float64) *library.Book {
	t.Helper()

	book := &library.Book{
		ID:        id,
		Title:     "Test Book " + id,
		AudioPath: "/tmp/" + id + ".m4b",
	}
	for i := 0; i < chapters; i++ {
		book.Chapters = append(book.Chapters, library.Chapter{
			ID:       fmt.Sprintf("ch-%d", i+1),
			Title:    fmt.Sprintf("Chapter %d", i+1),
			Start:    float64(i) * chapterSeconds,
			Duration: chapterSeconds,
		})
	}
	if err := book.Validate(); err != nil {
		t.Fatalf("book.Validate: %v", err)
	}
	return book
}
