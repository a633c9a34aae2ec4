package playback_test

import (
	"testing"

	"lectern/internal/playback"
)

func TestUpdateReturnsPrevious(t *testing.T) {
	state := playback.NewState()

	prev := state.Update(playback.Status{BookID: "book-1", ChapterID: "ch-1", Position: 12, Playing: true})
	if prev.BookID != "" {
		t.Fatalf("expected empty previous status, got %+v", prev)
	}

	prev = state.Update(playback.Status{BookID: "book-1", ChapterID: "ch-2", Position: 301, Playing: true})
	if prev.ChapterID != "ch-1" || prev.Position != 12 {
		t.Fatalf("unexpected previous status: %+v", prev)
	}

	current := state.Current()
	if current.ChapterID != "ch-2" || !current.Playing {
		t.Fatalf("unexpected current status: %+v", current)
	}
}

func TestMarkChaptersLoadedIsOncePerBook(t *testing.T) {
	state := playback.NewState()
	if !state.MarkChaptersLoaded("book-1") {
		t.Fatal("first mark should report true")
	}
	if state.MarkChaptersLoaded("book-1") {
		t.Fatal("second mark should report false")
	}
	if !state.ChaptersLoaded("book-1") {
		t.Fatal("expected chapters loaded")
	}

	state.ForgetBook("book-1")
	if state.ChaptersLoaded("book-1") {
		t.Fatal("expected forget to clear the flag")
	}
	if !state.MarkChaptersLoaded("book-1") {
		t.Fatal("mark after forget should report true again")
	}
}

func TestForgetBookClearsCurrentStatus(t *testing.T) {
	state := playback.NewState()
	state.Update(playback.Status{BookID: "book-1", ChapterID: "ch-1", Playing: true})
	state.ForgetBook("book-1")
	if current := state.Current(); current.BookID != "" {
		t.Fatalf("expected cleared status, got %+v", current)
	}
}
