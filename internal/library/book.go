package library

import (
	"fmt"
	"strings"
)

// Chapter is a stable, time-bounded segment of a book's audio. Start and
// Duration are seconds on the book's absolute timeline.
type Chapter struct {
	ID       string  `json:"id"`
	Title    string  `json:"title,omitempty"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns the exclusive end of the chapter's time range.
func (c Chapter) End() float64 {
	return c.Start + c.Duration
}

// Book is an imported audiobook with its detected chapter index.
type Book struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	// AudioPath points at the book's source audio file.
	AudioPath string `json:"audio_path"`
	// Locale overrides the configured transcription locale when set.
	Locale   string    `json:"locale,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// Validate checks structural invariants on a loaded book.
func (b *Book) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("book: id is required")
	}
	if strings.TrimSpace(b.AudioPath) == "" {
		return fmt.Errorf("book %s: audio_path is required", b.ID)
	}
	seen := make(map[string]struct{}, len(b.Chapters))
	for i, ch := range b.Chapters {
		if strings.TrimSpace(ch.ID) == "" {
			return fmt.Errorf("book %s: chapter %d: id is required", b.ID, i)
		}
		if _, ok := seen[ch.ID]; ok {
			return fmt.Errorf("book %s: duplicate chapter id %q", b.ID, ch.ID)
		}
		seen[ch.ID] = struct{}{}
		if ch.Start < 0 {
			return fmt.Errorf("book %s: chapter %s: negative start", b.ID, ch.ID)
		}
		if ch.Duration <= 0 {
			return fmt.Errorf("book %s: chapter %s: duration must be positive", b.ID, ch.ID)
		}
		if i > 0 && ch.Start < b.Chapters[i-1].Start {
			return fmt.Errorf("book %s: chapter %s: out of order", b.ID, ch.ID)
		}
	}
	return nil
}

// ChapterByID returns the chapter with the given id.
func (b *Book) ChapterByID(id string) (Chapter, bool) {
	for _, ch := range b.Chapters {
		if ch.ID == id {
			return ch, true
		}
	}
	return Chapter{}, false
}

// NextChapter returns the chapter following the given one in the index.
// Used by the scheduler's one-chapter look-ahead.
func (b *Book) NextChapter(id string) (Chapter, bool) {
	for i, ch := range b.Chapters {
		if ch.ID == id {
			if i+1 < len(b.Chapters) {
				return b.Chapters[i+1], true
			}
			return Chapter{}, false
		}
	}
	return Chapter{}, false
}

// FirstChapter returns the first chapter of the book.
func (b *Book) FirstChapter() (Chapter, bool) {
	if len(b.Chapters) == 0 {
		return Chapter{}, false
	}
	return b.Chapters[0], true
}

// ChapterContaining returns the chapter whose [start, end) range contains
// the given timestamp. A sentence is attributed to the chapter containing
// its end time, so boundary lookups use the end, never the start.
func (b *Book) ChapterContaining(t float64) (Chapter, bool) {
	for _, ch := range b.Chapters {
		if t >= ch.Start && t < ch.End() {
			return ch, true
		}
	}
	return Chapter{}, false
}
