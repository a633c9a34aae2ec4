// Package ipc exposes daemon control over JSON-RPC on a Unix socket. The
// player process and the CLI are both clients of this surface.
package ipc

import (
	"lectern/internal/daemon"
	"lectern/internal/scheduler"
	"lectern/internal/trigger"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running      bool                      `json:"running"`
	PID          int                       `json:"pid"`
	DBPath       string                    `json:"db_path"`
	LockPath     string                    `json:"lock_path"`
	BookCount    int                       `json:"book_count"`
	Scheduler    scheduler.Snapshot        `json:"scheduler"`
	Playback     PlaybackStatus            `json:"playback"`
	Dependencies []daemon.DependencyStatus `json:"dependencies"`
}

// PlaybackStatus mirrors the daemon's view of the player.
type PlaybackStatus struct {
	BookID    string  `json:"book_id"`
	ChapterID string  `json:"chapter_id"`
	Position  float64 `json:"position"`
	Playing   bool    `json:"playing"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// PlaybackEventRequest forwards a player event.
type PlaybackEventRequest struct {
	Event trigger.Event `json:"event"`
}

// PlaybackEventResponse acknowledges a player event.
type PlaybackEventResponse struct {
	Accepted bool `json:"accepted"`
}

// TranscribeRequest enqueues one chapter.
type TranscribeRequest struct {
	BookID    string `json:"book_id"`
	ChapterID string `json:"chapter_id"`
	Priority  string `json:"priority"`
	Force     bool   `json:"force"`
}

// TranscribeResponse reports how the request was resolved.
type TranscribeResponse struct {
	Result string `json:"result"`
}

// QueueBookRequest starts background transcription of a book.
type QueueBookRequest struct {
	BookID string `json:"book_id"`
}

// QueueBookResponse acknowledges the request.
type QueueBookResponse struct {
	Queued bool `json:"queued"`
}

// CancelBookRequest drops a book's pending and running tasks.
type CancelBookRequest struct {
	BookID string `json:"book_id"`
}

// CancelBookResponse reports the number of tasks removed.
type CancelBookResponse struct {
	Removed int `json:"removed"`
}

// DeleteBookRequest removes all transcription state for a book.
type DeleteBookRequest struct {
	BookID string `json:"book_id"`
}

// DeleteBookResponse reports the number of tasks removed along the way.
type DeleteBookResponse struct {
	Removed int `json:"removed"`
}

// Sentence is the caption DTO.
type Sentence struct {
	ID        string  `json:"id"`
	BookID    string  `json:"book_id"`
	ChapterID string  `json:"chapter_id"`
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// CaptionsRequest fetches sentences for a chapter, or for a timeline
// window when ByRange is set.
type CaptionsRequest struct {
	BookID    string  `json:"book_id"`
	ChapterID string  `json:"chapter_id,omitempty"`
	ByRange   bool    `json:"by_range,omitempty"`
	From      float64 `json:"from,omitempty"`
	To        float64 `json:"to,omitempty"`
}

// CaptionsResponse contains ordered sentences.
type CaptionsResponse struct {
	Sentences []Sentence `json:"sentences"`
}

// ProgressRequest fetches how far a book has been transcribed.
type ProgressRequest struct {
	BookID string `json:"book_id"`
}

// ProgressResponse reports the furthest transcribed end time.
type ProgressResponse struct {
	Seconds float64 `json:"seconds"`
}

// ChaptersRequest lists per-chapter transcription state for a book.
type ChaptersRequest struct {
	BookID string `json:"book_id"`
}

// ChapterState is one chapter's stored transcription state.
type ChapterState struct {
	ChapterID     string  `json:"chapter_id"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Completed     bool    `json:"completed"`
	TranscribedAt string  `json:"transcribed_at,omitempty"`
}

// ChaptersResponse lists chapter states ordered by start time.
type ChaptersResponse struct {
	Chapters []ChapterState `json:"chapters"`
}

// BooksRequest lists library books.
type BooksRequest struct{}

// BookSummary is the book listing DTO.
type BookSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Chapters int    `json:"chapters"`
}

// BooksResponse lists the library.
type BooksResponse struct {
	Books []BookSummary `json:"books"`
}

// ReloadLibraryRequest rescans the library directory.
type ReloadLibraryRequest struct{}

// ReloadLibraryResponse reports the post-reload book count.
type ReloadLibraryResponse struct {
	BookCount int `json:"book_count"`
}

// HealthRequest fetches transcript database diagnostics.
type HealthRequest struct{}

// HealthResponse reports database health information.
type HealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	TablesPresent    []string `json:"tables_present"`
	IntegrityCheck   bool     `json:"integrity_check"`
	ChapterRows      int      `json:"chapter_rows"`
	SentenceRows     int      `json:"sentence_rows"`
	Error            string   `json:"error"`
}
